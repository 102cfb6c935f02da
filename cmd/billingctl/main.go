/*
main.go - Operational CLI for the billing engine

PURPOSE:
  Command-line access to the billing workflows that back-office staff run
  outside the API: month-end charge generation, charge classification, and
  discount eligibility checks. Operates directly on the SQLite database.

COMMANDS:
  billingctl generate --period 2024-03 --readings readings.json
      Generate the period's charges for every active contract. The
      readings file maps apartment IDs to metered amounts:
        {"apt-1a": {"water": "45.50", "municipal": "120.00"}}

  billingctl classify <charge-id> [--as-of 2024-04-20]
      Print a charge's lateness classification as of a date.

  billingctl eligibility <owner-id> [--bill-type water] [--as-of ...]
      Print an owner's discount eligibility verdict(s).

  billingctl sweep
      Run one late-charge sweep (same logic as the server monitor).

All commands take --db (default ./data/billing.db).

SEE ALSO:
  - cmd/server/main.go: The HTTP server
  - billing/scheduler.go: Charge generation
  - eligibility/engine.go: Eligibility verdicts
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edificio/billing-engine/api"
	"github.com/edificio/billing-engine/billing"
	"github.com/edificio/billing-engine/eligibility"
	"github.com/edificio/billing-engine/store/sqlite"
)

var (
	dbPath string

	dueDay          int
	graceDays       int
	delinquencyDays int
)

func main() {
	root := &cobra.Command{
		Use:           "billingctl",
		Short:         "Operational tooling for the apartment billing engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "./data/billing.db", "path to the SQLite database")
	root.PersistentFlags().IntVar(&dueDay, "due-day", 10, "day of month charges fall due")
	root.PersistentFlags().IntVar(&graceDays, "grace-days", 5, "grace window after the due date")
	root.PersistentFlags().IntVar(&delinquencyDays, "delinquency-days", 30, "late window after grace")

	root.AddCommand(generateCmd(), classifyCmd(), eligibilityCmd(), sweepCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func policy() billing.LatenessPolicy {
	return billing.LatenessPolicy{
		DueDay:          dueDay,
		GraceDays:       graceDays,
		DelinquencyDays: delinquencyDays,
	}
}

func openStore() (*sqlite.Store, error) {
	return sqlite.New(dbPath)
}

// asOfFlag parses --as-of, defaulting to today.
func asOfFlag(cmd *cobra.Command) (billing.Date, error) {
	s, _ := cmd.Flags().GetString("as-of")
	if s == "" {
		return billing.Today(), nil
	}
	return billing.ParseDate(s)
}

// =============================================================================
// GENERATE
// =============================================================================

func generateCmd() *cobra.Command {
	var periodStr, readingsPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a period's charges for every active contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := billing.ParsePeriod(periodStr)
			if err != nil {
				return err
			}
			readings, err := loadReadings(readingsPath)
			if err != nil {
				return err
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			registry := billing.NewContractRegistry(store)
			contracts, err := registry.ActiveContracts(ctx, period.Start())
			if err != nil {
				return err
			}

			scheduler := billing.NewChargeScheduler(store, policy())
			charges, err := scheduler.GenerateForPeriod(ctx, contracts, period, readings)
			if err != nil {
				return err
			}

			for _, c := range charges {
				fmt.Printf("%s  %-12s %-10s %10s  due %s  %s\n",
					c.ID, c.ApartmentID, c.BillType, c.Amount, c.DueDate, c.Status)
			}
			fmt.Printf("%d charges for %s (%d contracts)\n", len(charges), period, len(contracts))
			return nil
		},
	}

	cmd.Flags().StringVar(&periodStr, "period", "", "billing period, e.g. 2024-03")
	cmd.Flags().StringVar(&readingsPath, "readings", "", "JSON file of per-apartment meter readings")
	cmd.MarkFlagRequired("period")

	return cmd
}

// loadReadings parses {"apt-1a": {"water": "45.50"}} into typed readings.
// A missing file means a rent-only run.
func loadReadings(path string) (map[billing.ApartmentID]billing.MeterReadings, error) {
	out := make(map[billing.ApartmentID]billing.MeterReadings)
	if path == "" {
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for apt, amounts := range raw {
		readings := make(billing.MeterReadings, len(amounts))
		for billType, amount := range amounts {
			bt := billing.BillType(billType)
			if !bt.Valid() || bt == billing.BillRent {
				return nil, fmt.Errorf("%s: unknown bill type %q", apt, billType)
			}
			m, err := billing.ParseMoney(amount)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: bad amount %q", apt, billType, amount)
			}
			readings[bt] = m
		}
		out[billing.ApartmentID(apt)] = readings
	}
	return out, nil
}

// =============================================================================
// CLASSIFY
// =============================================================================

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <charge-id>",
		Short: "Classify a charge's lateness as of a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := asOfFlag(cmd)
			if err != nil {
				return err
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			detector := billing.NewLatenessDetector(store, policy())
			classification, err := detector.Classify(context.Background(), billing.ChargeID(args[0]), asOf)
			if err != nil {
				return err
			}

			fmt.Printf("%s as of %s: %s\n", args[0], asOf, classification)
			return nil
		},
	}

	cmd.Flags().String("as-of", "", "classification date (default today)")
	return cmd
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

func eligibilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eligibility <owner-id>",
		Short: "Print an owner's discount eligibility verdicts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := asOfFlag(cmd)
			if err != nil {
				return err
			}
			billType, _ := cmd.Flags().GetString("bill-type")

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			engine := eligibility.NewEngine(store, policy())
			ctx := context.Background()
			ownerID := billing.OwnerID(args[0])

			var verdicts []eligibility.Eligibility
			if billType != "" {
				v, err := engine.Eligibility(ctx, ownerID, billing.BillType(billType), asOf)
				if err != nil {
					return err
				}
				verdicts = append(verdicts, v)
			} else {
				all, err := engine.EligibilityAll(ctx, ownerID, asOf)
				if err != nil {
					return err
				}
				verdicts = all
			}

			for _, v := range verdicts {
				printVerdict(v)
			}
			return nil
		},
	}

	cmd.Flags().String("as-of", "", "verdict date (default today)")
	cmd.Flags().String("bill-type", "", "single utility type (default all)")
	return cmd
}

func printVerdict(v eligibility.Eligibility) {
	if v.Eligible {
		fmt.Printf("%-12s eligible     (worst status %s)\n", v.BillType, v.WorstStatus)
		return
	}

	fmt.Printf("%-12s NOT eligible (worst status %s", v.BillType, v.WorstStatus)
	if v.TriggeringCharge != nil {
		fmt.Printf("; triggered by %s %s %s on %s",
			v.TriggeringCharge.BillType, v.TriggeringCharge.Period,
			v.TriggeringCharge.ID, v.TriggeringApartment)
	}
	if v.RestoredAfter != nil {
		fmt.Printf("; restored after %s", v.RestoredAfter)
	}
	fmt.Println(")")
}

// =============================================================================
// SWEEP
// =============================================================================

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one late-charge sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			log := zerolog.New(os.Stderr).Output(zerolog.ConsoleWriter{Out: os.Stderr})
			handler := api.NewHandler(store, policy(), log)
			monitor := api.NewLateChargeMonitor(handler, log)
			monitor.Sweep(context.Background())
			return nil
		},
	}
}
