package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/moneyplanner/internal/cli"
	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/planner"
)

func incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Log and review income",
	}
	cmd.AddCommand(incomeLogCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "List income events and the rolling average",
		RunE:  runIncomeHistory,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "streams",
		Short: "Detect recurring income in synced transactions",
		RunE:  runIncomeStreams,
	})
	return cmd
}

func incomeLogCmd() *cobra.Command {
	var (
		date        string
		description string
		recurring   bool
	)

	cmd := &cobra.Command{
		Use:     "log <amount>",
		Short:   "Record an income payment",
		Example: `  planner income log 2500 --source "ACME payroll" --recurring`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			day, err := parseDay(date)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.planner.LogIncome(ctx, a.user(), planner.IncomeInput{
				Date:              day,
				SourceDescription: description,
				Amount:            amount,
				IsRecurring:       recurring,
			})
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Logged " + cli.FormatMoney(amount)))
			if res.RollingAverage != nil {
				fmt.Println(cli.Field("Rolling average", cli.FormatMoney(*res.RollingAverage)))
			}
			if res.ChangeFlag != model.IncomeNoChange {
				fmt.Println(cli.Field("Income change", string(res.ChangeFlag)))
			}
			if res.PhaseAdvanced {
				fmt.Println(cli.FormatInfo("You advanced to the next phase"))
			}
			if res.EscalationProposed {
				fmt.Println(cli.FormatInfo("A savings rate increase is waiting: planner iin accept"))
			}
			if res.RateReduced {
				fmt.Println(cli.FormatWarning("Your savings rate was lowered to match your income"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "payment date, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&description, "source", "", "where the money came from")
	cmd.Flags().BoolVar(&recurring, "recurring", false, "the payment repeats")
	return cmd
}

func runIncomeHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	history, err := a.planner.IncomeHistory(ctx, a.user())
	if err != nil {
		return err
	}
	if len(history.Events) == 0 {
		fmt.Println(cli.FormatInfo("No income logged yet"))
		return nil
	}

	t := cli.NewTable(os.Stdout, "DATE", "AMOUNT", "SOURCE", "CHANGE")
	for _, e := range history.Events {
		t.Row(e.Date.Format(model.DateLayout), cli.FormatMoney(e.Amount), e.SourceDescription, string(e.ChangeFlag))
	}
	if err := t.Flush(); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(cli.Field("Rolling average", cli.FormatMoney(history.RollingAverage)))
	return nil
}

func runIncomeStreams(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	streams, err := a.planner.IncomeStreams(ctx, a.user())
	if err != nil {
		return err
	}
	if len(streams) == 0 {
		fmt.Println(cli.FormatInfo("No income streams found in synced transactions"))
		return nil
	}

	t := cli.NewTable(os.Stdout, "NAME", "AVERAGE", "FREQUENCY", "SEEN")
	for _, s := range streams {
		t.Row(s.Name, cli.FormatMoney(s.Amount), s.Frequency, strconv.Itoa(s.Occurrences))
	}
	return t.Flush()
}

func savingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Log and review money moved into savings",
	}

	var (
		date        string
		destination string
	)
	logCmd := &cobra.Command{
		Use:   "log <amount>",
		Short: "Record a transfer into savings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			day, err := parseDay(date)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			log, err := a.planner.LogSavings(ctx, a.user(), planner.SavingsInput{
				Date:                   day,
				DestinationDescription: destination,
				Amount:                 amount,
			})
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Logged " + cli.FormatMoney(amount) + " to savings"))
			fmt.Println(cli.Field("Target rate", cli.FormatPercent(log.SavingsRateAtTime*100)))
			if log.RateAdherence != nil {
				fmt.Println(cli.Field("Adherence", cli.FormatPercent(*log.RateAdherence*100)))
			}
			return nil
		},
	}
	logCmd.Flags().StringVar(&date, "date", "", "transfer date, YYYY-MM-DD (default: today)")
	logCmd.Flags().StringVar(&destination, "to", "", "destination account")
	cmd.AddCommand(logCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "List savings transfers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			logs, err := a.planner.SavingsHistory(ctx, a.user())
			if err != nil {
				return err
			}
			t := cli.NewTable(os.Stdout, "DATE", "AMOUNT", "DESTINATION", "TARGET")
			for _, l := range logs {
				t.Row(l.Date.Format(model.DateLayout), cli.FormatMoney(l.Amount), l.DestinationDescription, cli.FormatPercent(l.SavingsRateAtTime*100))
			}
			return t.Flush()
		},
	})
	return cmd
}

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, common.NewUserError(fmt.Sprintf("%q is not an amount", s), err)
	}
	return v, nil
}

// parseDay reads a YYYY-MM-DD flag; empty means the planner picks today.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("%q is not a YYYY-MM-DD date", s), err)
	}
	return d, nil
}
