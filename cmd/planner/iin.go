package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/moneyplanner/internal/automation"
	"github.com/Veraticus/moneyplanner/internal/cli"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/planner"
)

func iinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iin",
		Short: "Manage the automatic savings transfer",
		Long: `The automatic transfer moves a share of each paycheck into savings.
When income rises you are offered a higher rate; when it falls the rate is
lowered for you.`,
		RunE: runIINShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the transfer and any pending rate increase",
		RunE:  runIINShow,
	})
	cmd.AddCommand(iinSetCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "accept",
		Short: "Accept the pending rate increase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEscalation(cmd, true)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reject",
		Short: "Decline the pending rate increase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEscalation(cmd, false)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "proposals",
		Short: "List every rate increase you have been offered",
		RunE:  runIINProposals,
	})
	cmd.AddCommand(iinForecastCmd())
	return cmd
}

func iinForecastCmd() *cobra.Command {
	var years int

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project savings at your current rate against a higher one",
		Long: `Project ten years of savings at your current rate and at a proposed
rate, both as plain totals and grown at 5% a year. Unset figures come from
your transfer, its pending increase and your average income.`,
		Example: `  planner iin forecast
  planner iin forecast --proposed 15 --income 6000 --years 20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := planner.ForecastInput{Years: years}
			for flag, field := range map[string]**float64{
				"current":  &in.CurrentRate,
				"proposed": &in.ProposedRate,
				"income":   &in.MonthlyIncome,
			} {
				if cmd.Flags().Changed(flag) {
					v, _ := cmd.Flags().GetFloat64(flag)
					*field = &v
				}
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := a.planner.EscalationForecast(ctx, a.user(), in)
			if err != nil {
				return err
			}

			t := cli.NewTable(os.Stdout, "RATE", "SAVED", "WITH GROWTH")
			t.Row(cli.FormatPercent(f.CurrentRate), cli.FormatMoney(f.CurrentSimple), cli.FormatMoney(f.CurrentCompound))
			t.Row(cli.FormatPercent(f.ProposedRate), cli.FormatMoney(f.ProposedSimple), cli.FormatMoney(f.ProposedCompound))
			if err := t.Flush(); err != nil {
				return err
			}
			fmt.Println()
			fmt.Println(cli.Field(fmt.Sprintf("Difference after %d years", f.Years),
				cli.SuccessStyle.Render(cli.FormatMoney(f.Difference))))
			return nil
		},
	}

	cmd.Flags().Float64("current", 0, "current savings rate in percent")
	cmd.Flags().Float64("proposed", 0, "proposed savings rate in percent")
	cmd.Flags().Float64("income", 0, "monthly income")
	cmd.Flags().IntVar(&years, "years", automation.DefaultForecastYears, "years to project")
	return cmd
}

func runIINShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	transfer, err := a.planner.Transfer(ctx, a.user())
	if err != nil {
		return err
	}
	if transfer == nil {
		fmt.Println(cli.FormatInfo("No automatic transfer configured. Set one up with: planner iin set --rate 10"))
		return nil
	}
	printTransfer(transfer)
	return nil
}

func printTransfer(transfer *model.AutoTransfer) {
	state := cli.SuccessStyle.Render("active")
	if !transfer.IsActive {
		state = cli.SubtleStyle.Render("paused")
	}

	fmt.Println(cli.Field("Savings rate", cli.BoldStyle.Render(cli.FormatPercent(transfer.SavingsRatePct))))
	fmt.Println(cli.Field("Destination", transfer.Destination))
	fmt.Println(cli.Field("Status", state))
	if p := transfer.PendingEscalation; p != nil {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Pending increase %s → %s: %s",
			cli.FormatPercent(p.OldRate), cli.FormatPercent(p.NewRate), p.Reason)))
	}
}

func iinSetCmd() *cobra.Command {
	var destination string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or change the automatic transfer",
		Example: `  planner iin set --rate 12 --to "High interest savings"
  planner iin set --active=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var s automation.Settings
			if cmd.Flags().Changed("rate") {
				rate, _ := cmd.Flags().GetFloat64("rate")
				s.Rate = &rate
			}
			if cmd.Flags().Changed("active") {
				active, _ := cmd.Flags().GetBool("active")
				s.IsActive = &active
			}
			s.Destination = destination

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			transfer, err := a.planner.ConfigureTransfer(ctx, a.user(), s)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Automatic transfer saved"))
			printTransfer(transfer)
			return nil
		},
	}

	cmd.Flags().Float64("rate", 0, "savings rate in percent")
	cmd.Flags().Bool("active", true, "whether the transfer runs")
	cmd.Flags().StringVar(&destination, "to", "", "destination account")
	return cmd
}

func runEscalation(cmd *cobra.Command, accept bool) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resolve := a.planner.RejectEscalation
	if accept {
		resolve = a.planner.AcceptEscalation
	}
	res, err := resolve(ctx, a.user())
	if err != nil {
		return err
	}
	if !res.Success {
		fmt.Println(cli.FormatWarning(res.Message))
		return nil
	}
	fmt.Println(cli.FormatSuccess(res.Message))
	printTransfer(res.Transfer)
	return nil
}

func runIINProposals(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	proposals, err := a.planner.EscalationProposals(ctx, a.user())
	if err != nil {
		return err
	}
	if len(proposals) == 0 {
		fmt.Println(cli.FormatInfo("No rate increases offered yet"))
		return nil
	}

	t := cli.NewTable(os.Stdout, "OFFERED", "FROM", "TO", "STATUS", "REASON")
	for _, p := range proposals {
		t.Row(p.CreatedAt.Format(model.DateLayout), cli.FormatPercent(p.OldRate), cli.FormatPercent(p.NewRate), string(p.Status), p.Reason)
	}
	return t.Flush()
}
