package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/moneyplanner/internal/cli"
	"github.com/Veraticus/moneyplanner/internal/model"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Weekly spending reviews and safeguards",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "weekly",
		Short: "Generate this week's spending review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			review, err := a.planner.GenerateWeeklyReview(ctx, a.user())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Week of %s to %s",
				review.PeriodStart.Format(model.DateLayout), review.PeriodEnd.Format(model.DateLayout))))
			t := cli.NewTable(os.Stdout, "CATEGORY", "SPENT", "COUNT")
			for _, c := range review.Categories {
				t.Row(c.Category, cli.FormatMoney(c.Total), fmt.Sprint(c.Count))
			}
			if err := t.Flush(); err != nil {
				return err
			}
			fmt.Println()
			fmt.Println(cli.Field("Total", cli.BoldStyle.Render(cli.FormatMoney(review.Total))))
			fmt.Println(cli.SubtleStyle.Render("Acknowledge with: planner review ack " + review.ID))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ack <review-id>",
		Short: "Mark a weekly review as seen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.planner.AcknowledgeReview(ctx, a.user(), args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Review acknowledged"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "holiday",
		Short: "Pause streaks and nudges for two weeks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			safeguards, err := a.planner.StartHoliday(ctx, a.user())
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Holiday started until " + safeguards.HolidayUntil.Format(model.DateLayout)))
			return nil
		},
	})
	return cmd
}
