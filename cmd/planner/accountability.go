package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/moneyplanner/internal/cli"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/planner"
)

func benchmarkCmd() *cobra.Command {
	var optIn, optOut bool

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Compare your savings rate with your peers",
		Example: `  planner benchmark --opt-in
  planner benchmark`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if optIn && optOut {
				return fmt.Errorf("--opt-in and --opt-out cannot be combined")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if optIn || optOut {
				if _, err := a.planner.ToggleBenchmark(ctx, a.user(), optIn); err != nil {
					return err
				}
			}

			b, err := a.planner.PeerBenchmark(ctx, a.user())
			if err != nil {
				return err
			}
			if !b.OptedIn || b.Suppressed {
				fmt.Println(cli.FormatInfo(b.Message))
				return nil
			}

			lines := []string{
				cli.Field("Your rate", cli.BoldStyle.Render(cli.FormatPercent(b.YourSavingsRate))),
				cli.Field("Peer average", cli.FormatPercent(b.PeerAverageRate)),
				cli.Field("Percentile", fmt.Sprint(b.Percentile)),
			}
			fmt.Println(cli.RenderBox("Peer benchmark", strings.Join(lines, "\n")))
			return nil
		},
	}
	cmd.Flags().BoolVar(&optIn, "opt-in", false, "share in peer benchmarks")
	cmd.Flags().BoolVar(&optOut, "opt-out", false, "stop sharing in peer benchmarks")
	return cmd
}

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Save toward a goal with others",
	}

	var members []string
	create := &cobra.Command{
		Use:     "create <name> <target>",
		Short:   "Start a group savings goal",
		Example: `  planner group create "Cabin trip" 3000 --member alice --member bob`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			goal, err := a.planner.CreateGroupGoal(ctx, a.user(), planner.GroupGoalInput{
				Name:      args[0],
				Target:    target,
				MemberIDs: members,
			})
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created %s (%s)", goal.Name, goal.ID)))
			return nil
		},
	}
	create.Flags().StringArrayVar(&members, "member", nil, "user id of another member")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show progress toward a group goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			goal, err := a.planner.GroupGoal(ctx, a.user(), args[0])
			if err != nil {
				return err
			}
			printGroupGoal(goal)
			return nil
		},
	})
	return cmd
}

func printGroupGoal(goal *model.GroupGoal) {
	lines := []string{
		cli.Field("Target", cli.FormatMoney(goal.Target)),
		cli.Field("Saved", cli.FormatMoney(goal.Progress)),
		cli.Field("Complete", cli.FormatPercent(goal.PercentComplete)),
		cli.Field("Members", strings.Join(goal.MemberIDs, ", ")),
		cli.Field("Started", goal.CreatedAt.Format(model.DateLayout)),
	}
	fmt.Println(cli.RenderBox(goal.Name, strings.Join(lines, "\n")))
}
