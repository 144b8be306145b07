package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/moneyplanner/internal/cli"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/monitor"
	"github.com/Veraticus/moneyplanner/internal/planner"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Review spending and manage your budget",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Average monthly spending by envelope",
		RunE:  runBudgetSummary,
	})
	cmd.AddCommand(budgetSetCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "safe-to-spend",
		Short: "What is left to spend this month",
		RunE:  runSafeToSpend,
	})
	cmd.AddCommand(budgetItemsCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "alerts",
		Short: "Budget lines close to or over their amount this month",
		RunE:  runBudgetAlerts,
	})
	return cmd
}

func runBudgetSummary(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.planner.BudgetSummary(ctx, a.user())
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Monthly averages over %d months", summary.MonthsAnalyzed)))
	t := cli.NewTable(os.Stdout, "ENVELOPE", "CATEGORY", "MONTHLY", "COUNT")
	for _, env := range summary.Envelopes {
		t.Row(cli.BoldStyle.Render(env.Name), "", cli.FormatMoney(env.Subtotal), "")
		for _, c := range env.Categories {
			t.Row("", c.Name, cli.FormatMoney(c.MonthlyAvg), fmt.Sprint(c.Count))
		}
	}
	if err := t.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.Field("Income", cli.FormatMoney(summary.MonthlyIncome)))
	fmt.Println(cli.Field("Expenses", cli.FormatMoney(summary.MonthlyExpense)))
	balance := cli.FormatMoney(summary.MonthlyBalance)
	if summary.MonthlyBalance < 0 {
		balance = cli.ErrorStyle.Render(balance)
	}
	fmt.Println(cli.Field("Balance", balance))
	return nil
}

func budgetSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set explicit monthly figures",
		Long: `Set the figures safe-to-spend uses. Unset figures fall back to their
defaults: income from your rolling average, fixed expenses at 50% and
savings at 10% of income.`,
		Example: `  planner budget set --income 6000 --fixed 2800 --savings 900`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			budget, err := a.planner.Budget(ctx, a.user())
			if err != nil {
				return err
			}
			for flag, field := range map[string]**float64{
				"income":  &budget.MonthlyIncome,
				"fixed":   &budget.FixedExpenses,
				"savings": &budget.SavingsTarget,
			} {
				if cmd.Flags().Changed(flag) {
					v, _ := cmd.Flags().GetFloat64(flag)
					*field = &v
				}
			}

			if _, err := a.planner.SaveBudget(ctx, a.user(), budget); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Budget saved"))
			return nil
		},
	}
	cmd.Flags().Float64("income", 0, "monthly income")
	cmd.Flags().Float64("fixed", 0, "monthly fixed expenses")
	cmd.Flags().Float64("savings", 0, "monthly savings target")
	return cmd
}

func runSafeToSpend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.planner.SafeToSpend(ctx, a.user())
	if err != nil {
		return err
	}

	safe := cli.SuccessStyle.Render(cli.FormatMoney(s.SafeToSpend))
	if s.SafeToSpend <= 0 {
		safe = cli.ErrorStyle.Render(cli.FormatMoney(s.SafeToSpend))
	}
	lines := []string{
		cli.Field("Safe to spend", safe),
		cli.Field("Per day", cli.FormatMoney(s.DailyAllowance)),
		cli.Field("Days remaining", fmt.Sprint(s.DaysRemaining)),
		"",
		cli.Field("Monthly income", cli.FormatMoney(s.MonthlyIncome)),
		cli.Field("Fixed expenses", cli.FormatMoney(s.FixedExpenses)),
		cli.Field("Savings target", cli.FormatMoney(s.SavingsTarget)),
		cli.Field("Spent this month", cli.FormatMoney(s.MonthSpending)),
	}
	fmt.Println(cli.RenderBox("This month", strings.Join(lines, "\n")))
	return nil
}

func budgetItemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List and edit budget lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.planner.BudgetItems(ctx, a.user())
			if err != nil {
				return err
			}
			t := cli.NewTable(os.Stdout, "ID", "NAME", "CATEGORY", "CLASS", "AMOUNT", "HARD STOP")
			for _, item := range items {
				stop := ""
				if item.HardStop {
					stop = "yes"
				}
				t.Row(item.ID, item.Name, item.Category, string(item.Classification), cli.FormatMoney(item.BudgetAmount), stop)
			}
			return t.Flush()
		},
	}

	var in planner.BudgetItemInput
	var class string
	add := &cobra.Command{
		Use:     "add <name> <amount>",
		Short:   "Add a budget line",
		Example: `  planner budget items add Groceries 450 --category Groceries --class RECURRING_VARIABLE`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			in.Name = args[0]
			in.BudgetAmount = amount
			in.Classification = model.SpendingClass(strings.ToUpper(class))

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			item, err := a.planner.CreateBudgetItem(ctx, a.user(), in)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Added " + item.Name + " (" + item.ID + ")"))
			return nil
		},
	}
	add.Flags().StringVar(&in.Category, "category", "", "budget category")
	add.Flags().StringVar(&class, "class", "", "FIXED, RECURRING_VARIABLE, TRUE_VARIABLE or UNCLASSIFIED")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a budget line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.planner.DeleteBudgetItem(ctx, a.user(), args[0]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess("Removed " + args[0]))
			return nil
		},
	})

	var off bool
	stop := &cobra.Command{
		Use:   "hard-stop <id>",
		Short: "Stop spending in a category once its line is used up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			item, err := a.planner.SetHardStop(ctx, a.user(), args[0], !off)
			if err != nil {
				return err
			}
			state := "on"
			if !item.HardStop {
				state = "off"
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Hard stop %s for %s", state, item.Name)))
			return nil
		},
	}
	stop.Flags().BoolVar(&off, "off", false, "turn the hard stop off")
	cmd.AddCommand(stop)
	return cmd
}

func runBudgetAlerts(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	alerts, err := a.planner.BudgetAlerts(ctx, a.user())
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Println(cli.FormatSuccess("Every budget line is under 80% this month"))
		return nil
	}

	t := cli.NewTable(os.Stdout, "NAME", "CATEGORY", "SPENT", "BUDGET", "LEVEL")
	for _, alert := range alerts {
		level := cli.WarningStyle.Render(string(alert.Level))
		if alert.Level != monitor.AlertWarning {
			level = cli.ErrorStyle.Render(string(alert.Level))
		}
		t.Row(alert.Name, alert.Category, cli.FormatMoney(alert.Spent), cli.FormatMoney(alert.Budget), level)
	}
	return t.Flush()
}
