package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/moneyplanner/internal/cli"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/service"
)

func transactionsCmd() *cobra.Command {
	var (
		start, end string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List categorized transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter service.TransactionFilter
			from, err := parseDay(start)
			if err != nil {
				return err
			}
			if !from.IsZero() {
				filter.StartDate = &from
			}
			to, err := parseDay(end)
			if err != nil {
				return err
			}
			if !to.IsZero() {
				filter.EndDate = &to
			}
			filter.Limit = limit

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			txns, err := a.planner.Transactions(ctx, a.user(), filter)
			if err != nil {
				return err
			}
			if len(txns) == 0 {
				fmt.Println(cli.FormatInfo("No transactions found"))
				return nil
			}

			t := cli.NewTable(os.Stdout, "DATE", "AMOUNT", "NAME", "CATEGORY")
			for _, txn := range txns {
				category := txn.BudgetCategory
				if txn.Overridden {
					category += " *"
				}
				t.Row(txn.Date.Format(model.DateLayout), cli.FormatMoney(txn.Amount), txn.Name, category)
			}
			return t.Flush()
		},
	}
	cmd.Flags().StringVar(&start, "from", "", "earliest date, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "to", "", "latest date, YYYY-MM-DD")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum rows (0 for all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "categorize <transaction-id> <category>",
		Short: "Pin a transaction to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.planner.OverrideCategory(ctx, a.user(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(args[0] + " is now " + args[1]))
			return nil
		},
	})
	return cmd
}
