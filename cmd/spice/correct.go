package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-spice-must-sort/internal/cli"
	"github.com/Veraticus/the-spice-must-sort/internal/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func correctCmd() *cobra.Command {
	var learn bool

	cmd := &cobra.Command{
		Use:   "correct <transaction-id> <category-id>",
		Short: "Manually set a transaction's category",
		Long: `Assign a category to a transaction by hand. With --rule a manual rule is
saved as well: a merchant rule when the transaction has a merchant, otherwise
a description rule for its account.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			categoryID, err := parseCategoryID(args[1])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			correction, err := engine.NewCorrector(store, slog.Default()).Correct(ctx, args[0], categoryID, learn)
			if correction == nil {
				return fmt.Errorf("failed to correct %s: %w", args[0], err)
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s categorized as %d", correction.Transaction.ID, categoryID)))
			switch {
			case correction.MerchantRule != nil:
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Merchant rule %d: %q", correction.MerchantRule.ID, correction.MerchantRule.MerchantPattern)))
			case correction.DescriptionRule != nil:
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Description rule %d: %q", correction.DescriptionRule.ID, correction.DescriptionRule.DescriptionPattern)))
			case learn && err == nil:
				fmt.Fprintln(out, cli.FormatWarning("Description too generic to learn a rule from"))
			}
			if err != nil {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Rule not saved: %v", err)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&learn, "rule", false, "also save a manual rule")

	return cmd
}
