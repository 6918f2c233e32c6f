package main

import (
	"fmt"

	"github.com/Veraticus/the-spice-must-sort/internal/cli"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
		Long:  `List and add the accounts transactions and description rules belong to.`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to get accounts: %w", err)
			}
			if len(accounts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No accounts found. Use 'spice accounts add' to create one."))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAccounts(accounts))
			return nil
		},
	}

	var institution string
	add := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account := &model.Account{ID: args[0], Name: args[1], Institution: institution}
			if err := store.CreateAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created account %q", account.ID)))
			return nil
		},
	}
	add.Flags().StringVar(&institution, "institution", "", "financial institution name")

	cmd.AddCommand(list, add)
	return cmd
}
