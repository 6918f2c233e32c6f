package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/the-spice-must-sort/internal/cli"
	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/Veraticus/the-spice-must-sort/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
		Long: `List, add and delete merchant rules (global, matched against the normalized
merchant name) and description rules (per account, matched against the whole
description with * wildcards). Rules added here are manual and always win
over rules learned from the AI classifier.`,
	}

	cmd.AddCommand(merchantRulesCmd())
	cmd.AddCommand(descriptionRulesCmd())

	return cmd
}

type ruleListFlags struct {
	source   string
	search   string
	category int
	limit    int
	offset   int
}

func (f *ruleListFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.category, "category", 0, "only rules for this category ID")
	cmd.Flags().StringVar(&f.source, "source", "", "only manual or ai rules")
	cmd.Flags().StringVar(&f.search, "search", "", "case-insensitive pattern substring")
	cmd.Flags().IntVar(&f.limit, "limit", service.DefaultPageSize, "maximum rules to show")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "rules to skip")
}

func (f *ruleListFlags) filter() (service.RuleFilter, service.Page, error) {
	var filter service.RuleFilter
	if f.category > 0 {
		filter.CategoryID = &f.category
	}
	if f.source != "" {
		filter.Source = model.RuleSource(strings.ToLower(f.source))
		if !filter.Source.Valid() {
			return filter, service.Page{}, fmt.Errorf("--source must be manual or ai, got %q", f.source)
		}
	}
	filter.Search = f.search
	return filter, service.Page{Limit: f.limit, Offset: f.offset}.Normalize(), nil
}

func merchantRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "merchant",
		Aliases: []string{"merchants"},
		Short:   "Manage merchant rules",
	}

	var flags ruleListFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List merchant rules, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter, page, err := flags.filter()
			if err != nil {
				return err
			}
			rules, total, err := store.ListMerchantRules(ctx, filter, page)
			if err != nil {
				return fmt.Errorf("failed to list merchant rules: %w", err)
			}
			if total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No merchant rules found."))
				return nil
			}

			names, err := categoryNames(ctx, store)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderMerchantRules(rules, names))
			fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render(fmt.Sprintf("%d of %d rules", len(rules), total)))
			return nil
		},
	}
	flags.register(list)

	add := &cobra.Command{
		Use:   "add <merchant> <category-id>",
		Short: "Add or update a manual merchant rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			categoryID, err := parseCategoryID(args[1])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := store.GetCategoryByID(ctx, categoryID)
			if err != nil {
				return fmt.Errorf("category %d: %w", categoryID, err)
			}

			rule, err := store.CreateMerchantRule(ctx, args[0], categoryID, model.RuleSourceManual)
			if err != nil {
				return fmt.Errorf("failed to save merchant rule: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Merchants containing %q now go to %s (rule %d)",
				rule.MerchantPattern, category.Name, rule.ID)))
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a merchant rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteRule(cmd, args[0], "merchant", func(ctx context.Context, s service.Storage, id int64) error {
				return s.DeleteMerchantRule(ctx, id)
			})
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}

func descriptionRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "description",
		Aliases: []string{"desc"},
		Short:   "Manage account description rules",
	}

	var (
		flags   ruleListFlags
		account string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List description rules, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter, page, err := flags.filter()
			if err != nil {
				return err
			}
			filter.AccountID = account

			rules, total, err := store.ListDescriptionRules(ctx, filter, page)
			if err != nil {
				return fmt.Errorf("failed to list description rules: %w", err)
			}
			if total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No description rules found."))
				return nil
			}

			names, err := categoryNames(ctx, store)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderDescriptionRules(rules, names))
			fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render(fmt.Sprintf("%d of %d rules", len(rules), total)))
			return nil
		},
	}
	flags.register(list)
	list.Flags().StringVar(&account, "account", "", "only rules for this account")

	add := &cobra.Command{
		Use:   "add <account-id> <pattern> <category-id>",
		Short: "Add or update a manual description rule",
		Long: `Add a description rule for one account. The pattern must match the whole
description, case-insensitively; * matches any run of characters.

Example: spice rules description add fidelity "DIVIDEND RECEIVED *" 12`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			categoryID, err := parseCategoryID(args[2])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if _, err := store.GetAccount(ctx, args[0]); err != nil {
				return fmt.Errorf("account %q: %w", args[0], err)
			}
			category, err := store.GetCategoryByID(ctx, categoryID)
			if err != nil {
				return fmt.Errorf("category %d: %w", categoryID, err)
			}

			rule, err := store.CreateDescriptionRule(ctx, args[0], args[1], categoryID, model.RuleSourceManual)
			if err != nil {
				return fmt.Errorf("failed to save description rule: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s descriptions matching %q now go to %s (rule %d)",
				rule.AccountID, rule.DescriptionPattern, category.Name, rule.ID)))
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a description rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteRule(cmd, args[0], "description", func(ctx context.Context, s service.Storage, id int64) error {
				return s.DeleteDescriptionRule(ctx, id)
			})
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}

func deleteRule(cmd *cobra.Command, rawID, kind string, del func(context.Context, service.Storage, int64) error) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid rule ID %q", rawID)
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx, viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := del(ctx, store, id); err != nil {
		return fmt.Errorf("failed to delete %s rule %d: %w", kind, id, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted %s rule %d", kind, id)))
	return nil
}

func parseCategoryID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid category ID %q", raw)
	}
	return id, nil
}

func categoryNames(ctx context.Context, store service.CategoryStore) (map[int]string, error) {
	categories, err := store.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return cli.CategoryNames(categories), nil
}
