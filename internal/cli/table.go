package cli

import (
	"strconv"

	"github.com/Veraticus/the-spice-must-sort/internal/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const timeLayout = "2006-01-02 15:04"

// RenderMerchantRules renders merchant rules as a table. names maps category
// IDs to names; unknown IDs are shown as numbers.
func RenderMerchantRules(rules []model.MerchantRule, names map[int]string) string {
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.MerchantPattern,
			categoryLabel(r.CategoryID, names),
			StyleSource(r.Source),
			r.CreatedAt.Local().Format(timeLayout),
		})
	}
	return renderTable([]string{"ID", "MERCHANT", "CATEGORY", "SOURCE", "CREATED"}, rows)
}

// RenderDescriptionRules renders description rules as a table.
func RenderDescriptionRules(rules []model.DescriptionRule, names map[int]string) string {
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.AccountID,
			r.DescriptionPattern,
			categoryLabel(r.CategoryID, names),
			StyleSource(r.Source),
			r.CreatedAt.Local().Format(timeLayout),
		})
	}
	return renderTable([]string{"ID", "ACCOUNT", "PATTERN", "CATEGORY", "SOURCE", "CREATED"}, rows)
}

// RenderCategories renders the category list.
func RenderCategories(categories []model.Category) string {
	rows := make([][]string, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, []string{strconv.Itoa(c.ID), c.Name, c.Description})
	}
	return renderTable([]string{"ID", "NAME", "DESCRIPTION"}, rows)
}

// RenderAccounts renders the account list.
func RenderAccounts(accounts []model.Account) string {
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{a.ID, a.Name, a.Institution})
	}
	return renderTable([]string{"ID", "NAME", "INSTITUTION"}, rows)
}

// CategoryNames indexes categories by ID.
func CategoryNames(categories []model.Category) map[int]string {
	names := make(map[int]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

func categoryLabel(id int, names map[int]string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return "#" + strconv.Itoa(id)
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
	return t.Render()
}
