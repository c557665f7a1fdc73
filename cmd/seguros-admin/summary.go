package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"seguros/internal/analytics"
	"seguros/internal/core"
	"seguros/internal/services"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1a365d"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boxStyle   = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2)
)

func keyword(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(s)
}

var (
	summaryYear      int
	summaryQuarter   string
	summaryRamo      string
	summaryCompanies []string
	summaryViewMode  string
	summaryTop       int
)

// summaryCmd prints the headline figures and the company ranking
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print market KPIs, ratios and the top companies for a period",
	Example: `  seguros-admin summary --year 2024 --quarter 02
  seguros-admin summary --ramo Automotores --top 5 --api http://localhost:8050`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		market, closeFn, err := marketReader(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		q := summaryQuery()
		totals, err := market.KPIs(ctx, q)
		if err != nil {
			return err
		}
		if totals.EntityCount == 0 {
			fmt.Println(mutedStyle.Render("No hay datos para los filtros seleccionados"))
			return nil
		}
		companies, err := market.CompanyRatios(ctx, q, services.ClampTopN(summaryTop))
		if err != nil {
			return err
		}
		dist, title, err := services.DonutChart(ctx, market, q)
		if err != nil {
			return err
		}

		fmt.Println(boxStyle.Render(renderSummary(q, totals, companies, dist, title)))
		return nil
	},
}

func summaryQuery() services.Query {
	q := services.Query{
		Quarter:   summaryQuarter,
		Ramo:      summaryRamo,
		Companies: summaryCompanies,
		ViewMode:  core.ParseViewMode(summaryViewMode),
	}
	if summaryYear > 0 {
		y := summaryYear
		q.Year = &y
	}
	return q.Normalize()
}

func renderSummary(q services.Query, totals core.Totals, companies []core.CompanyRatios, dist core.Distribution, distTitle string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n%s\n\n",
		titleStyle.Render("MERCADO ASEGURADOR ARGENTINO"),
		mutedStyle.Render("Período: "+q.PeriodLabel()+" · "+q.ViewModeLabel()))

	for _, card := range services.KPICards(totals) {
		fmt.Fprintf(&sb, "%-24s %s\n", card.Title, keyword(card.Value))
	}
	r := analytics.TotalsRatios(totals)
	fmt.Fprintf(&sb, "\n%s  %s   %s  %s   %s  %s\n",
		mutedStyle.Render("Siniestralidad"), core.FormatPercent(r.LossRatio),
		mutedStyle.Render("Gastos"), core.FormatPercent(r.ExpenseRatio),
		mutedStyle.Render("Combinado"), core.FormatPercent(r.CombinedRatio))

	fmt.Fprintf(&sb, "\n%s\n", titleStyle.Render("TOP "+strconv.Itoa(len(companies))+" COMPAÑÍAS"))
	nameWidth := 10
	for _, c := range companies {
		if w := lipgloss.Width(c.CompanyName); w > nameWidth {
			nameWidth = w
		}
	}
	header := fmt.Sprintf("%3s  %-*s  %18s  %8s  %8s", "#", nameWidth, "Compañía", "Primas emitidas", "Share", "Comb.")
	fmt.Fprintln(&sb, mutedStyle.Render(header))
	for _, c := range companies {
		fmt.Fprintf(&sb, "%3d  %-*s  %18s  %8s  %8s\n",
			c.Rank, nameWidth, c.CompanyName,
			core.FormatMillions(c.PremiumsWritten),
			core.FormatPercent(c.MarketShare),
			core.FormatPercent(c.CombinedRatio))
	}

	fmt.Fprintf(&sb, "\n%s\n", titleStyle.Render(distTitle))
	for _, it := range dist.Items {
		fmt.Fprintf(&sb, "%-28s %8s\n", it.Name, core.FormatPercent(it.Percentage))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func init() {
	summaryCmd.Flags().IntVar(&summaryYear, "year", 0, "year to report (default: all years)")
	summaryCmd.Flags().StringVar(&summaryQuarter, "quarter", "", "quarter code 01-04")
	summaryCmd.Flags().StringVar(&summaryRamo, "ramo", "", "restrict to one ramo; the breakdown switches to subramos")
	summaryCmd.Flags().StringSliceVar(&summaryCompanies, "companies", nil, "comma-separated company names")
	summaryCmd.Flags().StringVar(&summaryViewMode, "view-mode", "accumulated", "accumulated or current")
	summaryCmd.Flags().IntVar(&summaryTop, "top", core.DefaultTopN, "number of companies to list")
	rootCmd.AddCommand(summaryCmd)
}
