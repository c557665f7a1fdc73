package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"seguros/internal/core"
)

// optionsCmd lists the values the dashboard filters offer
var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the years, ramos and companies present in the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		market, closeFn, err := marketReader(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		opts, err := market.FilterOptions(ctx)
		if err != nil {
			return err
		}

		quarters := make([]string, 0, len(opts.Quarters))
		for _, q := range opts.Quarters {
			quarters = append(quarters, q+" ("+core.QuarterLabel(q)+")")
		}

		var sb strings.Builder
		section := func(title string, values []string) {
			fmt.Fprintf(&sb, "%s %s\n", titleStyle.Render(title), mutedStyle.Render(fmt.Sprintf("(%d)", len(values))))
			for _, v := range values {
				fmt.Fprintf(&sb, "  %s\n", v)
			}
			sb.WriteString("\n")
		}
		section("AÑOS", opts.Years)
		section("TRIMESTRES", quarters)
		section("RAMOS", opts.Ramos)
		section("COMPAÑÍAS", opts.Companies)

		fmt.Print(sb.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
}
