package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"seguros/internal/cli"
	"seguros/internal/services"
	"seguros/internal/source/file"
)

var (
	exportFrom string
	exportOut  string
)

// exportCmd writes the records of a source to a file
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the records of a data source to a CSV, Parquet or Excel file",
	Example: `  seguros-admin export --out data/subramos_historico.parquet
  seguros-admin export --from sqlite --out /tmp/mercado.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportOut == "" {
			return errors.New("--out is required")
		}
		from := exportFrom
		if from == "" {
			from = cfg.DataSource
		}

		src := cli.OpenSource(cmd.Context(), logger, cfg, from)
		defer src.Close()

		dst := file.NewWriter(exportOut)
		n, err := services.Export(cmd.Context(), src.Reader, dst)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s records from %s to %s\n",
			titleStyle.Render("EXPORTED"), keyword(fmt.Sprint(n)), keyword(from), keyword(dst.Path))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "source to read (default DATA_SOURCE)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file; the extension picks the format")
	rootCmd.AddCommand(exportCmd)
}
