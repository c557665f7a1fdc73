package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"seguros/internal/amqp"
	"seguros/internal/cli"
	"seguros/internal/log"
	"seguros/internal/services"
)

var importFrom string

// importCmd copies a data source into the SQLite store once
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the records of a data source into the SQLite store",
	Long: `Import reads every record from --from (default IMPORT_FROM) and replaces
the snapshot held in SQLITE_DB_PATH. When AMQP_URL is set a reload message
is published so running dashboards pick up the new data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if importFrom != "" {
			cfg.ImportFrom = importFrom
		}
		if err := cfg.ValidateImport(); err != nil {
			return err
		}

		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()

		src := cli.OpenSource(ctx, logger, cfg, cfg.ImportFrom)
		defer src.Close()

		var publisher services.ReloadPublisher
		if cfg.AMQPURL != "" {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				logger.Warn("AMQP unavailable, running dashboards will not be told to reload", log.FieldError, err.Error())
			} else {
				defer client.Close()
				publisher = client
			}
		}

		start := time.Now()
		res, err := services.NewImportService(repo, publisher).Import(ctx, src.Reader)
		if err != nil {
			return err
		}

		fmt.Println(boxStyle.Render(fmt.Sprintf("%s\n\nbatch    %s\nsource   %s\nrecords  %s\ncolumns  %d\ntook     %s",
			titleStyle.Render("IMPORT COMPLETE"),
			keyword(res.ID),
			keyword(res.Source),
			keyword(fmt.Sprint(res.Records)),
			len(res.Columns),
			time.Since(start).Round(time.Millisecond))))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFrom, "from", "", "source to import (local, s3, postgres, sheets, memory)")
	rootCmd.AddCommand(importCmd)
}
