package main

import (
	"fmt"

	"github.com/spf13/cobra"

	apphttp "seguros/internal/http"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:              "version",
	Short:            "Print the version number of seguros-admin",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("seguros-admin v%s\n", apphttp.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
