package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forestguard/internal/cli/commands"
)

var rootCmd = &cobra.Command{
	Use:   "forestguard",
	Short: "ForestGuard CLI - forest pest prediction and alerting",
	Long: `ForestGuard CLI is a command-line tool for the pest prediction and
alert engine. It manages predictions, alerts and alert rules over the
HTTP API.`,
}

func init() {
	rootCmd.AddCommand(commands.NewPredictionCommand())
	rootCmd.AddCommand(commands.NewAlertCommand())
	rootCmd.AddCommand(commands.NewRuleCommand())
	rootCmd.AddCommand(commands.NewStatsCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
