package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/forestguard/internal/api/client"
)

func NewAlertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alert",
		Short:   "Alert management commands",
		Aliases: []string{"alerts", "a"},
	}

	cmd.AddCommand(newAlertListCommand())
	cmd.AddCommand(newAlertAcknowledgeCommand())
	cmd.AddCommand(newAlertHandleCommand())
	cmd.AddCommand(newAlertExportCommand())

	return cmd
}

func newAlertListCommand() *cobra.Command {
	var (
		status string
		level  string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List alerts",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			alerts, err := c.ListAlerts(status, level)
			if err != nil {
				return fmt.Errorf("failed to list alerts: %v", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tAREA\tPEST\tLEVEL\tSTATUS\tTIME\tMESSAGE")
			for _, a := range alerts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					a.ID,
					a.TargetArea,
					a.PestID,
					a.Level,
					a.Status,
					a.AlertTime.Format(time.RFC3339),
					a.Message,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (ACTIVE/ACKNOWLEDGED/HANDLED/EXPIRED)")
	cmd.Flags().StringVar(&level, "level", "", "Filter by level (INFO/LOW/MEDIUM/HIGH/URGENT)")

	return cmd
}

func newAlertAcknowledgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "acknowledge [alert_id]",
		Short:   "Acknowledge an alert",
		Aliases: []string{"ack"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			if err := c.AcknowledgeAlert(args[0]); err != nil {
				return fmt.Errorf("failed to acknowledge alert: %v", err)
			}

			fmt.Printf("Alert %s acknowledged\n", args[0])
			return nil
		},
	}
}

func newAlertHandleCommand() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "handle [alert_id]",
		Short: "Mark an alert as handled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			if err := c.HandleAlert(args[0], note); err != nil {
				return fmt.Errorf("failed to handle alert: %v", err)
			}

			fmt.Printf("Alert %s handled\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Resolution note")
	return cmd
}

func newAlertExportCommand() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export alerts to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			if err := c.ExportAlerts(format, output); err != nil {
				return fmt.Errorf("failed to export alerts: %v", err)
			}

			fmt.Printf("Alerts exported to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Export format (csv/json)")
	cmd.Flags().StringVar(&output, "output", "alerts.csv", "Output file path")

	return cmd
}
