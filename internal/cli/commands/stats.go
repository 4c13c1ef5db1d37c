package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/forestguard/internal/api/client"
)

func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show prediction and alert statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			st, err := c.Stats()
			if err != nil {
				return fmt.Errorf("failed to fetch stats: %v", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintf(w, "Predictions\t%d\n", st.PredictionCount)
			fmt.Fprintf(w, "High risk\t%d\n", st.HighRiskCount)
			fmt.Fprintf(w, "Alerts\t%d\n", st.AlertCount)
			for level, count := range st.ByAlertLevel {
				fmt.Fprintf(w, "Alerts [%s]\t%d\n", level, count)
			}
			for status, count := range st.ByAlertStatus {
				fmt.Fprintf(w, "Alerts (%s)\t%d\n", status, count)
			}
			return w.Flush()
		},
	}
}
