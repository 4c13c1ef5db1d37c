package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/forestguard/internal/api/client"
	"github.com/forestguard/internal/models"
)

func NewRuleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rule",
		Short:   "Alert rule management commands",
		Aliases: []string{"rules", "r"},
	}

	cmd.AddCommand(newRuleListCommand())
	cmd.AddCommand(newRuleEnableCommand())
	cmd.AddCommand(newRuleDisableCommand())
	cmd.AddCommand(newRuleExportCommand())
	cmd.AddCommand(newRuleImportCommand())

	return cmd
}

func newRuleListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List alert rules",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			rules, err := c.ListRules()
			if err != nil {
				return fmt.Errorf("failed to list rules: %v", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCONDITION\tENABLED\tTRIGGERED")
			for _, r := range rules {
				condition := string(r.Condition.Kind)
				switch r.Condition.Kind {
				case "risk_level":
					condition = fmt.Sprintf("risk >= %s", r.Condition.RiskLevel)
				case "probability":
					condition = fmt.Sprintf("probability >= %.2f", r.Condition.Probability)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\n",
					r.ID, r.Name, condition, r.Enabled, r.TriggerCount)
			}
			return w.Flush()
		},
	}
}

func newRuleEnableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enable [rule_id]",
		Short: "Enable an alert rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			if err := c.EnableRule(args[0]); err != nil {
				return fmt.Errorf("failed to enable rule: %v", err)
			}

			fmt.Printf("Rule %s enabled\n", args[0])
			return nil
		},
	}
}

func newRuleExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export alert rules to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			if err := c.ExportRules(output); err != nil {
				return fmt.Errorf("failed to export rules: %v", err)
			}

			fmt.Printf("Rules exported to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "rules.json", "Output file")
	return cmd
}

func newRuleImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import alert rules from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read rule file: %v", err)
			}

			var rules []models.AlertRule
			if err := json.Unmarshal(data, &rules); err != nil {
				return fmt.Errorf("failed to parse rule file: %v", err)
			}

			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			imported, err := c.ImportRules(rules)
			if err != nil {
				return fmt.Errorf("failed to import rules: %v", err)
			}

			fmt.Printf("Imported %d rules\n", imported)
			return nil
		},
	}
}

func newRuleDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable [rule_id]",
		Short: "Disable an alert rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			if err := c.DisableRule(args[0]); err != nil {
				return fmt.Errorf("failed to disable rule: %v", err)
			}

			fmt.Printf("Rule %s disabled\n", args[0])
			return nil
		},
	}
}
