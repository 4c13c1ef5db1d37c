package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/forestguard/internal/api/client"
	"github.com/forestguard/internal/models"
)

func NewPredictionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prediction",
		Short:   "Prediction management commands",
		Aliases: []string{"predictions", "p"},
	}

	cmd.AddCommand(newPredictionListCommand())
	cmd.AddCommand(newPredictionGenerateCommand())
	cmd.AddCommand(newPredictionTriggerCommand())
	cmd.AddCommand(newPredictionDeleteCommand())

	return cmd
}

func newPredictionListCommand() *cobra.Command {
	var (
		area      string
		riskLevel string
		keyword   string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List predictions",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			predictions, err := c.ListPredictions(area, riskLevel, keyword)
			if err != nil {
				return fmt.Errorf("failed to list predictions: %v", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tPEST\tAREA\tRISK\tPROBABILITY\tSTATUS\tDATE")
			for _, p := range predictions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
					p.ID,
					p.PestID,
					p.TargetArea,
					p.RiskLevel,
					p.Probability,
					p.Status,
					p.PredictionDate.Format(time.RFC3339),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&area, "area", "", "Filter by target area")
	cmd.Flags().StringVar(&riskLevel, "risk-level", "", "Filter by risk level (MINIMAL/LOW/MEDIUM/HIGH/EXTREME)")
	cmd.Flags().StringVar(&keyword, "keyword", "", "Keyword search")

	return cmd
}

func newPredictionGenerateCommand() *cobra.Command {
	var (
		model       string
		temperature float64
		humidity    float64
		rainfall    float64
		history     int
		vegetation  float64
		soil        float64
	)

	cmd := &cobra.Command{
		Use:   "generate [pest_id] [target_area]",
		Short: "Generate a prediction from factor readings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			p, err := c.GeneratePrediction(model, args[0], args[1], models.Factors{
				Temperature:        temperature,
				Humidity:           humidity,
				Rainfall:           rainfall,
				HistoricalCount:    history,
				VegetationCoverage: vegetation,
				SoilMoisture:       soil,
			})
			if err != nil {
				return fmt.Errorf("failed to generate prediction: %v", err)
			}

			fmt.Printf("Prediction %s: %s risk (probability %.2f), valid %s\n",
				p.ID, p.RiskLevel, p.Probability, p.ValidityPeriod)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "comprehensive", "Risk model (history/weather/environment/comprehensive)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Temperature in degrees Celsius")
	cmd.Flags().Float64Var(&humidity, "humidity", 0, "Relative humidity percent")
	cmd.Flags().Float64Var(&rainfall, "rainfall", 0, "Rainfall in millimetres")
	cmd.Flags().IntVar(&history, "history", 0, "Historical occurrence count")
	cmd.Flags().Float64Var(&vegetation, "vegetation", 0, "Vegetation coverage fraction")
	cmd.Flags().Float64Var(&soil, "soil", 0, "Soil moisture fraction")

	return cmd
}

func newPredictionTriggerCommand() *cobra.Command {
	var (
		audience     string
		instructions string
	)

	cmd := &cobra.Command{
		Use:   "trigger [prediction_id]",
		Short: "Trigger an alert for a prediction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			a, err := c.TriggerAlert(args[0], audience, instructions)
			if err != nil {
				return fmt.Errorf("failed to trigger alert: %v", err)
			}

			fmt.Printf("Alert %s (%s) for prediction %s\n", a.ID, a.Level, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&audience, "audience", "", "Target audience")
	cmd.Flags().StringVar(&instructions, "instructions", "", "Handling instructions")

	return cmd
}

func newPredictionDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [prediction_id]",
		Short: "Delete a prediction you created",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return fmt.Errorf("failed to create client: %v", err)
			}

			if err := c.DeletePrediction(args[0]); err != nil {
				return fmt.Errorf("failed to delete prediction: %v", err)
			}

			fmt.Printf("Prediction %s deleted\n", args[0])
			return nil
		},
	}
}
