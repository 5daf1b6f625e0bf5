package cmd

import (
	"fmt"
	"os"

	"datachat/service"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	reviewImages    string
	reviewQA        string
	reviewCSV       string
	reviewBatchSize int
	reviewOut       string
	reviewAPIKey    string
)

var reviewCmd = &cobra.Command{
	Use:   "review-charts",
	Short: "Check rendered chart images against question-answer pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reviewImages == "" || reviewQA == "" || reviewCSV == "" {
			return fmt.Errorf("--images, --qa and --csv are required")
		}
		pairs, err := service.LoadQAPairs(reviewQA)
		if err != nil {
			return fmt.Errorf("load %s: %w", reviewQA, err)
		}

		runner := service.NewBatchRunner(newBatchClient(reviewAPIKey), log)
		reviews, err := runner.ReviewCharts(cmd.Context(), reviewAPIKey, reviewCSV, reviewBatchSize, reviewImages, pairs)
		if err != nil {
			return err
		}

		if reviewOut != "" {
			data, err := yaml.Marshal(reviews)
			if err != nil {
				return err
			}
			if err := os.WriteFile(reviewOut, data, 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d review(s) to %s\n", len(reviews), reviewOut)
			return nil
		}

		out := cmd.OutOrStdout()
		for _, r := range reviews {
			fmt.Fprintf(out, "== %s\n", r.Image)
			if r.Error != "" {
				fmt.Fprintf(out, "error: %s\n\n", r.Error)
				continue
			}
			fmt.Fprintf(out, "%s\n\n", r.Review)
		}
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewImages, "images", "", "directory of rendered chart images")
	reviewCmd.Flags().StringVar(&reviewQA, "qa", "", "qa_pairs.json written by generate")
	reviewCmd.Flags().StringVar(&reviewCSV, "csv", "", "the CSV the charts were drawn from")
	reviewCmd.Flags().IntVar(&reviewBatchSize, "batch-size", 32, "rows shown to the model")
	reviewCmd.Flags().StringVar(&reviewOut, "out", "", "write reviews as YAML instead of printing")
	reviewCmd.Flags().StringVar(&reviewAPIKey, "api-key", "", "Cohere API key (defaults to COHERE_API_KEY)")
	rootCmd.AddCommand(reviewCmd)
}
