package cmd

import (
	"fmt"
	"strings"

	"datachat/ai"
	"datachat/cache"
	"datachat/service"

	"github.com/spf13/cobra"
)

var (
	genCSV        string
	genTypes      string
	genBatchSize  int
	genOutputSize int
	genOutDir     string
	genAPIKey     string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a batch chart script and question-answer pairs for a CSV file",
	Example: `  datachat generate --csv sales.csv --types bar,line,pie --out ./out
  datachat generate --csv sales.csv --batch-size 64 --output-size 16`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if genCSV == "" {
			return fmt.Errorf("--csv is required")
		}
		runner := service.NewBatchRunner(newBatchClient(genAPIKey), log)
		res, err := runner.Run(cmd.Context(), service.BatchOptions{
			CSVPath:    genCSV,
			ChartTypes: splitTypes(genTypes),
			BatchSize:  genBatchSize,
			OutputSize: genOutputSize,
			OutputDir:  genOutDir,
			APIKey:     genAPIKey,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Generated chart code in %d attempt(s)\n", res.Report.Attempts)
		for _, ev := range res.Report.Charts {
			fmt.Fprintf(out, "  %-12s correctness=%.2f completeness=%.2f diversity=%.2f\n",
				ev.ChartType, ev.Correctness, ev.Completeness, ev.Diversity)
		}
		if res.Report.QAPairs != nil {
			fmt.Fprintf(out, "Q&A pairs: %d (correctness=%.2f diversity=%.2f relevance=%.2f)\n",
				len(res.QAPairs), res.Report.QAPairs.Correctness, res.Report.QAPairs.Diversity, res.Report.QAPairs.Relevance)
		} else if res.Report.QAError != "" {
			fmt.Fprintf(out, "Q&A pairs failed: %s\n", res.Report.QAError)
		}
		for _, f := range res.Files {
			fmt.Fprintf(out, "Wrote %s\n", f)
		}
		return nil
	},
}

func newBatchClient(apiKey string) *ai.Client {
	key := apiKey
	if key == "" {
		key = cfg.CohereAPIKey
	}
	return ai.New(ai.Options{
		APIKey:             key,
		BaseURL:            cfg.CohereBaseURL,
		ChatModel:          cfg.ChatModel,
		VisionModel:        cfg.VisionModel,
		HTTPTimeout:        cfg.HTTPTimeout,
		MinRequestInterval: cfg.MinRequestInterval,
		Cache:              cache.New(),
		Logger:             log,
	})
}

func splitTypes(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func init() {
	generateCmd.Flags().StringVar(&genCSV, "csv", "", "path to the CSV file")
	generateCmd.Flags().StringVar(&genTypes, "types", "bar,line,pie,scatter", "comma-separated chart types")
	generateCmd.Flags().IntVar(&genBatchSize, "batch-size", 32, "rows per sampled batch")
	generateCmd.Flags().IntVar(&genOutputSize, "output-size", 8, "charts to produce per batch")
	generateCmd.Flags().StringVar(&genOutDir, "out", "./output", "output directory")
	generateCmd.Flags().StringVar(&genAPIKey, "api-key", "", "Cohere API key (defaults to COHERE_API_KEY)")
	rootCmd.AddCommand(generateCmd)
}
