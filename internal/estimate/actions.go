package estimate

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/textiq/internal/common"
	"github.com/dtnitsch/textiq/models"
	"github.com/dtnitsch/textiq/pkg/estimator"
	"github.com/dtnitsch/textiq/pkg/ingest"
	"github.com/dtnitsch/textiq/pkg/store"
)

// EstimateAction scores a single input and prints the result. The input is
// the first argument (file, URL, or "-"); no argument reads stdin.
func EstimateAction(c *cli.Context) error {
	logger := common.NewLogger(c.String("log-level"), c.String("log-format"))
	cfg := models.LoadConfig(c.String("config"), logger)

	mode, err := common.ParseEstimateMode(c.String("mode"))
	if err != nil {
		return err
	}

	arg := c.Args().First()
	if arg == "" {
		arg = "-"
	}

	resolver := ingest.NewResolver(logger)
	in, err := resolver.Resolve(c.Context, arg)
	if err != nil {
		return fmt.Errorf("failed to resolve input: %w", err)
	}

	est, err := estimator.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build estimator: %w", err)
	}
	defer est.Close()

	result := est.Estimate(c.Context, in.Text, mode)

	if c.Bool("save") {
		if err := saveRun(c, cfg, logger, in, result); err != nil {
			logger.Warn("failed to save run", "error", err)
		}
	}

	format := strings.ToLower(c.String("format"))
	switch format {
	case "json", "yaml":
		data, err := common.MarshalOutput(result, format)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(data))
	default:
		printText(in.Source, result)
	}

	if !result.IsValid {
		return cli.Exit("", 1)
	}
	return nil
}

func saveRun(c *cli.Context, cfg *models.Config, logger *slog.Logger, in *ingest.Input, result *models.EstimateResult) error {
	db, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	run := store.NewRun(in.Source, in.Text, result)
	if err := db.SaveRun(c.Context, run); err != nil {
		return err
	}
	logger.Info("run saved", "run_id", run.ID, "db", db.Path())
	return nil
}

func printText(source string, result *models.EstimateResult) {
	if !result.IsValid {
		fmt.Printf("Input rejected: %s\n", result.Error)
		if p := result.Preprocessing; p != nil {
			fmt.Printf("Tokens: %d (language %s)\n", p.TokenCount, p.DetectedLanguage)
		}
		return
	}

	iq, _ := result.Estimate()
	fmt.Printf("IQ estimate: %.1f\n", iq)
	fmt.Printf("Confidence:  %.0f%%\n", result.Confidence)
	fmt.Printf("Method:      %s\n", result.Method)
	fmt.Printf("Coverage:    %d/4 methodologies\n", result.FeatureCoverage)

	if len(result.DimensionScores) > 0 {
		fmt.Println("Dimensions:")
		for _, name := range sortedKeys(result.DimensionScores) {
			fmt.Printf("  %-26s %.1f\n", name+":", result.DimensionScores[name])
		}
	}
	if len(result.MethodEstimates) > 0 {
		fmt.Println("Method votes:")
		for _, name := range sortedKeys(result.MethodEstimates) {
			fmt.Printf("  %-12s %.1f (weight %.2f)\n", name+":", result.MethodEstimates[name], result.WeightsUsed[name])
		}
	}

	if p := result.Preprocessing; p != nil {
		match := "match"
		if !p.LanguageMatch {
			match = "mismatch"
		}
		fmt.Printf("Input:       %d tokens, language %s (%s), source %s\n",
			p.TokenCount, p.DetectedLanguage, match, source)
	}

	var failed []string
	for name, detail := range result.Methods {
		if detail.Error != "" {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		fmt.Println("Warnings:")
		for _, name := range failed {
			fmt.Printf("  %s unavailable: %s\n", name, result.Methods[name].Error)
		}
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
