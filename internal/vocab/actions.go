package vocab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/textiq/internal/common"
	"github.com/dtnitsch/textiq/models"
	"github.com/dtnitsch/textiq/pkg/estimator"
	vocabpkg "github.com/dtnitsch/textiq/pkg/vocab"
)

// VocabAction scores a vocabulary-test file and prints the verbal
// comprehension estimate.
func VocabAction(c *cli.Context) error {
	logger := common.NewLogger(c.String("log-level"), c.String("log-format"))
	cfg := models.LoadConfig(c.String("config"), logger)

	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("no test file provided (usage: textiq vocab test.json)")
	}

	items, err := vocabpkg.LoadItems(path)
	if err != nil {
		return err
	}
	logger.Info("scoring vocabulary test", "file", path, "items", len(items))

	est, err := estimator.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build estimator: %w", err)
	}
	defer est.Close()

	result, err := est.EstimateVocab(c.Context, items)
	if err != nil {
		if errors.Is(err, estimator.ErrVocabDisabled) || errors.Is(err, vocabpkg.ErrNoEmbedder) {
			return fmt.Errorf("vocabulary scoring needs the embedding endpoint configured: %w", err)
		}
		return fmt.Errorf("failed to score test: %w", err)
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
		printText(path, result)
	}
	return nil
}

func printText(path string, result *vocabpkg.Estimate) {
	fmt.Printf("Vocabulary test: %s\n", path)
	fmt.Printf("Raw score:    %d/%d\n", result.RawScore, result.MaxScore)
	fmt.Printf("VCI estimate: %.1f\n", result.VCI)
	fmt.Printf("FSIQ-2:       %.1f\n", result.FSIQ2)

	fmt.Println("Items:")
	for _, item := range result.Items {
		if item.Error != "" {
			fmt.Printf("  %-18s error: %s\n", item.Word, item.Error)
			continue
		}
		fmt.Printf("  %-18s %d pt\n", item.Word, item.Score)
	}
}
