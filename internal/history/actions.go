package history

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/textiq/internal/common"
	"github.com/dtnitsch/textiq/models"
	"github.com/dtnitsch/textiq/pkg/store"
)

// ListAction prints stored runs, newest first.
func ListAction(c *cli.Context) error {
	logger := common.NewLogger(c.String("log-level"), c.String("log-format"))
	cfg := models.LoadConfig(c.String("config"), logger)

	db, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	if format := c.String("format"); format == "json" || format == "yaml" {
		data, err := common.MarshalOutput(runs, format)
		if err != nil {
			return fmt.Errorf("failed to format runs: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	// Print table header
	fmt.Printf("%-36s  %-19s  %-6s %-5s %-7s %-15s %s\n",
		"ID", "Created", "IQ", "Conf", "Tokens", "Method", "Source")
	fmt.Println(strings.Repeat("-", 110))

	// Print each run
	for _, r := range runs {
		iq, conf := "-", "-"
		if r.IQEstimate != nil {
			iq = fmt.Sprintf("%.1f", *r.IQEstimate)
			conf = fmt.Sprintf("%.0f%%", r.Confidence)
		}
		method := r.Method
		if method == "" {
			method = "(none)"
		}
		fmt.Printf("%-36s  %-19s  %-6s %-5s %-7d %-15s %s\n",
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			iq,
			conf,
			r.TokenCount,
			method,
			r.Source,
		)
	}

	fmt.Printf("\nTotal: %d runs\n", len(runs))
	fmt.Printf("\nTip: Use 'textiq history show <id>' to see dimension scores\n")

	return nil
}

// ShowAction prints the full detail of one stored run.
func ShowAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("run ID required\nUsage: textiq history show <run_id>\nExample: textiq history show 4f0c2d9e-8a31-4a6b-9f2e-1d5b7c3a9e10")
	}

	logger := common.NewLogger(c.String("log-level"), c.String("log-format"))
	cfg := models.LoadConfig(c.String("config"), logger)

	db, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer db.Close()

	id := c.Args().First()
	run, err := db.GetRun(c.Context, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w\nTip: Use 'textiq history list' to see stored runs", err)
	}
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	if format := c.String("format"); format == "json" || format == "yaml" {
		data, err := common.MarshalOutput(run, format)
		if err != nil {
			return fmt.Errorf("failed to format run: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	// Print run details
	fmt.Printf("Run %s\n", run.ID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Created:     %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Source:      %s\n", run.Source)
	fmt.Printf("Text hash:   %s\n", run.TextSHA256)
	fmt.Printf("Tokens:      %d\n", run.TokenCount)
	if run.IQEstimate == nil {
		fmt.Printf("Status:      rejected\n")
		if run.Error != "" {
			fmt.Printf("Reason:      %s\n", run.Error)
		}
		return nil
	}
	fmt.Printf("IQ estimate: %.1f\n", *run.IQEstimate)
	fmt.Printf("Confidence:  %.0f%%\n", run.Confidence)
	fmt.Printf("Method:      %s\n", run.Method)

	if len(run.Dimensions) > 0 {
		fmt.Printf("\nDimension scores:\n")
		fmt.Println(strings.Repeat("-", 60))
		names := make([]string, 0, len(run.Dimensions))
		for name := range run.Dimensions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-26s %.1f\n", name, run.Dimensions[name])
		}
	}

	return nil
}

// SummaryAction aggregates the stored runs.
func SummaryAction(c *cli.Context) error {
	logger := common.NewLogger(c.String("log-level"), c.String("log-format"))
	cfg := models.LoadConfig(c.String("config"), logger)

	db, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer db.Close()

	s, err := db.Summary(c.Context)
	if err != nil {
		return fmt.Errorf("failed to summarize runs: %w", err)
	}

	if s.Count == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	if format := c.String("format"); format == "json" || format == "yaml" {
		data, err := common.MarshalOutput(s, format)
		if err != nil {
			return fmt.Errorf("failed to format summary: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Run store: %s\n", db.Path())
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Runs:            %d total (%d valid, %d rejected)\n",
		s.Count, s.ValidCount, s.Count-s.ValidCount)
	if s.ValidCount > 0 {
		fmt.Printf("Mean estimate:   %.1f\n", s.MeanEstimate)
		fmt.Printf("Range:           %.1f to %.1f\n", s.MinEstimate, s.MaxEstimate)
		fmt.Printf("Mean confidence: %.0f%%\n", s.MeanConfidence)
	}

	if len(s.PerMethod) > 0 {
		fmt.Printf("\nRuns per method:\n")
		methods := make([]string, 0, len(s.PerMethod))
		for method := range s.PerMethod {
			methods = append(methods, method)
		}
		sort.Strings(methods)
		for _, method := range methods {
			name := method
			if name == "" {
				name = "(none)"
			}
			fmt.Printf("  %-16s %d\n", name, s.PerMethod[method])
		}
	}

	fmt.Printf("\nTip: Use 'textiq history list' to see individual runs\n")

	return nil
}
