package batch

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/textiq/internal/common"
	"github.com/dtnitsch/textiq/models"
	"github.com/dtnitsch/textiq/pkg/estimator"
	"github.com/dtnitsch/textiq/pkg/ingest"
	"github.com/dtnitsch/textiq/pkg/store"
)

// BatchAction estimates many inputs concurrently and prints an aggregate
// report. Inputs are positional arguments: files, URLs, or "-".
func BatchAction(c *cli.Context) error {
	logger := common.NewLogger(c.String("log-level"), c.String("log-format"))
	cfg := models.LoadConfig(c.String("config"), logger)
	startTime := time.Now()

	mode, err := common.ParseEstimateMode(c.String("mode"))
	if err != nil {
		return err
	}

	args := c.Args().Slice()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no inputs provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  textiq batch essays/*.txt")
		fmt.Fprintln(os.Stderr, "  textiq batch https://example.com/post-1 https://example.com/post-2")
		return cli.Exit("", 1)
	}

	inputs, invalid := common.CleanInputs(args)
	if len(invalid) > 0 {
		fmt.Fprintf(os.Stderr, "Error: %d input(s) are malformed:\n", len(invalid))
		for _, bad := range invalid {
			fmt.Fprintf(os.Stderr, "  - %s\n", bad)
		}
		return cli.Exit("", 1)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no usable inputs after cleanup")
	}

	est, err := estimator.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build estimator: %w", err)
	}
	defer est.Close()

	resolver := ingest.NewResolver(logger)

	var database *store.DB
	if c.Bool("save") {
		database, err = store.Open(cfg.Store.Path, logger)
		if err != nil {
			return fmt.Errorf("failed to open run store: %w", err)
		}
		defer database.Close()
	}

	allResults := run(c.Context, logger, inputs, c.Int("workers"), mode, est, resolver, database)

	out := FinalOutput{Status: "success"}
	stats := Stats{TotalInputs: len(inputs)}
	sum := 0.0
	for _, r := range allResults {
		ro := ResultOutput{Source: r.Source, RunID: r.RunID}
		switch {
		case r.Err != nil:
			stats.Failed++
			ro.Status = "failed"
			ro.Error = r.Err.Error()
			ro.ErrorType = r.ErrType
		case r.Estimate == nil || !r.Estimate.IsValid:
			stats.Rejected++
			ro.Status = "rejected"
			if r.Estimate != nil {
				ro.Error = r.Estimate.Error
			}
		default:
			stats.Estimated++
			ro.Status = "estimated"
			iq, _ := r.Estimate.Estimate()
			v := iq
			ro.IQEstimate = &v
			ro.Confidence = r.Estimate.Confidence
			ro.Method = r.Estimate.Method
			sum += iq
		}
		out.Results = append(out.Results, ro)
	}
	if stats.Estimated > 0 {
		stats.MeanEstimate = sum / float64(stats.Estimated)
	}
	stats.TotalTimeSeconds = time.Since(startTime).Seconds()
	out.Stats = stats
	if stats.Failed > 0 || stats.Rejected > 0 {
		out.Status = "partial_failure"
	}

	format := strings.ToLower(c.String("format"))
	switch format {
	case "json", "yaml":
		data, err := common.MarshalOutput(out, format)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Println(string(data))
	default:
		printReport(out)
	}

	if stats.Failed == stats.TotalInputs {
		return cli.Exit("", 2)
	}
	if stats.Failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func printReport(out FinalOutput) {
	s := out.Stats
	fmt.Printf("Batch: %d/%d estimated, %d rejected, %d failed (%.1fs)\n",
		s.Estimated, s.TotalInputs, s.Rejected, s.Failed, s.TotalTimeSeconds)

	for _, r := range out.Results {
		switch r.Status {
		case "estimated":
			fmt.Printf("  ok    %-40s IQ %.1f (confidence %.0f%%)\n", r.Source, *r.IQEstimate, r.Confidence)
		case "rejected":
			fmt.Printf("  skip  %-40s %s\n", r.Source, r.Error)
		default:
			fmt.Printf("  fail  %-40s %s\n", r.Source, r.Error)
		}
	}

	if s.Estimated > 1 {
		fmt.Printf("Mean estimate: %.1f\n", s.MeanEstimate)
	}
}
