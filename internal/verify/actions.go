package verify

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/textiq/internal/common"
	"github.com/dtnitsch/textiq/models"
	"github.com/dtnitsch/textiq/pkg/estimator"
	"github.com/dtnitsch/textiq/pkg/evaluation"
	"github.com/dtnitsch/textiq/pkg/preprocess"
	"github.com/dtnitsch/textiq/pkg/samples"
)

type sampleReport struct {
	IQ       int      `json:"iq" yaml:"iq"`
	Topic    string   `json:"topic,omitempty" yaml:"topic,omitempty"`
	Estimate *float64 `json:"estimate" yaml:"estimate"`
	AbsError float64  `json:"abs_error" yaml:"abs_error"`
	Within   bool     `json:"within" yaml:"within"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}

type report struct {
	Samples      int                 `json:"samples" yaml:"samples"`
	Scored       int                 `json:"scored" yaml:"scored"`
	Rejected     int                 `json:"rejected" yaml:"rejected"`
	Tolerance    float64             `json:"tolerance_pts" yaml:"tolerance_pts"`
	WithinCount  int                 `json:"within_count" yaml:"within_count"`
	WithinRate   float64             `json:"within_rate" yaml:"within_rate"`
	AverageError float64             `json:"average_error" yaml:"average_error"`
	Metrics      *evaluation.Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Results      []sampleReport      `json:"results" yaml:"results"`
}

// VerifyAction estimates every graded sample in a reference file and
// reports how closely the estimates track the expected levels.
func VerifyAction(c *cli.Context) error {
	logger := common.NewLogger(c.String("log-level"), c.String("log-format"))
	cfg := models.LoadConfig(c.String("config"), logger)

	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("no samples file provided (usage: textiq verify samples.json)")
	}

	all, err := samples.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load samples: %w", err)
	}
	stats := samples.Stats(all)
	logger.Info("loaded graded samples",
		"path", path,
		"samples", stats.Total,
		"levels", len(stats.IQLevels))

	est, err := estimator.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build estimator: %w", err)
	}
	defer est.Close()

	workers := c.Int("workers")
	if workers <= 0 {
		workers = 4
	}

	g, gctx := errgroup.WithContext(c.Context)
	g.SetLimit(workers)
	estimates := make([]*models.EstimateResult, len(all))
	for i, s := range all {
		i, s := i, s
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			logger.Debug("estimating sample", "index", i, "iq", s.IQ, "topic", s.Topic)
			estimates[i] = est.Estimate(gctx, s.Text, preprocess.ModeProse)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("verification aborted: %w", err)
	}

	tolerance := c.Float64("within")
	if tolerance <= 0 {
		tolerance = 15
	}

	rep := report{
		Samples:   len(all),
		Tolerance: tolerance,
		Results:   make([]sampleReport, 0, len(all)),
	}
	var yTrue, yPred []float64
	var errorSum float64
	for i, s := range all {
		row := sampleReport{IQ: s.IQ, Topic: s.Topic}
		res := estimates[i]
		if res == nil || !res.IsValid {
			rep.Rejected++
			if res != nil {
				row.Error = res.Error
			}
			rep.Results = append(rep.Results, row)
			continue
		}
		rep.Scored++
		row.Estimate = res.IQEstimate
		row.AbsError = math.Abs(*res.IQEstimate - float64(s.IQ))
		row.Within = row.AbsError <= tolerance
		if row.Within {
			rep.WithinCount++
		}
		errorSum += row.AbsError
		yTrue = append(yTrue, float64(s.IQ))
		yPred = append(yPred, *res.IQEstimate)
		rep.Results = append(rep.Results, row)
	}

	if rep.Scored > 0 {
		rep.WithinRate = 100 * float64(rep.WithinCount) / float64(rep.Scored)
		rep.AverageError = errorSum / float64(rep.Scored)
		if m, err := evaluation.Compute(yTrue, yPred); err == nil {
			rep.Metrics = &m
		}
	}
	logger.Info("verification complete",
		"scored", rep.Scored,
		"rejected", rep.Rejected,
		"within", rep.WithinCount,
		"avg_error", rep.AverageError)

	switch format := c.String("format"); format {
	case "json", "yaml":
		data, err := common.MarshalOutput(rep, format)
		if err != nil {
			return fmt.Errorf("failed to format report: %w", err)
		}
		fmt.Println(string(data))
	default:
		printReport(path, stats, rep)
	}

	if rep.Scored == 0 {
		fmt.Fprintln(os.Stderr, "Error: no sample produced a usable estimate")
		return cli.Exit("", 2)
	}
	return nil
}

func printReport(path string, stats samples.Statistics, rep report) {
	fmt.Printf("Calibration check: %d graded samples across %d levels (%s)\n",
		stats.Total, len(stats.IQLevels), path)
	fmt.Println(strings.Repeat("=", 50))
	for _, row := range rep.Results {
		if row.Estimate == nil {
			reason := row.Error
			if reason == "" {
				reason = "no estimate"
			}
			fmt.Printf("- IQ %3d → rejected: %s\n", row.IQ, reason)
			continue
		}
		status := "✗"
		if row.Within {
			status = "✓"
		}
		fmt.Printf("%s IQ %3d → %5.1f | %4.1f pts\n", status, row.IQ, *row.Estimate, row.AbsError)
	}
	fmt.Println(strings.Repeat("=", 50))
	if rep.Scored == 0 {
		fmt.Println("Result: nothing scored, every sample was rejected")
		return
	}
	fmt.Printf("Result: %d/%d within ±%g (%.0f%%)\n", rep.WithinCount, rep.Scored, rep.Tolerance, rep.WithinRate)
	fmt.Printf("Average error: %.2f points\n", rep.AverageError)
	if rep.Metrics != nil {
		fmt.Println()
		fmt.Println("Agreement:")
		fmt.Printf("  MAE      %7.2f\n", rep.Metrics.MAE)
		fmt.Printf("  MSE      %7.2f\n", rep.Metrics.MSE)
		fmt.Printf("  RMSE     %7.2f\n", rep.Metrics.RMSE)
		fmt.Printf("  R2       %7.3f\n", rep.Metrics.R2)
		fmt.Printf("  Pearson  %7.3f\n", rep.Metrics.PearsonR)
		fmt.Printf("  Spearman %7.3f\n", rep.Metrics.SpearmanRho)
	}
	if rep.Rejected > 0 {
		fmt.Printf("\nRejected: %d of %d samples (see log for reasons)\n", rep.Rejected, rep.Samples)
	}
}
