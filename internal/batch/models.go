package batch

import "github.com/dtnitsch/textiq/models"

// Job is one input argument queued for a worker. Index preserves the
// caller's argument order through the pool.
type Job struct {
	Index  int
	Source string
}

// Result holds the outcome of one processed input.
type Result struct {
	Index    int
	Source   string
	RunID    string
	Estimate *models.EstimateResult
	Err      error
	ErrType  string
}

// ResultOutput is the rendered form of one result.
type ResultOutput struct {
	Source     string   `json:"source" yaml:"source"`
	Status     string   `json:"status" yaml:"status"`
	IQEstimate *float64 `json:"iq_estimate,omitempty" yaml:"iq_estimate,omitempty"`
	Confidence float64  `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Method     string   `json:"method,omitempty" yaml:"method,omitempty"`
	RunID      string   `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorType  string   `json:"error_type,omitempty" yaml:"error_type,omitempty"`
}

// Stats aggregates one batch invocation.
type Stats struct {
	TotalInputs      int     `json:"total_inputs" yaml:"total_inputs"`
	Estimated        int     `json:"estimated" yaml:"estimated"`
	Rejected         int     `json:"rejected" yaml:"rejected"`
	Failed           int     `json:"failed" yaml:"failed"`
	MeanEstimate     float64 `json:"mean_estimate,omitempty" yaml:"mean_estimate,omitempty"`
	TotalTimeSeconds float64 `json:"total_time_seconds" yaml:"total_time_seconds"`
}

// FinalOutput is the whole-batch payload.
type FinalOutput struct {
	Status  string         `json:"status" yaml:"status"`
	Results []ResultOutput `json:"results" yaml:"results"`
	Stats   Stats          `json:"stats" yaml:"stats"`
}
