package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"main/internal/model"
)

// Summary condenses an Analysis for human-readable output.
type Summary struct {
	Strategy   string
	Portfolios int
	Bonds      int
	TotalPrice float64
	WallClock  time.Duration
	MinJob     time.Duration
	MaxJob     time.Duration
	AvgJob     time.Duration
}

// Summarize folds an Analysis into its summary.
func Summarize(a model.Analysis) Summary {
	s := Summary{
		Strategy:   a.Strategy,
		Portfolios: len(a.Results),
		Bonds:      a.TotalBonds(),
		TotalPrice: a.TotalPrice(),
		WallClock:  time.Duration(a.RunEndNanos - a.RunStartNanos),
	}
	if len(a.Results) == 0 {
		return s
	}
	var sum time.Duration
	s.MinJob = time.Duration(math.MaxInt64)
	for _, r := range a.Results {
		d := time.Duration(r.EndNanos - r.StartNanos)
		sum += d
		if d < s.MinJob {
			s.MinJob = d
		}
		if d > s.MaxJob {
			s.MaxJob = d
		}
	}
	s.AvgJob = sum / time.Duration(len(a.Results))
	return s
}

// String renders the single-line run summary.
func (s Summary) String() string {
	return fmt.Sprintf("strategy=%s portfolios=%d bonds=%d total_price=%.4f wall=%v job_min=%v job_max=%v job_avg=%v",
		s.Strategy, s.Portfolios, s.Bonds, s.TotalPrice, s.WallClock, s.MinJob, s.MaxJob, s.AvgJob)
}

// Write persists the full analysis to disk as JSON.
func Write(path string, a model.Analysis) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Read loads a persisted analysis.
func Read(path string) (model.Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Analysis{}, err
	}
	var a model.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return model.Analysis{}, err
	}
	return a, nil
}

// ComparePrices checks that two runs over the same partition agree on every
// portfolio's valuation within tolerance. Result order is irrelevant.
func ComparePrices(expected, actual model.Analysis, tolerance float64) error {
	if len(expected.Results) != len(actual.Results) {
		return fmt.Errorf("result count mismatch: expected=%d actual=%d", len(expected.Results), len(actual.Results))
	}
	prices := make(map[int64]float64, len(expected.Results))
	for _, r := range expected.Results {
		prices[r.PortfID] = r.TotalPrice
	}
	for _, r := range actual.Results {
		want, ok := prices[r.PortfID]
		if !ok {
			return fmt.Errorf("unexpected portfolio %d in actual run", r.PortfID)
		}
		if math.Abs(want-r.TotalPrice) > tolerance {
			return fmt.Errorf("price mismatch for portfolio %d: expected=%v actual=%v", r.PortfID, want, r.TotalPrice)
		}
	}
	return nil
}
