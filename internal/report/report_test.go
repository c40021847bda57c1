package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"main/internal/model"
)

func sampleAnalysis() model.Analysis {
	return model.Analysis{
		Strategy:  "memory",
		Partition: model.Partition{N: 2, Begin: 1},
		Results: []model.Result{
			{PortfID: 1, TotalPrice: 100.5, BondCount: 2, StartNanos: 1_000, EndNanos: 3_000},
			{PortfID: 2, TotalPrice: 99.25, BondCount: 1, StartNanos: 2_000, EndNanos: 6_000},
		},
		RunStartNanos: 0,
		RunEndNanos:   10_000,
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleAnalysis())
	require.Equal(t, "memory", s.Strategy)
	require.Equal(t, 2, s.Portfolios)
	require.Equal(t, 3, s.Bonds)
	require.InDelta(t, 199.75, s.TotalPrice, 1e-9)
	require.Equal(t, int64(10_000), int64(s.WallClock))
	require.Equal(t, int64(2_000), int64(s.MinJob))
	require.Equal(t, int64(4_000), int64(s.MaxJob))
	require.Equal(t, int64(3_000), int64(s.AvgJob))
	require.True(t, strings.Contains(s.String(), "strategy=memory"))
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(model.Analysis{Strategy: "fine"})
	require.Equal(t, 0, s.Portfolios)
	require.Zero(t, s.MinJob)
	require.Zero(t, s.MaxJob)
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	a := sampleAnalysis()
	require.NoError(t, Write(path, a))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, a, got)
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestComparePrices(t *testing.T) {
	a := sampleAnalysis()
	b := sampleAnalysis()
	// Completion order differs between runs; only prices per portfolio matter.
	b.Results[0], b.Results[1] = b.Results[1], b.Results[0]
	require.NoError(t, ComparePrices(a, b, 1e-9))

	b.Results[0].TotalPrice += 0.01
	require.Error(t, ComparePrices(a, b, 1e-9))

	c := sampleAnalysis()
	c.Results = c.Results[:1]
	require.Error(t, ComparePrices(a, c, 1e-9))

	d := sampleAnalysis()
	d.Results[1].PortfID = 42
	require.Error(t, ComparePrices(a, d, 1e-9))
}
