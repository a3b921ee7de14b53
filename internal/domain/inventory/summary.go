// Package inventory aggregates the instance list into a summary.
package inventory

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/archive"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

// Sizer measures an instance directory
type Sizer func(ctx context.Context, dir string) (archive.Usage, error)

// SizeStats describes the distribution of instance sizes in bytes
type SizeStats struct {
	Measured int     `json:"measured"`
	Total    float64 `json:"total_bytes"`
	Mean     float64 `json:"mean_bytes"`
	Median   float64 `json:"median_bytes"`
	P90      float64 `json:"p90_bytes"`
	Max      float64 `json:"max_bytes"`
	StdDev   float64 `json:"stddev_bytes"`
	Largest  string  `json:"largest,omitempty"`
}

// Summary describes the listed instances
type Summary struct {
	Generation string              `json:"generation"`
	Total      int                 `json:"total"`
	Groups     map[string][]string `json:"groups"`
	Types      map[string]int      `json:"types"`
	Sizes      *SizeStats          `json:"sizes,omitempty"`
}

// Summarize groups instances by group and type. When sizer is non-nil each
// instance directory is measured; instances that cannot be measured are
// logged and left out of the size statistics.
func Summarize(ctx context.Context, generation string, instances []*types.Instance, sizer Sizer, logger *zap.Logger) Summary {
	if logger == nil {
		logger = zap.NewNop()
	}

	summary := Summary{
		Generation: generation,
		Total:      len(instances),
		Groups:     make(map[string][]string),
		Types:      make(map[string]int),
	}

	for _, inst := range instances {
		view := inst.View()
		summary.Groups[view.Group] = append(summary.Groups[view.Group], view.ID)
		summary.Types[view.Type]++
	}
	for _, ids := range summary.Groups {
		sort.Strings(ids)
	}

	if sizer == nil {
		return summary
	}

	var (
		sizes []float64
		names []string
	)
	for _, inst := range instances {
		if ctx.Err() != nil {
			break
		}
		usage, err := sizer(ctx, inst.Dir())
		if err != nil {
			logger.Warn("Failed to measure instance", zap.String("id", inst.ID()), zap.Error(err))
			continue
		}
		sizes = append(sizes, float64(usage.Bytes))
		names = append(names, inst.ID())
	}
	summary.Sizes = sizeStats(sizes, names)

	return summary
}

func sizeStats(sizes []float64, names []string) *SizeStats {
	if len(sizes) == 0 {
		return &SizeStats{}
	}

	out := &SizeStats{
		Measured: len(sizes),
		Total:    floats.Sum(sizes),
		Mean:     stat.Mean(sizes, nil),
		Max:      floats.Max(sizes),
		Largest:  names[floats.MaxIdx(sizes)],
	}
	if len(sizes) > 1 {
		out.StdDev = stat.StdDev(sizes, nil)
	}

	sorted := make([]float64, len(sizes))
	copy(sorted, sizes)
	sort.Float64s(sorted)
	out.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	out.P90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)

	return out
}
