package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/archive"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

func instances() []*types.Instance {
	a := types.NewInstance("a", "/a", types.InstanceMeta{Type: types.TypeOneSix})
	b := types.NewInstance("b", "/b", types.InstanceMeta{})
	c := types.NewInstance("c", "/c", types.InstanceMeta{Type: types.TypeOneSix})
	d := types.NewInstance("d", "/d", types.InstanceMeta{})
	a.SetGroup("Modded")
	c.SetGroup("Modded")
	return []*types.Instance{c, a, b, d}
}

func TestSummarizeGroupsAndTypes(t *testing.T) {
	summary := Summarize(context.Background(), "gen_1", instances(), nil, nil)

	assert.Equal(t, "gen_1", summary.Generation)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, map[string][]string{
		"":       {"b", "d"},
		"Modded": {"a", "c"},
	}, summary.Groups)
	assert.Equal(t, map[string]int{types.TypeOneSix: 2, types.TypeLegacy: 2}, summary.Types)
	assert.Nil(t, summary.Sizes)
}

func TestSummarizeSizes(t *testing.T) {
	sizes := map[string]int64{"/a": 100, "/b": 200, "/c": 300, "/d": 1000}
	sizer := func(_ context.Context, dir string) (archive.Usage, error) {
		if dir == "/d" {
			return archive.Usage{}, errors.New("permission denied")
		}
		return archive.Usage{Bytes: sizes[dir]}, nil
	}

	summary := Summarize(context.Background(), "", instances(), sizer, nil)

	require.NotNil(t, summary.Sizes)
	assert.Equal(t, 3, summary.Sizes.Measured)
	assert.InDelta(t, 600, summary.Sizes.Total, 1e-9)
	assert.InDelta(t, 200, summary.Sizes.Mean, 1e-9)
	assert.InDelta(t, 200, summary.Sizes.Median, 1e-9)
	assert.InDelta(t, 300, summary.Sizes.Max, 1e-9)
	assert.InDelta(t, 100, summary.Sizes.StdDev, 1e-9)
	assert.Equal(t, "c", summary.Sizes.Largest)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(context.Background(), "", nil, func(context.Context, string) (archive.Usage, error) {
		return archive.Usage{}, nil
	}, nil)

	assert.Zero(t, summary.Total)
	assert.Empty(t, summary.Groups)
	require.NotNil(t, summary.Sizes)
	assert.Zero(t, summary.Sizes.Measured)
}
