package export

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerRows(t *testing.T) {
	rows := ContainerRows(buildTestPlan())
	require.Len(t, rows, 3)

	u1 := rows[0]
	assert.Equal(t, "U1", u1.ID)
	assert.Equal(t, 2, u1.Items)
	assert.InDelta(t, 1500, u1.Used, 1e-9)
	assert.InDelta(t, 0.75, u1.Fill, 1e-9)
	assert.InDelta(t, 6, u1.Load, 1e-9)
	assert.InDelta(t, 0.06, u1.WeightFill, 1e-9)
	assert.True(t, u1.Priority)
	require.True(t, u1.HasCOM)
	// A centred at x=5 with weight 4, B at x=15 with weight 2
	assert.InDelta(t, (5*4+15*2)/6.0, u1.COM[0], 1e-9)

	assert.False(t, rows[1].Priority)
	assert.Zero(t, rows[2].Items)
	assert.False(t, rows[2].HasCOM)
}

func TestComputeFillStats(t *testing.T) {
	st := ComputeFillStats(ContainerRows(buildTestPlan()))

	assert.Equal(t, 2, st.Used)
	assert.Equal(t, 1, st.Empty)
	assert.InDelta(t, 0.625, st.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(0.03125), st.StdDev, 1e-9)
	assert.InDelta(t, 0.5, st.Min, 1e-9)
	assert.InDelta(t, 0.75, st.Max, 1e-9)
	assert.GreaterOrEqual(t, st.Median, st.Min)
	assert.LessOrEqual(t, st.Median, st.Max)
	// U1 carries 6 kg at 75%, U2 3 kg at 50%
	assert.InDelta(t, (0.75*6+0.5*3)/9, st.WeightedMean, 1e-9)
}

func TestComputeFillStats_Degenerate(t *testing.T) {
	assert.Equal(t, FillStats{}, ComputeFillStats(nil))

	rows := ContainerRows(buildTestPlan())[1:2]
	st := ComputeFillStats(rows)
	assert.Equal(t, 1, st.Used)
	assert.Zero(t, st.StdDev)
	assert.InDelta(t, 0.5, st.Median, 1e-9)
}
