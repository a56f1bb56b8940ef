package planner

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/chunked/chunktypes"
	"github.com/input-output-hk/catalyst-forge-libs/chunked/errors"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name     string
		fileSize int64
		partSize int64
		want     []chunktypes.Range
	}{
		{
			name:     "uneven last part",
			fileSize: 100,
			partSize: 30,
			want: []chunktypes.Range{
				{Offset: 0, End: 30},
				{Offset: 30, End: 60},
				{Offset: 60, End: 90},
				{Offset: 90, End: 100},
			},
		},
		{
			name:     "exact multiple",
			fileSize: 90,
			partSize: 30,
			want: []chunktypes.Range{
				{Offset: 0, End: 30},
				{Offset: 30, End: 60},
				{Offset: 60, End: 90},
			},
		},
		{
			name:     "single short part",
			fileSize: 10,
			partSize: 30,
			want:     []chunktypes.Range{{Offset: 0, End: 10}},
		},
		{
			name:     "zero byte file",
			fileSize: 0,
			partSize: 30,
			want:     []chunktypes.Range{{Offset: 0, End: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(tt.fileSize, tt.partSize)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), Count(tt.fileSize, tt.partSize))
		})
	}
}

func TestPlan_InvalidInput(t *testing.T) {
	_, err := Plan(-1, 10)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = Plan(10, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = Plan(10, -5)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

// Ranges must cover [0, fileSize) contiguously for any sizes.
func TestPlan_Partition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		fileSize := rng.Int63n(1 << 20)
		partSize := rng.Int63n(1<<16) + 1

		ranges, err := Plan(fileSize, partSize)
		require.NoError(t, err)
		require.NotEmpty(t, ranges)
		require.Equal(t, Count(fileSize, partSize), len(ranges))

		var next int64
		for j, r := range ranges {
			assert.Equal(t, next, r.Offset, "range %d starts after a gap or overlap", j)
			assert.LessOrEqual(t, r.Size(), partSize)
			if j < len(ranges)-1 {
				assert.Equal(t, partSize, r.Size(), "only the last range may be short")
			}
			next = r.End
		}
		assert.Equal(t, fileSize, next)
	}
}

func TestVerify(t *testing.T) {
	ranges, err := Plan(100, 30)
	require.NoError(t, err)

	assert.NoError(t, Verify(ranges, 4))

	err = Verify(ranges, 5)
	require.Error(t, err)
	assert.True(t, errors.IsConsistency(err))
}

func TestPlanSession(t *testing.T) {
	session := &chunktypes.UploadSession{ID: "S1", PartSize: 30, TotalParts: 4}

	ranges, err := PlanSession(session, 100)
	require.NoError(t, err)
	assert.Len(t, ranges, 4)

	session.TotalParts = 3
	_, err = PlanSession(session, 100)
	require.Error(t, err)
	assert.True(t, errors.IsConsistency(err))
	assert.Contains(t, err.Error(), "session S1")
	assert.Contains(t, err.Error(), "planned 4 parts, session expects 3")
}
