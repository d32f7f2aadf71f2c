package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/siting-cli/internal/suitability"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusQueued, "queued"},
		{RunStatusDeriving, "deriving"},
		{RunStatusClassifying, "classifying"},
		{RunStatusOverlaying, "overlaying"},
		{RunStatusExtracting, "extracting"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestStageStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status StageStatus
		want   string
	}{
		{StageStatusRunning, "running"},
		{StageStatusComplete, "complete"},
		{StageStatusFailed, "failed"},
		{StageStatusSkipped, "skipped"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestNewZone(t *testing.T) {
	t.Parallel()

	r := suitability.Region{
		ID:           2,
		FirstCell:    14,
		Cells:        []int{14, 15},
		CellCount:    2,
		AreaHectares: 0.18,
		MinValue:     4.6,
		MaxValue:     4.9,
		MeanValue:    4.75,
		Bounds:       suitability.Bounds{MinRow: 1, MinCol: 4, MaxRow: 1, MaxCol: 5},
	}
	z := NewZone("run-1", r, []byte{1, 2})
	assert.Equal(t, "run-1", z.RunID)
	assert.Equal(t, 2, z.RegionID)
	assert.Equal(t, 0.18, z.AreaHa)
	assert.Equal(t, r.Bounds, z.Bounds)

	data, err := json.Marshal(z)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "geometry")
	assert.Contains(t, string(data), `"area_ha":0.18`)
}
