package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusProcessing, false},
		{StatusProcessing, StatusProcessing, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestAnalysisValidate(t *testing.T) {
	var nilAnalysis *Analysis
	assert.ErrorIs(t, nilAnalysis.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, (&Analysis{VideoName: "a.mp4", Status: StatusPending}).Validate(), ErrInvalidInput)
	assert.ErrorIs(t, (&Analysis{ID: "x", VideoName: " ", Status: StatusPending}).Validate(), ErrInvalidInput)
	assert.ErrorIs(t, (&Analysis{ID: "x", VideoName: "a.mp4", Status: "queued"}).Validate(), ErrInvalidInput)
	assert.NoError(t, (&Analysis{ID: "x", VideoName: "a.mp4", Status: StatusPending}).Validate())
}

func TestProcessedVideoName(t *testing.T) {
	assert.Equal(t, "rally_processed.mp4", ProcessedVideoName("rally.mov"))
	assert.Equal(t, "match.final_processed.mp4", ProcessedVideoName("match.final.mp4"))
	assert.Equal(t, "serve_processed.mp4", ProcessedVideoName("serve"))
	assert.Equal(t, "video_processed.mp4", ProcessedVideoName(""))
}
