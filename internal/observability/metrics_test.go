package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting_AllFieldsBuilt(t *testing.T) {
	m := NewMetricsForTesting()

	assert.NotNil(t, m.FeedsFetched)
	assert.NotNil(t, m.FetchErrors)
	assert.NotNil(t, m.EntriesArchived)
	assert.NotNil(t, m.EntriesParsed)
	assert.NotNil(t, m.CandidatesBuilt)
	assert.NotNil(t, m.BatchesRun)
	assert.NotNil(t, m.BatchDuration)
	assert.NotNil(t, m.LastBatch)
	assert.NotNil(t, m.RowsBuilt)
	assert.NotNil(t, m.RowsDeduplicated)
	assert.NotNil(t, m.IncidentsRegistered)
	assert.NotNil(t, m.DuplicatesSkipped)
	assert.NotNil(t, m.IncidentsResolved)

	// Increments must not panic on unregistered collectors.
	m.FeedsFetched.Inc()
	m.FetchErrors.WithLabelValues("rss").Inc()
	m.BatchDuration.Observe(0.25)
}

func TestReadiness_Transitions(t *testing.T) {
	var r Readiness

	assert.False(t, r.Ready())
	r.SetReady()
	assert.True(t, r.Ready())
	r.SetNotReady()
	assert.False(t, r.Ready())
}
