package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentMergeDisjointNamespaces(t *testing.T) {
	doc := &Document{}
	doc.Merge(&Document{Summary: &Summary{TotalMessages: 3}})
	doc.Merge(&Document{Dynamics: &Dynamics{HealthScore: 75}})
	doc.Merge(nil)

	require.NotNil(t, doc.Summary)
	assert.Equal(t, 3, doc.Summary.TotalMessages)
	require.NotNil(t, doc.Dynamics)
	assert.Equal(t, 75.0, doc.Dynamics.HealthScore)
	assert.Nil(t, doc.TimePatterns)
}

func TestDocumentRoundTrip(t *testing.T) {
	snap := snapshotOf(alternating(12, testBase, time.Minute)...)

	doc := &Document{}
	for _, a := range []Analyzer{
		NewMessageAnalyzer(),
		NewTimeAnalyzer(0),
		NewUserAnalyzer(24 * time.Hour),
		NewContentAnalyzer(20, 0),
	} {
		partial, err := a.Analyze(context.Background(), snap)
		require.NoError(t, err)
		doc.Merge(partial)
	}

	data, err := doc.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc, restored)

	// Canonical serialization: identical input marshals to identical bytes.
	again, err := restored.Marshal()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestUnmarshalDocumentRejectsGarbage(t *testing.T) {
	_, err := UnmarshalDocument([]byte("{not json"))
	assert.Error(t, err)
}
