package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitVersionKey(t *testing.T) {
	rt, vid, ok := splitVersionKey("Patient/abc-123/4")
	assert.True(t, ok)
	assert.Equal(t, "Patient", rt)
	assert.Equal(t, "4", vid)
}

func TestSplitVersionKeyRejectsMalformed(t *testing.T) {
	_, _, ok := splitVersionKey("no-slashes-here")
	assert.False(t, ok)

	_, _, ok = splitVersionKey("Patient/onlyid")
	assert.False(t, ok)
}

func TestSplitVersionKeyWithCompositeID(t *testing.T) {
	// ids may themselves contain no slashes (FHIR ids are alphanumeric plus
	// '-'/'.'), but the helper should still split on the outermost pair.
	rt, vid, ok := splitVersionKey("Observation/obs-42/10")
	assert.True(t, ok)
	assert.Equal(t, "Observation", rt)
	assert.Equal(t, "10", vid)
}
