package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imamik/fluxtenancy/internal/provisioning"
)

// ApplyTimeout bounds a single test apply against the in-memory fakes.
const ApplyTimeout = 30 * time.Second

// TestContext returns a context cancelled after ApplyTimeout or when the test ends.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), ApplyTimeout)
	t.Cleanup(cancel)
	return ctx
}

// OutcomeOf returns the outcome recorded for id and fails the test when the
// report has no such node.
func OutcomeOf(t *testing.T, r *provisioning.Report, id provisioning.ID) provisioning.Outcome {
	t.Helper()
	require.NotNil(t, r, "report")
	res, ok := r.Result(id)
	require.True(t, ok, "no result for %s", id)
	return res.Outcome
}
