package provisioning

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_ResolvesInDependencyOrder(t *testing.T) {
	t.Parallel()

	g := NewGraph()
	key, err := Declare(g, Spec{ID: "ai-team-private-key", Kind: "private-key", Scope: "tenant/ai-team"}, constant("pem", OutcomeCreated))
	require.NoError(t, err)
	secret, err := Declare(g, Spec{ID: "ai-team-flux-secret", Kind: "secret", Scope: "tenant/ai-team", DependsOn: []Ref{key}},
		func(_ context.Context, in *Inputs) (string, Outcome, error) {
			pem, err := Resolve(in, key)
			if err != nil {
				return "", OutcomeFailed, err
			}
			return "secret:" + pem, OutcomeCreated, nil
		})
	require.NoError(t, err)

	obs := &recordingObserver{}
	report, err := NewExecutor(WithObserver(obs)).Execute(context.Background(), g)
	require.NoError(t, err)

	v, ok := secret.Value()
	require.True(t, ok)
	assert.Equal(t, "secret:pem", v)

	assert.Equal(t, map[Outcome]int{OutcomeCreated: 2}, report.Counts())
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
	assert.Len(t, obs.ofType(EventRunStarted), 1)
	assert.Len(t, obs.ofType(EventNodeCompleted), 2)
	assert.Len(t, obs.ofType(EventRunCompleted), 1)
}

func TestExecutor_FailureSkipsDependents(t *testing.T) {
	t.Parallel()

	boom := errors.New("github unavailable")
	g := NewGraph()
	repo, err := Declare(g, Spec{ID: "workspace-admin-repository", Kind: "repository", Scope: "system"},
		func(context.Context, *Inputs) (string, Outcome, error) {
			return "", OutcomeFailed, boom
		})
	require.NoError(t, err)
	sys, err := DeclareComponent(g, Spec{ID: "system", Kind: "component", Scope: "system", DependsOn: []Ref{repo}})
	require.NoError(t, err)
	_, err = Declare(g, Spec{ID: "ai-team-repository", Kind: "repository", Scope: "tenant/ai-team", DependsOn: []Ref{sys}},
		constant("", OutcomeCreated))
	require.NoError(t, err)
	independent, err := Declare(g, Spec{ID: "unrelated", Kind: "namespace", Scope: "other"}, constant("ok", OutcomeUnchanged))
	require.NoError(t, err)

	obs := &recordingObserver{}
	report, err := NewExecutor(WithObserver(obs)).Execute(context.Background(), g)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var rerr *ResourceError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ID("workspace-admin-repository"), rerr.ID)
	assert.Equal(t, "system", rerr.Scope)

	res, ok := report.Result("ai-team-repository")
	require.True(t, ok)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.ErrorIs(t, res.Err(), ErrDependencyNotReady)

	sysRes, _ := report.Result("system")
	assert.Equal(t, OutcomeSkipped, sysRes.Outcome)

	_, ok = independent.Value()
	assert.True(t, ok, "nodes outside the failed subgraph still run")

	assert.Len(t, report.Failed(), 1)
	assert.Len(t, report.Skipped(), 2)
	assert.False(t, report.ScopeSucceeded("tenant/ai-team"))
	assert.True(t, report.ScopeSucceeded("other"))
	assert.Len(t, obs.ofType(EventNodeSkipped), 2)
	assert.Len(t, obs.ofType(EventNodeFailed), 1)
}

func TestExecutor_CancelledContextSkips(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	g := NewGraph()
	_, err := Declare(g, Spec{ID: "a"}, func(context.Context, *Inputs) (int, Outcome, error) {
		ran.Add(1)
		return 0, OutcomeCreated, nil
	})
	require.NoError(t, err)

	report, err := NewExecutor().Execute(ctx, g)
	require.NoError(t, err, "skipped nodes are not failures")
	assert.Zero(t, ran.Load())
	res, _ := report.Result("a")
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.ErrorIs(t, res.Err(), context.Canceled)
}

func TestExecutor_Parallelism(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	g := NewGraph()
	for _, id := range []ID{"a", "b", "c", "d", "e", "f"} {
		_, err := Declare(g, Spec{ID: id}, func(context.Context, *Inputs) (int, Outcome, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			running.Add(-1)
			return 0, OutcomeUnchanged, nil
		})
		require.NoError(t, err)
	}

	report, err := NewExecutor(WithParallelism(2)).Execute(context.Background(), g)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 6, report.Counts()[OutcomeUnchanged])
}

func TestExecutor_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	g := NewGraph()
	a, err := Declare(g, Spec{ID: "a", Kind: "repository"}, constant(0, OutcomeCreated))
	require.NoError(t, err)
	_, err = Declare(g, Spec{ID: "b", Kind: "repository"}, func(context.Context, *Inputs) (int, Outcome, error) {
		return 0, OutcomeFailed, errors.New("boom")
	})
	require.NoError(t, err)
	_, err = DeclareComponent(g, Spec{ID: "c", Kind: "component", DependsOn: []Ref{a}})
	require.NoError(t, err)

	_, err = NewExecutor(WithMetrics(m)).Execute(context.Background(), g)
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.nodesTotal.WithLabelValues("repository", "created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.nodesTotal.WithLabelValues("repository", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runFailedNodes))
	assert.Equal(t, 2, testutil.CollectAndCount(m.nodesTotal, "fluxtenancy_executor_resources_total"),
		"component nodes are not counted")
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()
	var m *Metrics
	assert.NotPanics(t, func() {
		m.recordNode("repository", OutcomeCreated, 0)
		m.recordRun(&Report{})
	})
}
