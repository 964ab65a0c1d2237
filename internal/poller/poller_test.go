package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binday/internal/models"
)

var testIntervals = Intervals{Fast: time.Second, Medium: time.Minute, Long: time.Hour}

type fakeRefresher struct {
	mu       sync.Mutex
	initial  *models.CollectionState
	outcomes []models.Outcome
	calls    int
	prevs    []models.CollectionState
}

func (f *fakeRefresher) Initial(string) (models.CollectionState, bool) {
	if f.initial == nil {
		return models.CollectionState{}, false
	}
	return *f.initial, true
}

// Refresh replays outcomes in order and repeats the last one.
func (f *fakeRefresher) Refresh(_ context.Context, _ string, prev models.CollectionState) models.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.prevs = append(f.prevs, prev)
	i := f.calls
	f.calls++
	if i >= len(f.outcomes) {
		i = len(f.outcomes) - 1
	}
	out := f.outcomes[i]
	if out.Kind == models.NotModified {
		out.State = prev
	}
	return out
}

func (f *fakeRefresher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func resolved(token string) models.CollectionState {
	d := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	return models.CollectionState{
		PremisesID: "1001",
		Dates: map[models.Category]models.DateValue{
			models.General:   models.ResolvedDate(d),
			models.Recycling: models.ResolvedDate(d.AddDate(0, 0, 7)),
			models.Garden:    {Kind: models.NoCollection},
		},
		LastModified: token,
	}
}

func fresh(token string) models.Outcome {
	return models.Outcome{Kind: models.Fresh, State: resolved(token)}
}

func notModified() models.Outcome {
	return models.Outcome{Kind: models.NotModified}
}

func unavailable() models.Outcome {
	return models.Outcome{Kind: models.Unavailable, State: models.AwaitingState("1001")}
}

func TestInit_WithoutCacheRefreshesSynchronously(t *testing.T) {
	f := &fakeRefresher{outcomes: []models.Outcome{fresh("a")}}
	p := New("1001", f, testIntervals, nil)

	assert.Equal(t, Initializing, p.Phase())
	p.Init(context.Background())

	assert.Equal(t, 1, f.Calls())
	assert.Equal(t, "a", p.State().LastModified)
	assert.Equal(t, SteadyPoll, p.Phase())
	assert.Equal(t, testIntervals.Medium, p.Interval())
}

func TestInit_WithCacheSkipsRefresh(t *testing.T) {
	cached := resolved("cached")
	f := &fakeRefresher{initial: &cached, outcomes: []models.Outcome{fresh("a")}}
	p := New("1001", f, testIntervals, nil)

	p.Init(context.Background())
	p.Init(context.Background())

	assert.Zero(t, f.Calls())
	assert.Equal(t, "cached", p.State().LastModified)
	assert.Equal(t, SteadyPoll, p.Phase())
}

func TestInit_UnavailableStaysInFastPoll(t *testing.T) {
	f := &fakeRefresher{outcomes: []models.Outcome{unavailable()}}
	p := New("1001", f, testIntervals, nil)

	p.Init(context.Background())

	assert.Equal(t, StartupFastPoll, p.Phase())
	assert.Equal(t, testIntervals.Fast, p.Interval())
	assert.True(t, p.State().HasSentinels())
}

func TestPhaseTransitions(t *testing.T) {
	f := &fakeRefresher{outcomes: []models.Outcome{
		unavailable(), // init
		unavailable(),
		fresh("a"),
		notModified(),
		unavailable(),
		notModified(),
	}}
	p := New("1001", f, testIntervals, nil)
	ctx := context.Background()

	p.Init(ctx)
	assert.Equal(t, testIntervals.Fast, p.Interval())

	p.Tick(ctx)
	assert.Equal(t, StartupFastPoll, p.Phase())
	assert.Equal(t, testIntervals.Fast, p.Interval())

	p.Tick(ctx)
	assert.Equal(t, SteadyPoll, p.Phase())
	assert.Equal(t, testIntervals.Medium, p.Interval())

	p.Tick(ctx)
	assert.Equal(t, testIntervals.Long, p.Interval())

	// a failure that brings back sentinels never reverts to fast polling
	p.Tick(ctx)
	assert.Equal(t, SteadyPoll, p.Phase())
	assert.Equal(t, testIntervals.Long, p.Interval())
	assert.True(t, p.State().HasSentinels())

	p.Tick(ctx)
	assert.Equal(t, testIntervals.Long, p.Interval())
}

func TestSteadyFailureDoesNotCountAsCycle(t *testing.T) {
	fallback := models.Outcome{Kind: models.Fallback, State: resolved("a")}
	f := &fakeRefresher{outcomes: []models.Outcome{fresh("a"), fallback, notModified()}}
	p := New("1001", f, testIntervals, nil)
	ctx := context.Background()

	p.Init(ctx)
	require.Equal(t, testIntervals.Medium, p.Interval())

	p.Tick(ctx)
	assert.Equal(t, testIntervals.Medium, p.Interval())

	p.Tick(ctx)
	assert.Equal(t, testIntervals.Long, p.Interval())
}

func TestTick_NotModifiedKeepsState(t *testing.T) {
	f := &fakeRefresher{outcomes: []models.Outcome{fresh("a"), notModified()}}
	p := New("1001", f, testIntervals, nil)
	ctx := context.Background()
	p.Init(ctx)

	before := p.State()
	var notified int
	p.Subscribe(func(models.CollectionState) { notified++ })

	out := p.Tick(ctx)
	assert.Equal(t, models.NotModified, out.Kind)
	assert.Equal(t, before, p.State())
	assert.Zero(t, notified)

	kind, at := p.LastOutcome()
	assert.Equal(t, models.NotModified, kind)
	assert.False(t, at.IsZero())
}

func TestTick_PassesPreviousState(t *testing.T) {
	f := &fakeRefresher{outcomes: []models.Outcome{fresh("a"), fresh("b")}}
	p := New("1001", f, testIntervals, nil)
	ctx := context.Background()

	p.Init(ctx)
	p.Tick(ctx)

	require.Len(t, f.prevs, 2)
	assert.True(t, f.prevs[0].HasSentinels())
	assert.Equal(t, "a", f.prevs[1].LastModified)
}

func TestSubscribe(t *testing.T) {
	f := &fakeRefresher{outcomes: []models.Outcome{fresh("a"), fresh("b"), fresh("c")}}
	p := New("1001", f, testIntervals, nil)
	ctx := context.Background()

	var got []string
	unsubscribe := p.Subscribe(func(s models.CollectionState) {
		got = append(got, s.LastModified)
	})

	p.Init(ctx)
	p.Tick(ctx)
	unsubscribe()
	p.Tick(ctx)

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := &fakeRefresher{outcomes: []models.Outcome{unavailable()}}
	p := New("1001", f, Intervals{Fast: time.Millisecond, Medium: time.Hour, Long: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return f.Calls() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
