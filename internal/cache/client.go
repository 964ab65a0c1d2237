package cache

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"binday/internal/analyzer"
	"binday/internal/api"
	"binday/internal/models"
)

// FeedClient is the part of api.Client used for refreshes.
type FeedClient interface {
	ProbeJobs(ctx context.Context) (api.Probe, error)
	GetJobs(ctx context.Context, premisesID string) ([]models.ScheduleRow, string, error)
}

// CachedClient wraps the schedule feed with conditional fetching and a
// durable fallback
type CachedClient struct {
	client FeedClient
	store  *Store
	log    *slog.Logger
	now    func() time.Time
}

// NewCachedClient creates a caching wrapper around the feed client. now
// supplies the clock used to resolve dates; nil means time.Now.
func NewCachedClient(client FeedClient, store *Store, log *slog.Logger, now func() time.Time) *CachedClient {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &CachedClient{client: client, store: store, log: log, now: now}
}

// Refresh runs one probe/download cycle for premisesID. It never returns an
// error: failures are folded into a Fallback or Unavailable outcome.
func (cc *CachedClient) Refresh(ctx context.Context, premisesID string, prev models.CollectionState) models.Outcome {
	log := cc.log.With("premises_id", premisesID)

	// 1. Probe headers only
	probe, err := cc.client.ProbeJobs(ctx)
	if err != nil {
		log.Warn("probe failed", "kind", api.KindOf(err), "err", err)
		return cc.fallback(premisesID, prev, err)
	}

	probeTime, err := http.ParseTime(probe.LastModified)
	if err != nil {
		err = &api.FetchError{Kind: api.FailMissingHeader, Op: "probe", Err: err}
		log.Warn("probe returned unparsable Last-Modified", "value", probe.LastModified, "err", err)
		return cc.fallback(premisesID, prev, err)
	}

	// 2. Skip the download unless the feed is strictly newer
	if !isNewer(probeTime, prev.LastModified) {
		log.Debug("schedule feed not modified", "last_modified", probe.LastModified)
		return models.Outcome{Kind: models.NotModified, State: prev}
	}

	// 3. Full download
	log.Info("refreshing waste collection data",
		"last_modified", probe.LastModified,
		"age", humanize.Time(probeTime),
		"size", sizeOf(probe.ContentLength))
	rows, downloadToken, err := cc.client.GetJobs(ctx, premisesID)
	if err != nil {
		log.Warn("download failed", "kind", api.KindOf(err), "err", err)
		return cc.fallback(premisesID, prev, err)
	}

	token := probe.LastModified
	if t, err := http.ParseTime(downloadToken); err == nil && t.After(probeTime) {
		token = downloadToken
	}

	// 4. Resolve and persist
	now := cc.now()
	state := models.CollectionState{
		PremisesID:   premisesID,
		Dates:        analyzer.Resolve(rows, now),
		Rows:         rows,
		LastModified: token,
		UpdatedAt:    now,
	}
	if err := cc.store.Save(premisesID, EntryFromState(state)); err != nil {
		log.Warn("failed to save cache", "err", err)
	}

	log.Info("next collection dates", datesAttrs(state.Dates)...)
	return models.Outcome{Kind: models.Fresh, State: state}
}

// fallback prefers the durable cache over the in-memory state, and the
// in-memory state over the awaiting-data placeholder.
func (cc *CachedClient) fallback(premisesID string, prev models.CollectionState, cause error) models.Outcome {
	now := cc.now()

	if e, ok := cc.store.Load(premisesID); ok {
		state := cc.store.State(e, now)
		cc.log.Info("using cached collection data", "premises_id", premisesID, "saved", humanize.Time(e.SavedAt))
		return models.Outcome{Kind: models.Fallback, State: state, Err: cause}
	}

	if prev.Dates != nil && !prev.HasSentinels() {
		return models.Outcome{Kind: models.Fallback, State: prev, Err: cause}
	}

	state := models.AwaitingState(premisesID)
	state.LastModified = prev.LastModified
	return models.Outcome{Kind: models.Unavailable, State: state, Err: cause}
}

// Initial loads the cached state for premisesID, if any.
func (cc *CachedClient) Initial(premisesID string) (models.CollectionState, bool) {
	e, ok := cc.store.Load(premisesID)
	if !ok {
		return models.CollectionState{}, false
	}
	return cc.store.State(e, cc.now()), true
}

// isNewer reports whether t is strictly after the stored token. A missing
// or unparsable stored token is older than anything.
func isNewer(t time.Time, stored string) bool {
	if stored == "" {
		return true
	}
	prev, err := http.ParseTime(stored)
	if err != nil {
		return true
	}
	return t.After(prev)
}

func sizeOf(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(n))
}

func datesAttrs(dates map[models.Category]models.DateValue) []any {
	var attrs []any
	for _, c := range models.Categories {
		v := dates[c]
		if v.Kind == models.Resolved {
			attrs = append(attrs, string(c), analyzer.DateToKey(v.Date))
		} else {
			attrs = append(attrs, string(c), v.Kind.String())
		}
	}
	return attrs
}
