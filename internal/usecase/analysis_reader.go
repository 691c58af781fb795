package usecase

import (
	"context"

	"VolWatch/internal/domain/models"
	drepo "VolWatch/internal/domain/repository"
	"VolWatch/internal/engine"
	xhttp "VolWatch/pkg/http"
)

// AnalysisReader serves the read side of the screener API. The in-process
// engine is authoritative; the snapshot cache answers for keys this instance
// has not seeded (other replicas may have).
type AnalysisReader struct {
	analyzer *engine.Analyzer
	cache    drepo.SnapshotCache
	archive  drepo.AlertArchive
}

func NewAnalysisReader(analyzer *engine.Analyzer, cache drepo.SnapshotCache, archive drepo.AlertArchive) *AnalysisReader {
	return &AnalysisReader{analyzer: analyzer, cache: cache, archive: archive}
}

// Analysis returns the latest snapshot for (symbol, tf).
func (r *AnalysisReader) Analysis(ctx context.Context, symbol string, tf drepo.Timeframe) (*models.VolatilityAnalysis, error) {
	if snap, ok := r.analyzer.GetAnalysis(symbol, string(tf)); ok {
		return snap, nil
	}
	if r.cache != nil {
		if snap, err := r.cache.Get(ctx, symbol, tf); err == nil && snap != nil {
			return snap, nil
		}
	}
	return nil, xhttp.NotFoundErrorf("no analysis for %s %s", symbol, tf)
}

// RecentAlerts returns the newest alerts, newest first.
func (r *AnalysisReader) RecentAlerts(limit int) []*models.AlertEvent {
	return r.analyzer.Alerts().Recent(limit)
}

// AlertHistory queries the archive for a symbol's alert history.
func (r *AnalysisReader) AlertHistory(ctx context.Context, q drepo.AlertQuery) ([]*models.AlertEvent, error) {
	if r.archive == nil {
		return nil, xhttp.NotFoundError("alert archive not configured")
	}
	return r.archive.Query(ctx, q)
}

// TrackedKeys lists every (symbol, timeframe) the engine is following.
func (r *AnalysisReader) TrackedKeys() []engine.Key {
	return r.analyzer.Keys()
}
