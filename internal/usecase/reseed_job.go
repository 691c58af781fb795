package usecase

import (
	"context"
	"fmt"

	drepo "VolWatch/internal/domain/repository"
	"VolWatch/pkg/queue"
)

// ReseedJob re-backfills a (symbol, timeframe) window from REST history.
type ReseedJob struct {
	backfiller *Backfiller
}

func NewReseedJob(backfiller *Backfiller) *ReseedJob {
	return &ReseedJob{backfiller: backfiller}
}

func (j *ReseedJob) Name() string { return "reseed" }

func (j *ReseedJob) Type() string { return ReseedMsgType }

func (j *ReseedJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ReseedPayload](payload)
	if err != nil {
		return fmt.Errorf("reseed payload: %w", err)
	}
	tf := drepo.NormalizeTimeframe(p.Timeframe)
	return j.backfiller.SeedKey(ctx, p.Symbol, tf)
}

var _ queue.Job = (*ReseedJob)(nil)
