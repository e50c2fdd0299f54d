package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"
	"luckydraw/internal/models"
	"luckydraw/internal/remote"
)

// RemoteDrawer performs draws on the remote backend.
type RemoteDrawer interface {
	Draw(ctx context.Context, count int) ([]models.Participant, error)
}

// LotteryService draws winners, preferring the remote backend when one is
// configured and falling back to the local DrawEngine on any failure.
type LotteryService struct {
	engine *DrawEngine
	remote RemoteDrawer
}

// NewLotteryService creates a LotteryService. remote may be nil.
func NewLotteryService(engine *DrawEngine, remote RemoteDrawer) *LotteryService {
	return &LotteryService{engine: engine, remote: remote}
}

// Draw selects up to count winners among candidates not yet in the ledger
// and records them in the ledger. It never fails.
func (s *LotteryService) Draw(ctx context.Context, candidates []models.Participant, ledger *DrawnLedger, count int) []models.Participant {
	if s.remote != nil && count > 0 {
		winners, err := s.remoteDraw(ctx, candidates, ledger, count)
		if err == nil {
			ledger.Add(models.IDs(winners)...)
			return winners
		}
		logger.Warningf("Remote draw failed, using local draw: %v", err)
	}
	return s.engine.Draw(candidates, ledger, count)
}

// Reset clears the ledger.
func (s *LotteryService) Reset(ledger *DrawnLedger) {
	s.engine.Reset(ledger)
}

// remoteDraw validates the backend answer against the local pool so the
// ledger never holds an unknown id or the same id twice.
func (s *LotteryService) remoteDraw(ctx context.Context, candidates []models.Participant, ledger *DrawnLedger, count int) ([]models.Participant, error) {
	winners, err := s.remote.Draw(ctx, count)
	if err != nil {
		return nil, err
	}
	if len(winners) > count {
		return nil, fmt.Errorf("%w: asked for %d winners, got %d", remote.ErrUnavailable, count, len(winners))
	}

	known := make(map[string]models.Participant, len(candidates))
	for _, p := range candidates {
		known[p.ID] = p
	}
	picked := make(map[string]struct{}, len(winners))
	out := make([]models.Participant, 0, len(winners))
	for _, w := range winners {
		p, ok := known[w.ID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown participant %q", remote.ErrUnavailable, w.ID)
		}
		if _, dup := picked[w.ID]; dup || ledger.Has(w.ID) {
			return nil, fmt.Errorf("%w: participant %q already drawn", remote.ErrUnavailable, w.ID)
		}
		picked[w.ID] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 && ledger.Remaining(candidates) > 0 {
		return nil, errors.New("remote draw returned no winners while the pool is not empty")
	}
	return out, nil
}
