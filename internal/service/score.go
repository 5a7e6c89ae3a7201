package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/revisant/dictum/internal/domain/score"
	"github.com/revisant/dictum/internal/port/cache"
	"github.com/revisant/dictum/internal/port/ledger"
)

// ScoreService computes compliance scores from the deliberation ledger and
// memoizes results. The memo key embeds the ledger length, so an append
// naturally invalidates the previous entry without explicit eviction.
type ScoreService struct {
	ledger ledger.Store
	cache  cache.Cache
	ttl    time.Duration
}

// NewScoreService creates a ScoreService. cache may be nil; every call then
// recomputes from the ledger.
func NewScoreService(ledgerStore ledger.Store, c cache.Cache, ttl time.Duration) *ScoreService {
	return &ScoreService{ledger: ledgerStore, cache: c, ttl: ttl}
}

// Get returns the current score for a project. The cached value is never
// authoritative: a miss or a decode failure falls through to a full
// recomputation.
func (s *ScoreService) Get(ctx context.Context, projectID string) (score.Result, error) {
	count, err := s.ledger.CountByProject(ctx, projectID)
	if err != nil {
		return score.Result{}, fmt.Errorf("count ledger: %w", err)
	}
	if count == 0 {
		return score.Result{}, nil
	}

	key := memoKey(projectID, count)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var r score.Result
			if err := json.Unmarshal(data, &r); err == nil {
				return r, nil
			}
		}
	}

	entries, err := s.ledger.ListByProject(ctx, projectID)
	if err != nil {
		return score.Result{}, fmt.Errorf("list ledger: %w", err)
	}
	r := score.Compute(entries)

	if s.cache != nil {
		if data, err := json.Marshal(r); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				slog.Debug("memoize score", "project_id", projectID, "error", err)
			}
		}
	}
	return r, nil
}

// Invalidate drops the current memo entry for a project. Appends already
// self-invalidate through the key; this is for projects leaving the active
// set, where the entry would otherwise linger until its TTL.
func (s *ScoreService) Invalidate(ctx context.Context, projectID string) {
	if s.cache == nil {
		return
	}
	count, err := s.ledger.CountByProject(ctx, projectID)
	if err != nil {
		return
	}
	if err := s.cache.Delete(ctx, memoKey(projectID, count)); err != nil {
		slog.Debug("drop score memo", "project_id", projectID, "error", err)
	}
}

func memoKey(projectID string, ledgerLen int) string {
	return fmt.Sprintf("score:%s:%d", projectID, ledgerLen)
}
