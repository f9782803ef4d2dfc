package executionstore

import (
	"context"
	"errors"

	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/models"
)

var ErrArchiveDisabled = errors.New("ARCHIVE_DISABLED")

type backend interface {
	Record(ctx context.Context, snapshot models.ExecutionSnapshot) error
	Get(ctx context.Context, requestID string) (*models.ExecutionSnapshot, error)
}

// Store records snapshots to the live store and the archive. Lookups try the
// live store first and fall back to the archive once the live entry expired.
type Store struct {
	live    backend
	archive backend
	index   *Archive
	logger  logger.Logger
}

// New builds a Store. archive may be nil.
func New(live *RedisStore, archive *Archive, log logger.Logger) *Store {
	s := &Store{live: live, logger: log.WithFields(map[string]interface{}{"component": "execution-store"})}
	if archive != nil {
		s.archive = archive
		s.index = archive
	}
	return s
}

func (s *Store) Record(ctx context.Context, snapshot models.ExecutionSnapshot) error {
	liveErr := s.live.Record(ctx, snapshot)
	if s.archive != nil {
		if err := s.archive.Record(ctx, snapshot); err != nil {
			s.logger.Warn("Archive write failed", map[string]interface{}{
				"requestId": snapshot.RequestID,
				"error":     err.Error(),
			})
		}
	}
	return liveErr
}

func (s *Store) Get(ctx context.Context, requestID string) (*models.ExecutionSnapshot, error) {
	snapshot, err := s.live.Get(ctx, requestID)
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, ErrNotFound) || s.archive == nil {
		return nil, err
	}
	return s.archive.Get(ctx, requestID)
}

// CountByState reports archived executions per terminal state.
func (s *Store) CountByState(ctx context.Context) (map[string]int64, error) {
	if s.index == nil {
		return nil, ErrArchiveDisabled
	}
	return s.index.CountByState(ctx)
}
