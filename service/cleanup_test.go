package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Netcracker/qubership-data-contract-validator/entity"
)

type recordingRunRepository struct {
	before     time.Time
	calls      int
	listCalls  int
	listOffset int
}

func (r *recordingRunRepository) Init(context.Context) error { return nil }

func (r *recordingRunRepository) SaveRun(context.Context, entity.ValidationRunEntity) error {
	return nil
}

func (r *recordingRunRepository) GetRun(context.Context, string) (*entity.ValidationRunEntity, error) {
	return nil, nil
}

func (r *recordingRunRepository) ListRuns(_ context.Context, _ int, offset int) ([]entity.ValidationRunEntity, error) {
	r.listCalls++
	r.listOffset = offset
	return nil, nil
}

func (r *recordingRunRepository) DeleteRunsBefore(_ context.Context, before time.Time) (int, error) {
	r.before = before
	r.calls++
	return 4, nil
}

func TestClearExpiredRuns(t *testing.T) {
	repo := &recordingRunRepository{}
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	s := &cleanupServiceImpl{runRepository: repo, retention: 48 * time.Hour, now: func() time.Time { return now }}

	deleted, err := s.ClearExpiredRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, deleted)
	assert.Equal(t, time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC), repo.before)
}

func TestClearExpiredRuns_Disabled(t *testing.T) {
	repo := &recordingRunRepository{}
	s := NewCleanupService(repo, 0)
	deleted, err := s.ClearExpiredRuns(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Zero(t, repo.calls)
}
