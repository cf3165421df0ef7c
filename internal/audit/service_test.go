package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawnshop/backoffice/internal/platform/httpx"
)

type stubTimelineRepo struct {
	rows     []TimelineRow
	err      error
	lastCall WindowParams
	calls    int
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	s.calls++
	s.lastCall = arg
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func mockRow(ts string, actor int64, entityID string) TimelineRow {
	at, _ := time.Parse(time.RFC3339, ts)
	return TimelineRow{
		At:       at,
		ActorID:  actor,
		Action:   ActionPermissionsSave,
		Entity:   EntityUser,
		EntityID: entityID,
		Meta:     map[string]any{"role_id": float64(2)},
	}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{
		mockRow("2026-03-10T10:00:00Z", 1, "3"),
		mockRow("2026-03-09T09:00:00Z", 1, "4"),
		mockRow("2026-03-08T08:00:00Z", 2, "3"),
	}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Page:     1,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Zero(t, result.Paging.PrevPage)
	assert.EqualValues(t, 3, repo.lastCall.LimitRows)
	assert.EqualValues(t, 0, repo.lastCall.OffsetRows)
}

func TestServiceTimelineMapsFilters(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ActorID:  7,
		Entity:   " user ",
		Page:     3,
		PageSize: 500,
	})
	require.NoError(t, err)
	assert.NotNil(t, result.Rows)
	assert.False(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.PrevPage)
	assert.Equal(t, maxPageSize, result.Paging.PageSize)

	call := repo.lastCall
	assert.EqualValues(t, 2*maxPageSize, call.OffsetRows)
	assert.Equal(t, pgtype.Int8{Int64: 7, Valid: true}, call.ActorID)
	assert.Equal(t, pgtype.Text{String: "user", Valid: true}, call.Entity)
	assert.Equal(t, pgtype.Text{}, call.Action)
	assert.Equal(t, pgtype.Text{}, call.EntityID)
	// A date-only upper bound covers the whole day.
	assert.Equal(t, time.Date(2026, 3, 2, 23, 59, 59, 999999999, time.UTC), call.ToAt.Time)
}

func TestServiceTimelineDefaults(t *testing.T) {
	repo := &stubTimelineRepo{}
	result, err := NewService(repo).Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Paging.Page)
	assert.Equal(t, defaultPageSize, result.Paging.PageSize)
	assert.False(t, repo.lastCall.FromAt.Valid)
	assert.False(t, repo.lastCall.ToAt.Valid)
	assert.False(t, repo.lastCall.ActorID.Valid)
}

func TestServiceTimelineErrors(t *testing.T) {
	_, err := NewService(nil).Timeline(context.Background(), TimelineFilters{})
	require.Error(t, err)

	boom := errors.New("boom")
	_, err = NewService(&stubTimelineRepo{err: boom}).Timeline(context.Background(), TimelineFilters{})
	require.ErrorIs(t, err, boom)

	repo := &stubTimelineRepo{}
	_, err = NewService(repo).Timeline(context.Background(), TimelineFilters{Page: maxPage + 1, PageSize: maxPageSize})
	require.ErrorIs(t, err, httpx.ErrValidation)
	assert.Zero(t, repo.calls)

	_, err = NewService(repo).Timeline(context.Background(), TimelineFilters{Page: maxPage, PageSize: maxPageSize})
	require.NoError(t, err)
	assert.EqualValues(t, (maxPage-1)*maxPageSize, repo.lastCall.OffsetRows)
}
