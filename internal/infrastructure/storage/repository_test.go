package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OutageNotifier/internal/domain"
)

func newRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db), mock
}

func TestInsertRawEventReturnsID(t *testing.T) {
	repo, mock := newRepo(t)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_seen"}).AddRow(int64(7), now))

	e := &domain.RawEvent{Type: domain.EventPower, Language: domain.LangHY, Hash: "abc"}
	inserted, err := repo.InsertRawEvent(context.Background(), e)

	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(7), e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRawEventDuplicateHashIsNotAnError(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("INSERT INTO events").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "events_hash_key"})

	inserted, err := repo.InsertRawEvent(context.Background(), &domain.RawEvent{Hash: "abc"})

	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasEventHash(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT 1 FROM events").
		WithArgs("known").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM events").
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	known, err := repo.HasEventHash(context.Background(), "known")
	require.NoError(t, err)
	assert.True(t, known)

	unknown, err := repo.HasEventHash(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, unknown)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeOutageCommitsUpsertAndProcessedTogether(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outages").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE events SET processed").
		WithArgs(pq.Array([]int64{1, 2})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	key := domain.OutageKey{
		StartTime: "01.09.2026 10:00",
		Area:      "Yerevan",
		District:  "Kentron",
		Language:  domain.LangEN,
		Type:      domain.EventPower,
	}
	err := repo.MergeOutage(context.Background(), key, []string{"1", "2"}, []int64{1, 2}, 5)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeOutageRollsBackOnFailure(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outages").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE events SET processed").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.MergeOutage(context.Background(), domain.OutageKey{}, nil, []int64{1}, 0)

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOutageMissingReturnsNil(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT .+ FROM outages").
		WillReturnRows(sqlmock.NewRows(outageColumns))

	o, err := repo.FindOutage(context.Background(), domain.OutageKey{Area: "Yerevan"})

	require.NoError(t, err)
	assert.Nil(t, o)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAreaConflictFetchesWinner(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("INSERT INTO areas").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery("SELECT id, name, language FROM areas").
		WithArgs(domain.LangEN, "Yerevan").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "language"}).
			AddRow(int64(3), "Yerevan", "en"))

	a, created, err := repo.CreateArea(context.Background(), "Yerevan", domain.LangEN)

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(3), a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueueOutageMessagesClearsResendFlags(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO messages").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO messages").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("UPDATE outages SET needs_resend").
		WithArgs(pq.Array([]int64{10, 11})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	msgs := []domain.OutboundMessage{
		{Language: domain.LangEN, Text: "a", EventIDs: []int64{1}},
		{Language: domain.LangRU, Text: "b", EventIDs: []int64{1}},
	}
	err := repo.EnqueueOutageMessages(context.Background(), []int64{10, 11}, msgs)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingMessagesOldestFirst(t *testing.T) {
	repo, mock := newRepo(t)

	created := time.Now()
	mock.ExpectQuery("SELECT .+ FROM messages").
		WillReturnRows(sqlmock.NewRows([]string{"id", "language", "body", "event_ids", "created_at"}).
			AddRow(int64(1), "en", "first", "{1,2}", created).
			AddRow(int64(2), "ru", "second", "{3}", created.Add(time.Second)))

	msgs, err := repo.PendingMessages(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, []int64{1, 2}, msgs[0].EventIDs)
	assert.Equal(t, domain.LangRU, msgs[1].Language)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedQuarantinesMessage(t *testing.T) {
	repo, mock := newRepo(t)

	at := time.Now()
	mock.ExpectExec("UPDATE messages SET failed_at").
		WithArgs(at, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), 9, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeProcessedBeforeReportsRemoved(t *testing.T) {
	repo, mock := newRepo(t)

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	mock.ExpectExec("DELETE FROM events").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	removed, err := repo.PurgeProcessedBefore(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(12), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
