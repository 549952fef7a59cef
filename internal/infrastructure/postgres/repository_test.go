package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terangahub.app/push/internal/domain"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs   []execCall
	execTag string
	execErr error
	row     fakeRow
	queries []execCall
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql, args})
	return pgconn.NewCommandTag(f.execTag), f.execErr
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, execCall{sql, args})
	return f.row
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

func TestUpsert_UsesConflictOnUserID(t *testing.T) {
	db := &fakeDB{execTag: "INSERT 0 1"}
	repo := New(db)

	sub := domain.Subscription{Endpoint: "https://push.example/e", Keys: domain.Keys{P256dh: "p", Auth: "a"}}
	require.NoError(t, repo.Upsert(context.Background(), "u1", sub))

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "ON CONFLICT (user_id) DO UPDATE")
	assert.Equal(t, []any{"u1", "https://push.example/e", "p", "a"}, db.execs[0].args[:4])
}

func TestUpsert_WrapsError(t *testing.T) {
	cause := errors.New("boom")
	repo := New(&fakeDB{execErr: cause})
	err := repo.Upsert(context.Background(), "u1", domain.Subscription{})
	assert.ErrorIs(t, err, cause)
}

func TestGet_ScansRecord(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{values: []any{"u1", "https://push.example/e", "p", "a", now}}}
	repo := New(db)

	rec, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "https://push.example/e", rec.Subscription.Endpoint)
	assert.Equal(t, domain.Keys{P256dh: "p", Auth: "a"}, rec.Subscription.Keys)
	assert.Equal(t, now, rec.UpdatedAt)
	assert.Equal(t, []any{"u1"}, db.queries[0].args)
}

func TestGet_NoRowsIsNoSubscription(t *testing.T) {
	repo := New(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})
	_, err := repo.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrNoSubscription)
}

func TestGet_OtherErrorsAreNotNoSubscription(t *testing.T) {
	cause := errors.New("conn closed")
	repo := New(&fakeDB{row: fakeRow{err: cause}})
	_, err := repo.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, domain.ErrNoSubscription)
}

func TestDeleteIfEndpoint(t *testing.T) {
	db := &fakeDB{execTag: "DELETE 1"}
	removed, err := New(db).DeleteIfEndpoint(context.Background(), "u1", "https://push.example/e")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Contains(t, db.execs[0].sql, "endpoint = $2")

	db = &fakeDB{execTag: "DELETE 0"}
	removed, err = New(db).DeleteIfEndpoint(context.Background(), "u1", "https://push.example/old")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMigrate_RunsEmbeddedSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, New(db).Migrate(context.Background()))
	assert.True(t, strings.Contains(db.execs[0].sql, "CREATE TABLE IF NOT EXISTS push_subscriptions"))
}
