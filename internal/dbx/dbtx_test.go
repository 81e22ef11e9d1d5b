package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSlots(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive across calls
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE slots (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func slotCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM slots`).Scan(&n))
	return n
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := openSlots(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO slots VALUES ('access_token', 'jwt')`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO slots VALUES ('username', 'alice')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 2, slotCount(t, db))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := openSlots(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO slots VALUES ('access_token', 'jwt')`)
		require.NoError(t, e)
		return errors.New("second write failed")
	})
	require.EqualError(t, err, "second write failed")
	require.Equal(t, 0, slotCount(t, db))
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := openSlots(t)

	require.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			_, e := tx.ExecContext(ctx, `INSERT INTO slots VALUES ('access_token', 'jwt')`)
			require.NoError(t, e)
			panic("kaput")
		})
	})
	require.Equal(t, 0, slotCount(t, db))
}

func TestWithTx_BeginError(t *testing.T) {
	db := openSlots(t)
	require.NoError(t, db.Close())

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.Error(t, err)
}
