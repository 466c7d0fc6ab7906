package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/safar/storefront/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(&config.StorageConfig{
		Driver:          DriverSQLite,
		URL:             fmt.Sprintf("file:%s", filepath.Join(t.TempDir(), "kv.db")),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = Migrate(context.Background(), db, MigrateUp)
	require.NoError(t, err)

	return db
}

func TestKVPutGetDelete(t *testing.T) {
	db := openTestSQLite(t)
	kv := NewKV(db)
	ctx := context.Background()

	_, err := kv.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, kv.PutAll(ctx, map[string]string{"token": "abc", "roles": `["user"]`}, nil))

	value, err := kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", value)

	require.NoError(t, kv.PutAll(ctx, map[string]string{"token": "def"}, []string{"roles"}))

	value, err = kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "def", value)

	_, err = kv.Get(ctx, "roles")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := openTestSQLite(t)

	n, err := Migrate(context.Background(), db, MigrateUp)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = Migrate(context.Background(), db, MigrateDown)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = Migrate(context.Background(), db, "sideways")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &DB{Driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.Rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &DB{Driver: DriverSQLite}
	assert.Equal(t, "SELECT ?", lite.Rebind("SELECT ?"))
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorClassPermanent, ClassifyError(nil))
	assert.False(t, IsRetryable(ErrKeyNotFound))
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(fmt.Errorf("put token: %w", &pq.Error{Code: "40P01"})))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.Equal(t, ErrorClassTransient, ClassifyError(&pq.Error{Code: "57P01"}))
	assert.Equal(t, ErrorClassPermanent, ClassifyError(sql.ErrNoRows))
	assert.False(t, IsRetryable(errors.New("disk full")))
}

func TestClassifySQLiteBusy(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "busy.db")

	open := func() *sql.DB {
		db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(0)")
		require.NoError(t, err)
		db.SetMaxOpenConns(1)
		t.Cleanup(func() { db.Close() })
		return db
	}
	writer, other := open(), open()

	_, err := writer.ExecContext(ctx, "CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	tx, err := writer.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx, "INSERT INTO t (v) VALUES (1)")
	require.NoError(t, err)

	_, err = other.ExecContext(ctx, "INSERT INTO t (v) VALUES (2)")
	require.Error(t, err)
	assert.Equal(t, ErrorClassTransient, ClassifyError(err))
	assert.True(t, IsRetryable(fmt.Errorf("put token: %w", err)))
}
