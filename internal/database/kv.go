package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// KV is a small durable key-value table used for client state that must
// survive restarts.
type KV struct {
	db *DB
}

func NewKV(db *DB) *KV {
	return &KV{db: db}
}

func (kv *KV) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := kv.db.QueryRowContext(ctx,
		kv.db.Rebind(`SELECT value FROM session_kv WHERE key = ?`),
		key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// PutAll writes every pair and deletes every key in remove, all in one
// transaction, so readers never observe a partial update.
func (kv *KV) PutAll(ctx context.Context, values map[string]string, remove []string) error {
	upsert := kv.db.Rebind(`
		INSERT INTO session_kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET value = excluded.value, updated_at = excluded.updated_at`)
	del := kv.db.Rebind(`DELETE FROM session_kv WHERE key = ?`)

	return WithRetry(ctx, kv.db, DefaultTxOptions(), func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for key, value := range values {
			if _, err := tx.ExecContext(ctx, upsert, key, value, now); err != nil {
				return fmt.Errorf("put %s: %w", key, err)
			}
		}
		for _, key := range remove {
			if _, err := tx.ExecContext(ctx, del, key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		return nil
	})
}
