package securestore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// MemoryBackend keeps sealed items in memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string][2][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string][2][]byte)}
}

func (m *MemoryBackend) Put(_ context.Context, key string, nonce, ciphertext []byte) error {
	m.mu.Lock()
	m.items[key] = [2][]byte{bytes.Clone(nonce), bytes.Clone(ciphertext)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[key]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return bytes.Clone(item[0]), bytes.Clone(item[1]), nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Has(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[key]
	return ok, nil
}

// SQLiteBackend stores sealed items in the secure_items table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend creates a backend over a migrated database.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) Put(ctx context.Context, key string, nonce, ciphertext []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO secure_items (key, nonce, ciphertext) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		     nonce = excluded.nonce,
		     ciphertext = excluded.ciphertext,
		     updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		key, nonce, ciphertext,
	)
	if err != nil {
		return fmt.Errorf("upserting secure item: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, []byte, error) {
	var nonce, ct []byte
	err := b.db.QueryRowContext(ctx,
		"SELECT nonce, ciphertext FROM secure_items WHERE key = ?", key,
	).Scan(&nonce, &ct)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("querying secure item: %w", err)
	}
	return nonce, ct, nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, "DELETE FROM secure_items WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting secure item: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Has(ctx context.Context, key string) (bool, error) {
	var n int
	if err := b.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM secure_items WHERE key = ?", key,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("checking secure item: %w", err)
	}
	return n > 0, nil
}
