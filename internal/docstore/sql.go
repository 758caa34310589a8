package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mauv0809/strategium/internal/database"
)

// sqlClient stores documents as JSON text in the documents table.
type sqlClient struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

// NewSQL creates a Client on a migrated database handle.
func NewSQL(db *sql.DB, dialect database.Dialect) Client {
	return &sqlClient{db: db, dialect: dialect, now: time.Now}
}

// rebind rewrites ? placeholders for dialects using numbered parameters.
func (c *sqlClient) rebind(query string) string {
	if c.dialect != database.DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (c *sqlClient) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(`
		SELECT id, data FROM documents WHERE collection = ? ORDER BY created_at, id
	`), collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, Document{ID: id, Data: json.RawMessage(data)})
	}
	return docs, rows.Err()
}

func (c *sqlClient) Get(ctx context.Context, collection, id string) (Document, error) {
	var data string
	err := c.db.QueryRowContext(ctx, c.rebind(`
		SELECT data FROM documents WHERE collection = ? AND id = ?
	`), collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return Document{ID: id, Data: json.RawMessage(data)}, nil
}

func (c *sqlClient) Set(ctx context.Context, collection, id string, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	now := c.now().UnixNano()
	_, err = c.db.ExecContext(ctx, c.rebind(`
		INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`), collection, id, string(encoded), now, now)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (c *sqlClient) Create(ctx context.Context, collection, id string, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	now := c.now().UnixNano()
	res, err := c.db.ExecContext(ctx, c.rebind(`
		INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO NOTHING
	`), collection, id, string(encoded), now, now)
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrExists)
	}
	return nil
}

func (c *sqlClient) Add(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.NewString()
	if err := c.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (c *sqlClient) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update %s/%s: %w", collection, id, err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, c.rebind(`
		SELECT data FROM documents WHERE collection = ? AND id = ?
	`), collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", collection, id, err)
	}

	merged, err := mergeFields([]byte(data), fields)
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	_, err = tx.ExecContext(ctx, c.rebind(`
		UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?
	`), string(merged), c.now().UnixNano(), collection, id)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

func (c *sqlClient) Delete(ctx context.Context, collection, id string) error {
	_, err := c.db.ExecContext(ctx, c.rebind(`
		DELETE FROM documents WHERE collection = ? AND id = ?
	`), collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (c *sqlClient) DeleteCollection(ctx context.Context, collection string) error {
	_, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM documents WHERE collection = ?`), collection)
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", collection, err)
	}
	return nil
}

func mergeFields(data []byte, fields map[string]any) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for key, value := range fields {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		doc[key] = encoded
	}
	return json.Marshal(doc)
}
