package offline

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var ErrNoBucket = errors.New("bucket does not exist")

const schema = `
CREATE TABLE IF NOT EXISTS buckets (
	name       TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	bucket      TEXT NOT NULL REFERENCES buckets(name) ON DELETE CASCADE,
	key         TEXT NOT NULL,
	status      INTEGER NOT NULL,
	header_json BLOB NOT NULL,
	body        BLOB NOT NULL,
	stored_at   INTEGER NOT NULL,
	PRIMARY KEY (bucket, key)
);
`

// Entry is a cached response.
type Entry struct {
	Key      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Response rebuilds an http.Response for req from the entry.
func (e Entry) Response(req *http.Request) *http.Response {
	h := e.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{
		Status:        strconv.Itoa(e.Status) + " " + http.StatusText(e.Status),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// Store keeps named buckets of cached responses in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// OpenStore opens and migrates the bucket database at path.
func OpenStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Open creates bucket name if it does not exist.
func (s *Store) Open(ctx context.Context, name string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO buckets (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("open bucket %s: %w", name, err)
	}
	return nil
}

// Buckets returns all bucket names in creation order.
func (s *Store) Buckets(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name FROM buckets ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	return names, nil
}

// Delete removes a bucket and its entries. It reports whether the bucket
// existed.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE bucket = ?`, name); err != nil {
		return false, fmt.Errorf("delete entries: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM buckets WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete bucket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete bucket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

// Put stores e in bucket, replacing any entry with the same key.
func (s *Store) Put(ctx context.Context, bucket string, e Entry) error {
	if strings.TrimSpace(e.Key) == "" {
		return fmt.Errorf("entry key is required")
	}
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now().UTC()
	}

	hdr, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	body := e.Body
	if body == nil {
		body = []byte{}
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO entries (bucket, key, status, header_json, body, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(bucket, key) DO UPDATE SET
		    status = excluded.status,
		    header_json = excluded.header_json,
		    body = excluded.body,
		    stored_at = excluded.stored_at`,
		bucket, e.Key, e.Status, hdr, body, e.StoredAt.UnixMilli(),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("put %s: %w", bucket, ErrNoBucket)
		}
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

// Match looks up key in bucket.
func (s *Store) Match(ctx context.Context, bucket, key string) (Entry, bool, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT key, status, header_json, body, stored_at FROM entries WHERE bucket = ? AND key = ?`,
		bucket, key,
	)

	var (
		e        Entry
		hdr      []byte
		storedAt int64
	)
	if err := row.Scan(&e.Key, &e.Status, &hdr, &e.Body, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("match entry: %w", err)
	}

	if err := json.Unmarshal(hdr, &e.Header); err != nil {
		return Entry{}, false, fmt.Errorf("unmarshal header: %w", err)
	}
	e.StoredAt = time.UnixMilli(storedAt).UTC()
	return e, true, nil
}

func isForeignKeyError(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
