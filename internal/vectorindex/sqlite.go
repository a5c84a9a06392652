// ABOUTME: SQLite-backed vector index using BLOB-encoded float32 vectors
// ABOUTME: Filters are pushed into SQL; cosine ranking is a brute-force scan in Go
package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hypelens/hypelens/internal/models"
)

func sqliteSchema(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id INTEGER PRIMARY KEY,
	vector BLOB NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL DEFAULT '',
	is_private INTEGER NOT NULL DEFAULT 0,
	follower_count INTEGER NOT NULL DEFAULT 0,
	follower_category TEXT NOT NULL DEFAULT '',
	account_type TEXT NOT NULL DEFAULT '',
	profile_pic_url TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_username ON %[1]s(username);
CREATE INDEX IF NOT EXISTS idx_%[1]s_follower_count ON %[1]s(follower_count);
CREATE INDEX IF NOT EXISTS idx_%[1]s_account_type ON %[1]s(account_type);
`, table)
}

// SQLiteIndex stores vectors as little-endian float32 BLOBs in a
// single table named after the collection. Similarity search loads
// the filtered rows and ranks them in Go, which is fine up to a few
// hundred thousand points.
type SQLiteIndex struct {
	db    *sql.DB
	table string
	dim   int
}

// NewSQLiteIndex opens (creating if necessary) the index at path.
// An empty collection falls back to DefaultCollection. dim is the
// expected vector dimensionality; mismatched upserts are rejected.
func NewSQLiteIndex(path, collection string, dim int) (*SQLiteIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	table, err := collectionName(collection)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to index database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema(table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}
	return &SQLiteIndex{db: db, table: table, dim: dim}, nil
}

// Close closes the underlying database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func (s *SQLiteIndex) Upsert(ctx context.Context, id int64, vector []float32, payload models.Payload) error {
	if len(vector) != s.dim {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vector), s.dim)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+s.table+` (id, vector, username, full_name, is_private, follower_count, follower_category, account_type, profile_pic_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			vector = excluded.vector,
			username = excluded.username,
			full_name = excluded.full_name,
			is_private = excluded.is_private,
			follower_count = excluded.follower_count,
			follower_category = excluded.follower_category,
			account_type = excluded.account_type,
			profile_pic_url = excluded.profile_pic_url,
			updated_at = excluded.updated_at`,
		id, vectorToBlob(vector), payload.Username, payload.FullName, boolToInt(payload.IsPrivate),
		payload.FollowerCount, string(payload.FollowerCategory), string(payload.AccountType),
		payload.ProfilePicURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert point %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteIndex) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM "+s.table+" WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check point %d: %w", id, err)
	}
	return true, nil
}

func (s *SQLiteIndex) Get(ctx context.Context, id int64) (*Point, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, vector, username, full_name, is_private, follower_count, follower_category, account_type, profile_pic_url
		FROM `+s.table+` WHERE id = ?`, id)
	p, err := scanPoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get point %d: %w", id, err)
	}
	return p, nil
}

func (s *SQLiteIndex) Search(ctx context.Context, opts SearchOptions) ([]models.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(opts.Vector) != s.dim {
		return nil, fmt.Errorf("query vector dimension mismatch: got %d, want %d", len(opts.Vector), s.dim)
	}

	where, args := filterClause(opts.Filters, sqlitePlaceholders{})
	query := "SELECT id, vector, username, full_name, is_private, follower_count, follower_category, account_type, profile_pic_url FROM " + s.table + where
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan index: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read point: %w", err)
		}
		score := CosineSimilarity(opts.Vector, p.Vector)
		if score < opts.ScoreThreshold {
			continue
		}
		results = append(results, models.SearchResult{ProfileID: p.ID, Score: score, Payload: p.Payload})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate index: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if opts.Offset >= len(results) {
		return nil, nil
	}
	results = results[opts.Offset:]
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func (s *SQLiteIndex) SetPayload(ctx context.Context, id int64, patch models.PayloadPatch) error {
	sets, args := patchClause(patch, sqlitePlaceholders{})
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)
	res, err := s.db.ExecContext(ctx,
		"UPDATE "+s.table+" SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to patch point %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to patch point %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteIndex) Scroll(ctx context.Context, opts ScrollOptions) ([]Point, int64, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	where, args := filterClause(opts.Filters, sqlitePlaceholders{})
	if where == "" {
		where = " WHERE id > ?"
	} else {
		where += " AND id > ?"
	}
	args = append(args, opts.Cursor, opts.Limit)
	query := "SELECT id, vector, username, full_name, is_private, follower_count, follower_category, account_type, profile_pic_url FROM " + s.table + where + " ORDER BY id LIMIT ?"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scroll index: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read point: %w", err)
		}
		points = append(points, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate index: %w", err)
	}
	if len(points) < opts.Limit {
		return points, 0, nil
	}
	return points, points[len(points)-1].ID, nil
}

func (s *SQLiteIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoint(row rowScanner) (*Point, error) {
	var (
		p         Point
		blob      []byte
		isPrivate int
		category  string
		acctType  string
	)
	err := row.Scan(&p.ID, &blob, &p.Payload.Username, &p.Payload.FullName, &isPrivate,
		&p.Payload.FollowerCount, &category, &acctType, &p.Payload.ProfilePicURL)
	if err != nil {
		return nil, err
	}
	p.Vector, err = blobToVector(blob)
	if err != nil {
		return nil, err
	}
	p.Payload.UserID = p.ID
	p.Payload.IsPrivate = isPrivate != 0
	p.Payload.FollowerCategory = models.FollowerCategory(category)
	p.Payload.AccountType = models.AccountType(acctType)
	return &p, nil
}

// placeholderStyle abstracts over "?" vs "$n" parameter syntax so the
// filter and patch builders are shared between drivers.
type placeholderStyle interface {
	Next() string
}

type sqlitePlaceholders struct{}

func (sqlitePlaceholders) Next() string { return "?" }

type pgPlaceholders struct{ n int }

func (p *pgPlaceholders) Next() string {
	p.n++
	return fmt.Sprintf("$%d", p.n)
}

// filterClause renders a Filters conjunction into a WHERE clause.
// Returns an empty string when no filter is set.
func filterClause(f models.Filters, ph placeholderStyle) (string, []any) {
	var conds []string
	var args []any
	if f.Followers != nil {
		conds = append(conds, "follower_count >= "+ph.Next())
		args = append(args, f.Followers.Min)
		if f.Followers.Max != 0 {
			conds = append(conds, "follower_count < "+ph.Next())
			args = append(args, f.Followers.Max)
		}
	}
	if f.AccountType != "" {
		conds = append(conds, "account_type = "+ph.Next())
		args = append(args, string(f.AccountType))
	}
	if f.Username != "" {
		conds = append(conds, "username = "+ph.Next())
		args = append(args, f.Username)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// patchClause renders the non-nil fields of a PayloadPatch into SET
// expressions.
func patchClause(patch models.PayloadPatch, ph placeholderStyle) ([]string, []any) {
	var sets []string
	var args []any
	if patch.Username != nil {
		sets = append(sets, "username = "+ph.Next())
		args = append(args, *patch.Username)
	}
	if patch.FullName != nil {
		sets = append(sets, "full_name = "+ph.Next())
		args = append(args, *patch.FullName)
	}
	if patch.FollowerCount != nil {
		sets = append(sets, "follower_count = "+ph.Next())
		args = append(args, *patch.FollowerCount)
	}
	if patch.FollowerCategory != nil {
		sets = append(sets, "follower_category = "+ph.Next())
		args = append(args, string(*patch.FollowerCategory))
	}
	if patch.AccountType != nil {
		sets = append(sets, "account_type = "+ph.Next())
		args = append(args, string(*patch.AccountType))
	}
	return sets, args
}

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector is zero or lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// vectorToBlob encodes a vector as little-endian float32 bytes.
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// blobToVector decodes a little-endian float32 BLOB.
func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length: %d", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
