// ABOUTME: Postgres/pgvector-backed vector index for larger collections
// ABOUTME: Ranking, filtering, and paging all happen server-side via the <=> operator
package vectorindex

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/hypelens/hypelens/internal/models"
)

// PostgresIndex stores vectors in a pgvector column. The cosine
// distance operator keeps ranking in the database, so this driver
// scales past what the SQLite scan can handle.
type PostgresIndex struct {
	db    *sql.DB
	table string
	dim   int
}

// NewPostgresIndex connects with the given DSN and bootstraps the
// schema for the collection's table. An empty collection falls back
// to DefaultCollection. The pgvector extension must already be
// installed.
func NewPostgresIndex(dsn, collection string, dim int) (*PostgresIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	table, err := collectionName(collection)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to index database: %w", err)
	}

	var extExists bool
	err = db.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&extExists)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check pgvector extension: %w", err)
	}
	if !extExists {
		db.Close()
		return nil, fmt.Errorf("pgvector extension is not installed")
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id BIGINT PRIMARY KEY,
			vector vector(%[2]d) NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			full_name TEXT NOT NULL DEFAULT '',
			is_private BOOLEAN NOT NULL DEFAULT FALSE,
			follower_count BIGINT NOT NULL DEFAULT 0,
			follower_category TEXT NOT NULL DEFAULT '',
			account_type TEXT NOT NULL DEFAULT '',
			profile_pic_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_username ON %[1]s(username);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_follower_count ON %[1]s(follower_count);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_vector ON %[1]s USING ivfflat (vector vector_cosine_ops)`, table, dim)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}
	return &PostgresIndex{db: db, table: table, dim: dim}, nil
}

// Close closes the underlying database.
func (p *PostgresIndex) Close() error {
	return p.db.Close()
}

func (p *PostgresIndex) Upsert(ctx context.Context, id int64, vector []float32, payload models.Payload) error {
	if len(vector) != p.dim {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vector), p.dim)
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO `+p.table+` (id, vector, username, full_name, is_private, follower_count, follower_category, account_type, profile_pic_url, updated_at)
		VALUES ($1, $2::vector, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			vector = EXCLUDED.vector,
			username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			is_private = EXCLUDED.is_private,
			follower_count = EXCLUDED.follower_count,
			follower_category = EXCLUDED.follower_category,
			account_type = EXCLUDED.account_type,
			profile_pic_url = EXCLUDED.profile_pic_url,
			updated_at = EXCLUDED.updated_at`,
		id, vectorToString(vector), payload.Username, payload.FullName, payload.IsPrivate,
		payload.FollowerCount, string(payload.FollowerCategory), string(payload.AccountType),
		payload.ProfilePicURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert point %d: %w", id, err)
	}
	return nil
}

func (p *PostgresIndex) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx, "SELECT 1 FROM "+p.table+" WHERE id = $1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check point %d: %w", id, err)
	}
	return true, nil
}

func (p *PostgresIndex) Get(ctx context.Context, id int64) (*Point, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, vector::text, username, full_name, is_private, follower_count, follower_category, account_type, profile_pic_url
		FROM `+p.table+` WHERE id = $1`, id)
	pt, err := scanPgPoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get point %d: %w", id, err)
	}
	return pt, nil
}

func (p *PostgresIndex) Search(ctx context.Context, opts SearchOptions) ([]models.SearchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(opts.Vector) != p.dim {
		return nil, fmt.Errorf("query vector dimension mismatch: got %d, want %d", len(opts.Vector), p.dim)
	}

	ph := &pgPlaceholders{}
	vecParam := ph.Next()
	args := []any{vectorToString(opts.Vector)}
	where, filterArgs := filterClause(opts.Filters, ph)
	args = append(args, filterArgs...)

	simExpr := fmt.Sprintf("1 - (vector <=> %s::vector)", vecParam)
	if where == "" {
		where = " WHERE " + simExpr + " >= " + ph.Next()
	} else {
		where += " AND " + simExpr + " >= " + ph.Next()
	}
	args = append(args, opts.ScoreThreshold)

	limitParam, offsetParam := ph.Next(), ph.Next()
	args = append(args, opts.Limit, opts.Offset)

	query := fmt.Sprintf(`
		SELECT id, username, full_name, is_private, follower_count, follower_category, account_type, profile_pic_url, %s AS similarity
		FROM %s%s
		ORDER BY vector <=> %s::vector
		LIMIT %s OFFSET %s`, simExpr, p.table, where, vecParam, limitParam, offsetParam)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var (
			r         models.SearchResult
			isPrivate bool
			category  string
			acctType  string
		)
		if err := rows.Scan(&r.ProfileID, &r.Payload.Username, &r.Payload.FullName, &isPrivate,
			&r.Payload.FollowerCount, &category, &acctType, &r.Payload.ProfilePicURL, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to read result: %w", err)
		}
		r.Payload.UserID = r.ProfileID
		r.Payload.IsPrivate = isPrivate
		r.Payload.FollowerCategory = models.FollowerCategory(category)
		r.Payload.AccountType = models.AccountType(acctType)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return results, nil
}

func (p *PostgresIndex) SetPayload(ctx context.Context, id int64, patch models.PayloadPatch) error {
	ph := &pgPlaceholders{}
	sets, args := patchClause(patch, ph)
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = "+ph.Next())
	args = append(args, time.Now().UTC())
	idParam := ph.Next()
	args = append(args, id)

	res, err := p.db.ExecContext(ctx,
		"UPDATE "+p.table+" SET "+strings.Join(sets, ", ")+" WHERE id = "+idParam, args...)
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

func (p *PostgresIndex) Scroll(ctx context.Context, opts ScrollOptions) ([]Point, int64, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	ph := &pgPlaceholders{}
	where, args := filterClause(opts.Filters, ph)
	cursorParam := ph.Next()
	if where == "" {
		where = " WHERE id > " + cursorParam
	} else {
		where += " AND id > " + cursorParam
	}
	limitParam := ph.Next()
	args = append(args, opts.Cursor, opts.Limit)

	query := "SELECT id, vector::text, username, full_name, is_private, follower_count, follower_category, account_type, profile_pic_url FROM " + p.table +
		where + " ORDER BY id LIMIT " + limitParam
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scroll index: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		pt, err := scanPgPoint(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read point: %w", err)
		}
		points = append(points, *pt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate index: %w", err)
	}
	if len(points) < opts.Limit {
		return points, 0, nil
	}
	return points, points[len(points)-1].ID, nil
}

func (p *PostgresIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+p.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

func scanPgPoint(row rowScanner) (*Point, error) {
	var (
		p         Point
		vecText   string
		isPrivate bool
		category  string
		acctType  string
	)
	err := row.Scan(&p.ID, &vecText, &p.Payload.Username, &p.Payload.FullName, &isPrivate,
		&p.Payload.FollowerCount, &category, &acctType, &p.Payload.ProfilePicURL)
	if err != nil {
		return nil, err
	}
	p.Vector, err = stringToVector(vecText)
	if err != nil {
		return nil, err
	}
	p.Payload.UserID = p.ID
	p.Payload.IsPrivate = isPrivate
	p.Payload.FollowerCategory = models.FollowerCategory(category)
	p.Payload.AccountType = models.AccountType(acctType)
	return &p, nil
}

// vectorToString renders a vector in pgvector text format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = strconv.FormatFloat(float64(val), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// stringToVector parses the pgvector text format.
func stringToVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("invalid vector text: %q", s)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil, nil
	}
	parts := strings.Split(inner, ",")
	vector := make([]float32, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", part, err)
		}
		vector[i] = float32(f)
	}
	return vector, nil
}
