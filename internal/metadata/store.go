// ABOUTME: SQLite store for full profile records, including fields too big for index payloads
// ABOUTME: Post image URLs and captions are kept as JSON arrays in TEXT columns
package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hypelens/hypelens/internal/models"
)

// ErrNotFound is returned when a profile is absent from the store.
var ErrNotFound = errors.New("profile not found")

const schema = `
CREATE TABLE IF NOT EXISTS profile_records (
	profile_id INTEGER PRIMARY KEY,
	username TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	is_private INTEGER NOT NULL DEFAULT 0,
	follower_count INTEGER NOT NULL DEFAULT 0,
	follower_count_raw TEXT NOT NULL DEFAULT '',
	follower_category TEXT NOT NULL DEFAULT '',
	account_type TEXT NOT NULL DEFAULT '',
	profile_pic_url TEXT NOT NULL DEFAULT '',
	post_image_urls TEXT NOT NULL DEFAULT '[]',
	captions TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_profile_records_username ON profile_records(username);
CREATE INDEX IF NOT EXISTS idx_profile_records_account_type ON profile_records(account_type);
`

// Store holds the profile metadata that backs enrichment and
// classification passes. The vector index keeps only a compact
// payload; this store keeps everything.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if necessary) the metadata database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to metadata database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const profileColumns = `profile_id, username, full_name, bio, is_private, follower_count,
	follower_count_raw, follower_category, account_type, profile_pic_url,
	post_image_urls, captions, updated_at`

// Save stores or replaces a full profile record.
func (s *Store) Save(ctx context.Context, p *models.Profile) error {
	if p.ProfileID <= 0 {
		return fmt.Errorf("profile id must be positive, got %d", p.ProfileID)
	}
	urls, err := json.Marshal(emptyIfNil(p.PostImageURLs))
	if err != nil {
		return fmt.Errorf("failed to encode post image urls: %w", err)
	}
	captions, err := json.Marshal(emptyIfNil(p.Captions))
	if err != nil {
		return fmt.Errorf("failed to encode captions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profile_records (profile_id, username, full_name, bio, is_private, follower_count,
			follower_count_raw, follower_category, account_type, profile_pic_url, post_image_urls, captions, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name,
			bio = excluded.bio,
			is_private = excluded.is_private,
			follower_count = excluded.follower_count,
			follower_count_raw = excluded.follower_count_raw,
			follower_category = excluded.follower_category,
			account_type = excluded.account_type,
			profile_pic_url = excluded.profile_pic_url,
			post_image_urls = excluded.post_image_urls,
			captions = excluded.captions,
			updated_at = excluded.updated_at`,
		p.ProfileID, p.Username, p.FullName, p.Bio, boolToInt(p.IsPrivate), p.FollowerCount,
		p.FollowerCountRaw, string(p.FollowerCategory), string(p.AccountType), p.ProfilePicURL,
		string(urls), string(captions), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save profile %d: %w", p.ProfileID, err)
	}
	return nil
}

// Get fetches one profile by id. Returns ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, profileID int64) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profile_records WHERE profile_id = ?", profileID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %d: %w", profileID, err)
	}
	return p, nil
}

// GetByUsername fetches one profile by exact username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profile_records WHERE username = ?", username)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %q: %w", username, err)
	}
	return p, nil
}

// List returns profiles in id order after the cursor, up to limit.
// A zero cursor starts from the beginning.
func (s *Store) List(ctx context.Context, cursor int64, limit int) ([]models.Profile, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profile_records WHERE profile_id > ? ORDER BY profile_id LIMIT ?",
		cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// ListUnclassified returns profiles whose account type is unknown or
// unset, for the classification pass to work through.
func (s *Store) ListUnclassified(ctx context.Context, limit int) ([]models.Profile, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profile_records WHERE account_type IN ('', ?) ORDER BY profile_id LIMIT ?",
		string(models.AccountUnknown), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unclassified profiles: %w", err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// ListMissingFollowers returns profiles with no parsed follower count,
// for the enrichment pass.
func (s *Store) ListMissingFollowers(ctx context.Context, limit int) ([]models.Profile, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM profile_records WHERE follower_count <= 0 ORDER BY profile_id LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles missing followers: %w", err)
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// Update patches the given fields on an existing profile. Nil patch
// fields are untouched.
func (s *Store) Update(ctx context.Context, profileID int64, patch models.PayloadPatch) error {
	var sets []string
	var args []any
	if patch.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *patch.Username)
	}
	if patch.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *patch.FullName)
	}
	if patch.FollowerCount != nil {
		sets = append(sets, "follower_count = ?")
		args = append(args, *patch.FollowerCount)
	}
	if patch.FollowerCategory != nil {
		sets = append(sets, "follower_category = ?")
		args = append(args, string(*patch.FollowerCategory))
	}
	if patch.AccountType != nil {
		sets = append(sets, "account_type = ?")
		args = append(args, string(*patch.AccountType))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), profileID)

	res, err := s.db.ExecContext(ctx,
		"UPDATE profile_records SET "+strings.Join(sets, ", ")+" WHERE profile_id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update profile %d: %w", profileID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update profile %d: %w", profileID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored profiles.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profile_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

// Stats summarizes the stored collection.
type Stats struct {
	Total          int64            `json:"total"`
	ByAccountType  map[string]int64 `json:"by_account_type"`
	ByCategory     map[string]int64 `json:"by_follower_category"`
	MissingCount   int64            `json:"missing_follower_count"`
	OldestUpdateAt time.Time        `json:"oldest_update_at"`
}

// Stats aggregates collection-level counts for the status command.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		ByAccountType: make(map[string]int64),
		ByCategory:    make(map[string]int64),
	}
	var err error
	if st.Total, err = s.Count(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT account_type, COUNT(*) FROM profile_records GROUP BY account_type")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate account types: %w", err)
	}
	if err := scanCounts(rows, st.ByAccountType); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT follower_category, COUNT(*) FROM profile_records GROUP BY follower_category")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate follower categories: %w", err)
	}
	if err := scanCounts(rows, st.ByCategory); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM profile_records WHERE follower_count <= 0").Scan(&st.MissingCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count missing followers: %w", err)
	}

	var oldest sql.NullTime
	err = s.db.QueryRowContext(ctx,
		"SELECT MIN(updated_at) FROM profile_records").Scan(&oldest)
	if err != nil {
		return nil, fmt.Errorf("failed to find oldest update: %w", err)
	}
	if oldest.Valid {
		st.OldestUpdateAt = oldest.Time
	}
	return st, nil
}

func scanCounts(rows *sql.Rows, into map[string]int64) error {
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to read aggregate row: %w", err)
		}
		if key == "" {
			key = string(models.AccountUnknown)
		}
		into[key] = n
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		p         models.Profile
		isPrivate int
		category  string
		acctType  string
		urlsJSON  string
		capsJSON  string
	)
	err := row.Scan(&p.ProfileID, &p.Username, &p.FullName, &p.Bio, &isPrivate, &p.FollowerCount,
		&p.FollowerCountRaw, &category, &acctType, &p.ProfilePicURL, &urlsJSON, &capsJSON, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.IsPrivate = isPrivate != 0
	p.FollowerCategory = models.FollowerCategory(category)
	p.AccountType = models.AccountType(acctType)
	if err := json.Unmarshal([]byte(urlsJSON), &p.PostImageURLs); err != nil {
		return nil, fmt.Errorf("corrupt post image urls for profile %d: %w", p.ProfileID, err)
	}
	if err := json.Unmarshal([]byte(capsJSON), &p.Captions); err != nil {
		return nil, fmt.Errorf("corrupt captions for profile %d: %w", p.ProfileID, err)
	}
	return &p, nil
}

func collectProfiles(rows *sql.Rows) ([]models.Profile, error) {
	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
