package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// AllowedUser represents a user in the whitelist.
type AllowedUser struct {
	TelegramID int64
	AddedAt    time.Time
	AddedBy    int64
}

// SQLiteStore persists hunts, caches, and the eBay application token. The
// token is encrypted at rest with AES-GCM.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath. The
// encryptionKey is used for token encryption and must be 16, 24, or 32
// bytes.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	// WAL mode and a busy timeout so the bot, watcher, and API server can
	// share one database file.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	quoteCacheQuery := `
	CREATE TABLE IF NOT EXISTS quote_cache (
		cache_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		fetched_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(quoteCacheQuery); err != nil {
		return fmt.Errorf("failed to create quote_cache table: %w", err)
	}

	visionCacheQuery := `
	CREATE TABLE IF NOT EXISTS vision_cache (
		image_hash TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(visionCacheQuery); err != nil {
		return fmt.Errorf("failed to create vision_cache table: %w", err)
	}

	huntsQuery := `
	CREATE TABLE IF NOT EXISTS hunts (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		query TEXT NOT NULL,
		item_type TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(huntsQuery); err != nil {
		return fmt.Errorf("failed to create hunts table: %w", err)
	}

	huntSeenListingsQuery := `
	CREATE TABLE IF NOT EXISTS hunt_seen_listings (
		hunt_id TEXT NOT NULL,
		listing_id TEXT NOT NULL,
		seen_at DATETIME NOT NULL,
		PRIMARY KEY (hunt_id, listing_id),
		FOREIGN KEY (hunt_id) REFERENCES hunts(id) ON DELETE CASCADE
	);
	`
	if _, err := s.db.Exec(huntSeenListingsQuery); err != nil {
		return fmt.Errorf("failed to create hunt_seen_listings table: %w", err)
	}

	ebayTokenQuery := `
	CREATE TABLE IF NOT EXISTS ebay_token (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		encrypted_token TEXT NOT NULL,
		expires_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(ebayTokenQuery); err != nil {
		return fmt.Errorf("failed to create ebay_token table: %w", err)
	}

	allowedUsersQuery := `
	CREATE TABLE IF NOT EXISTS allowed_users (
		telegram_id INTEGER PRIMARY KEY,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		added_by INTEGER
	);
	`
	if _, err := s.db.Exec(allowedUsersQuery); err != nil {
		return fmt.Errorf("failed to create allowed_users table: %w", err)
	}

	// Enable foreign keys for cascade delete
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return nil
}

// GetQuote retrieves a cached quote payload. Returns empty payload when no
// entry exists.
func (s *SQLiteStore) GetQuote(key string) (string, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	var fetchedAt time.Time

	err := s.db.QueryRow(
		"SELECT payload, fetched_at FROM quote_cache WHERE cache_key = ?",
		key,
	).Scan(&payload, &fetchedAt)

	if err == sql.ErrNoRows {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to query quote cache: %w", err)
	}

	return payload, fetchedAt, nil
}

// SetQuote stores or refreshes a cached quote payload.
func (s *SQLiteStore) SetQuote(key string, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO quote_cache (cache_key, payload, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, key, payload, time.Now())

	if err != nil {
		return fmt.Errorf("failed to cache quote: %w", err)
	}
	return nil
}

// GetVisionCache retrieves a cached identification payload by image hash.
// Returns empty string when no cache entry exists.
func (s *SQLiteStore) GetVisionCache(imageHash string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRow(
		"SELECT payload FROM vision_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&payload)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query vision cache: %w", err)
	}

	return payload, nil
}

// SetVisionCache stores an identification payload in the cache.
func (s *SQLiteStore) SetVisionCache(imageHash string, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO vision_cache (image_hash, payload)
		VALUES (?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			payload = excluded.payload,
			created_at = CURRENT_TIMESTAMP
	`, imageHash, payload)

	if err != nil {
		return fmt.Errorf("failed to cache vision result: %w", err)
	}
	return nil
}

// GetEbayToken retrieves the persisted eBay application token. Returns an
// empty token when none is stored.
func (s *SQLiteStore) GetEbayToken() (string, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var encrypted string
	var expiresAt time.Time

	err := s.db.QueryRow(
		"SELECT encrypted_token, expires_at FROM ebay_token WHERE id = 1",
	).Scan(&encrypted, &expiresAt)

	if err == sql.ErrNoRows {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to query ebay token: %w", err)
	}

	token, err := Decrypt(encrypted, s.encryptionKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decrypt ebay token: %w", err)
	}

	return string(token), expiresAt, nil
}

// SetEbayToken persists the eBay application token, encrypted at rest.
func (s *SQLiteStore) SetEbayToken(token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encrypted, err := Encrypt([]byte(token), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt ebay token: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO ebay_token (id, encrypted_token, expires_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			encrypted_token = excluded.encrypted_token,
			expires_at = excluded.expires_at
	`, encrypted, expiresAt)

	if err != nil {
		return fmt.Errorf("failed to save ebay token: %w", err)
	}
	return nil
}

// IsUserAllowed checks if a user is in the whitelist.
func (s *SQLiteStore) IsUserAllowed(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM allowed_users WHERE telegram_id = ?",
		telegramID,
	).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check allowed user: %w", err)
	}

	return count > 0, nil
}

// AddAllowedUser adds a user to the whitelist.
func (s *SQLiteStore) AddAllowedUser(telegramID, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO allowed_users (telegram_id, added_by)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			added_by = excluded.added_by,
			added_at = CURRENT_TIMESTAMP
	`, telegramID, addedBy)

	if err != nil {
		return fmt.Errorf("failed to add allowed user: %w", err)
	}
	return nil
}

// RemoveAllowedUser removes a user from the whitelist.
func (s *SQLiteStore) RemoveAllowedUser(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM allowed_users WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to remove allowed user: %w", err)
	}
	return nil
}

// GetAllowedUsers returns all users in the whitelist.
func (s *SQLiteStore) GetAllowedUsers() ([]AllowedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT telegram_id, added_at, added_by FROM allowed_users ORDER BY added_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed users: %w", err)
	}
	defer rows.Close()

	var users []AllowedUser
	for rows.Next() {
		var user AllowedUser
		if err := rows.Scan(&user.TelegramID, &user.AddedAt, &user.AddedBy); err != nil {
			return nil, fmt.Errorf("failed to scan allowed user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
