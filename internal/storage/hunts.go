package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Hunt represents a user's recurring undervalued-listing search.
type Hunt struct {
	ID        string
	UserID    int64
	Query     string
	ItemType  string
	CreatedAt time.Time
}

// CreateHunt creates a new hunt for a user.
func (s *SQLiteStore) CreateHunt(userID int64, query, itemType string) (*Hunt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hunt := &Hunt{
		ID:        uuid.New().String(),
		UserID:    userID,
		Query:     query,
		ItemType:  itemType,
		CreatedAt: time.Now(),
	}

	_, err := s.db.Exec(
		`INSERT INTO hunts (id, user_id, query, item_type, created_at) VALUES (?, ?, ?, ?, ?)`,
		hunt.ID, hunt.UserID, hunt.Query, hunt.ItemType, hunt.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create hunt: %w", err)
	}

	return hunt, nil
}

// GetHuntsByUser retrieves all hunts for a specific user.
func (s *SQLiteStore) GetHuntsByUser(userID int64) ([]Hunt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, user_id, query, item_type, created_at FROM hunts WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query hunts: %w", err)
	}
	defer rows.Close()

	return scanHunts(rows)
}

// GetAllHunts retrieves all hunts across all users (for polling).
func (s *SQLiteStore) GetAllHunts() ([]Hunt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, user_id, query, item_type, created_at FROM hunts`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all hunts: %w", err)
	}
	defer rows.Close()

	return scanHunts(rows)
}

func scanHunts(rows *sql.Rows) ([]Hunt, error) {
	var hunts []Hunt
	for rows.Next() {
		var h Hunt
		if err := rows.Scan(&h.ID, &h.UserID, &h.Query, &h.ItemType, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hunt: %w", err)
		}
		hunts = append(hunts, h)
	}
	return hunts, rows.Err()
}

// GetHunt retrieves a single hunt by ID. Returns nil, nil when not found.
func (s *SQLiteStore) GetHunt(id string) (*Hunt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var h Hunt
	err := s.db.QueryRow(
		`SELECT id, user_id, query, item_type, created_at FROM hunts WHERE id = ?`,
		id,
	).Scan(&h.ID, &h.UserID, &h.Query, &h.ItemType, &h.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hunt: %w", err)
	}

	return &h, nil
}

// DeleteHunt removes a hunt by ID and user ID (for security).
func (s *SQLiteStore) DeleteHunt(id string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM hunts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete hunt: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("hunt not found")
	}

	return nil
}

// CountHuntsByUser returns the number of hunts for a user.
func (s *SQLiteStore) CountHuntsByUser(userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM hunts WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count hunts: %w", err)
	}

	return count, nil
}

// HuntExistsForQuery checks if a hunt already exists for a user and query.
func (s *SQLiteStore) HuntExistsForQuery(userID int64, query string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM hunts WHERE user_id = ? AND query = ?`,
		userID, query,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check hunt exists: %w", err)
	}

	return count > 0, nil
}

// IsListingSeen checks if a listing has already been seen for a hunt.
func (s *SQLiteStore) IsListingSeen(huntID, listingID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM hunt_seen_listings WHERE hunt_id = ? AND listing_id = ?`,
		huntID, listingID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check seen listing: %w", err)
	}

	return count > 0, nil
}

// MarkListingsSeenBatch marks multiple listings as seen for a hunt in one
// transaction.
func (s *SQLiteStore) MarkListingsSeenBatch(huntID string, listingIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO hunt_seen_listings (hunt_id, listing_id, seen_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, listingID := range listingIDs {
		if _, err := stmt.Exec(huntID, listingID, now); err != nil {
			return fmt.Errorf("failed to mark listing as seen: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSeenListingIDs returns all seen listing IDs for a hunt.
func (s *SQLiteStore) GetSeenListingIDs(huntID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT listing_id FROM hunt_seen_listings WHERE hunt_id = ?`, huntID)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen listings: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var listingID string
		if err := rows.Scan(&listingID); err != nil {
			return nil, fmt.Errorf("failed to scan listing ID: %w", err)
		}
		seen[listingID] = true
	}

	return seen, rows.Err()
}

// PruneOldSeenListings removes seen listings older than the given duration.
func (s *SQLiteStore) PruneOldSeenListings(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	result, err := s.db.Exec(`DELETE FROM hunt_seen_listings WHERE seen_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune old seen listings: %w", err)
	}

	return result.RowsAffected()
}
