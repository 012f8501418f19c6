package database

import (
	"database/sql"
	"fmt"
)

var _ FeedRepository = (*feedRepository)(nil)

type feedRepository struct {
	db *DB
}

func NewFeedRepository(db *DB) FeedRepository {
	return &feedRepository{db: db}
}

func (r *feedRepository) CreateFeed(feed Feed) error {
	res, err := r.db.Exec(`
		INSERT INTO feeds (id, url, title, icon, thumbnail)
		VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))
		ON CONFLICT(url) DO NOTHING
	`, feed.ID, feed.URL, feed.Title, feed.Icon, feed.Thumbnail)
	if err != nil {
		return fmt.Errorf("failed to insert feed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateURL
	}

	return nil
}

func (r *feedRepository) GetFeed(id string) (*Feed, error) {
	var feed Feed
	err := r.db.QueryRow(`
		SELECT id, url, title, COALESCE(icon, ''), COALESCE(thumbnail, '')
		FROM feeds
		WHERE id = ?
	`, id).Scan(&feed.ID, &feed.URL, &feed.Title, &feed.Icon, &feed.Thumbnail)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &feed, nil
}

func (r *feedRepository) GetFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT id, url, title, COALESCE(icon, ''), COALESCE(thumbnail, '')
		FROM feeds
		ORDER BY title, url
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var feed Feed
		if err := rows.Scan(&feed.ID, &feed.URL, &feed.Title, &feed.Icon, &feed.Thumbnail); err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

// UpdateFeedMetadata stores the title and icon discovered on a successful
// fetch of the feed document.
func (r *feedRepository) UpdateFeedMetadata(id string, title string, icon string) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET title = ?, icon = NULLIF(?, '')
		WHERE id = ?
	`, title, icon, id)
	if err != nil {
		return fmt.Errorf("failed to update feed metadata: %w", err)
	}

	return nil
}

func (r *feedRepository) GetFeedCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM feeds`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}
