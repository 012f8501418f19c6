package database

import (
	"fmt"
)

var _ PostRepository = (*postRepository)(nil)

type postRepository struct {
	db *DB
}

func NewPostRepository(db *DB) PostRepository {
	return &postRepository{db: db}
}

// CreatePost inserts a post keyed by url. A conflict on url returns
// ErrDuplicateURL; re-ingesting a known url never updates the existing row.
func (r *postRepository) CreatePost(post Post) error {
	res, err := r.db.Exec(`
		INSERT INTO posts (id, feed_id, url, title, description, content, publish_time, thumbnail)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, NULLIF(?, ''))
		ON CONFLICT(url) DO NOTHING
	`, post.ID, post.FeedID, post.URL, post.Title, post.Description,
		post.Content, post.PublishTime, post.Thumbnail)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
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

func (r *postRepository) GetPosts() ([]Post, error) {
	rows, err := r.db.Query(`
		SELECT id, feed_id, url, title, COALESCE(description, ''),
		       COALESCE(content, ''), publish_time, COALESCE(thumbnail, '')
		FROM posts
		ORDER BY publish_time DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var post Post
		err := rows.Scan(&post.ID, &post.FeedID, &post.URL, &post.Title,
			&post.Description, &post.Content, &post.PublishTime, &post.Thumbnail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

// UpdatePostThumbnail backfills the thumbnail found by enrichment. The only
// post field mutated after creation.
func (r *postRepository) UpdatePostThumbnail(id string, thumbnail string) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET thumbnail = NULLIF(?, '')
		WHERE id = ?
	`, thumbnail, id)
	if err != nil {
		return fmt.Errorf("failed to update post thumbnail: %w", err)
	}

	return nil
}

func (r *postRepository) GetPostCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}
