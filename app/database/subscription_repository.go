package database

import (
	"fmt"
)

var _ SubscriptionRepository = (*subscriptionRepository)(nil)

type subscriptionRepository struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// UpsertSubscription registers a push endpoint, replacing credentials in
// place when the endpoint is already known.
func (r *subscriptionRepository) UpsertSubscription(sub PushSubscription) error {
	_, err := r.db.Exec(`
		INSERT INTO push_subscriptions (endpoint, auth_key, p256dh_key)
		VALUES (?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			auth_key = excluded.auth_key,
			p256dh_key = excluded.p256dh_key
	`, sub.Endpoint, sub.AuthKey, sub.P256dhKey)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

func (r *subscriptionRepository) GetSubscriptions() ([]PushSubscription, error) {
	rows, err := r.db.Query(`
		SELECT id, endpoint, auth_key, p256dh_key
		FROM push_subscriptions
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []PushSubscription
	for rows.Next() {
		var sub PushSubscription
		if err := rows.Scan(&sub.ID, &sub.Endpoint, &sub.AuthKey, &sub.P256dhKey); err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}

	return subs, nil
}

func (r *subscriptionRepository) DeleteSubscription(id int64) error {
	_, err := r.db.Exec(`DELETE FROM push_subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	return nil
}
