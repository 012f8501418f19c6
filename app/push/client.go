package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/hasali19/tress/app/database"
)

// ErrSubscriptionGone is returned when the push endpoint reports itself
// permanently gone (410, or 404 from services that expire endpoints that
// way). The caller is responsible for deleting the subscription; this
// client never touches storage.
var ErrSubscriptionGone = errors.New("push subscription is gone")

// Client sends encrypted, VAPID-signed push messages to one subscriber
// endpoint at a time.
type Client struct {
	httpClient *http.Client
	subscriber string
	publicKey  string
	privateKey string
}

func NewClient(httpClient *http.Client, subscriber, vapidPublicKey, vapidPrivateKey string) *Client {
	return &Client{
		httpClient: httpClient,
		subscriber: subscriber,
		publicKey:  vapidPublicKey,
		privateKey: vapidPrivateKey,
	}
}

// Send encrypts the payload to the subscription's credentials, signs the
// request with the service VAPID key pair and posts it to the endpoint.
func (c *Client) Send(ctx context.Context, sub database.PushSubscription, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.AuthKey,
			P256dh: sub.P256dhKey,
		},
	}, &webpush.Options{
		HTTPClient:      c.httpClient,
		Subscriber:      c.subscriber,
		TTL:             3600,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
	})
	if err != nil {
		return fmt.Errorf("failed to send push message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrSubscriptionGone
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push endpoint returned %d %s", resp.StatusCode, resp.Status)
	}

	return nil
}
