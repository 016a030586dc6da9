// Package notify sends push notifications to app users. Delivery is
// fire-and-forget: failures are reported but never retried.
package notify

import "context"

// Notifier abstracts the push service so the pipeline can run without
// credentials (NoOp) and tests can observe dispatches.
type Notifier interface {
	// Broadcast sends a notification to every subscriber of a topic.
	Broadcast(ctx context.Context, topic, title, body string, data map[string]string) error

	// SendTo sends a targeted notification to one device token.
	SendTo(ctx context.Context, token, title, body string) error
}

// NoOp is the Notifier used when push credentials are absent.
type NoOp struct{}

func NewNoOp() *NoOp { return &NoOp{} }

func (NoOp) Broadcast(context.Context, string, string, string, map[string]string) error {
	return nil
}

func (NoOp) SendTo(context.Context, string, string, string) error {
	return nil
}
