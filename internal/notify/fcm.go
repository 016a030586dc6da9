package notify

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCM sends push notifications through Firebase Cloud Messaging.
type FCM struct {
	client *messaging.Client
}

// NewFCM initializes the Firebase Admin SDK from a service account file.
func NewFCM(ctx context.Context, credentialsFile string) (*FCM, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &FCM{client: client}, nil
}

func (f *FCM) Broadcast(ctx context.Context, topic, title, body string, data map[string]string) error {
	id, err := f.client.Send(ctx, &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  truncateBody(body),
		},
		Data:  data,
		Topic: topic,
	})
	if err != nil {
		return fmt.Errorf("broadcast to %q: %w", topic, err)
	}
	slog.Info("broadcast sent", "topic", topic, "message_id", id)
	return nil
}

func (f *FCM) SendTo(ctx context.Context, token, title, body string) error {
	id, err := f.client.Send(ctx, &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  truncateBody(body),
		},
		Token: token,
	})
	if err != nil {
		return fmt.Errorf("send to token: %w", err)
	}
	slog.Info("targeted notification sent", "message_id", id)
	return nil
}

// Notification bodies past ~100 chars get clipped by the tray anyway.
func truncateBody(body string) string {
	const maxLen = 100
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen]
}
