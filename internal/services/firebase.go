package services

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// NotificationPayload represents the notification data
type NotificationPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
	Image string                 `json:"image,omitempty"`
}

// Pusher delivers push notifications to device tokens.
type Pusher interface {
	Enabled() bool
	SendToToken(ctx context.Context, token string, payload NotificationPayload) error
}

type noopPusher struct{}

func (noopPusher) Enabled() bool { return false }

func (noopPusher) SendToToken(context.Context, string, NotificationPayload) error { return nil }

// FCMPusher sends through Firebase Cloud Messaging.
type FCMPusher struct {
	client *messaging.Client
	log    *zap.Logger
}

// InitFirebase initializes the Firebase Admin SDK. Without a service account
// path push notifications are disabled.
func InitFirebase(ctx context.Context, serviceAccountPath string, log *zap.Logger) (Pusher, error) {
	if serviceAccountPath == "" {
		log.Warn("FIREBASE_SERVICE_ACCOUNT_PATH not set, push notifications disabled")
		return noopPusher{}, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return noopPusher{}, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return noopPusher{}, fmt.Errorf("error getting messaging client: %w", err)
	}

	log.Info("Firebase Cloud Messaging initialized")
	return &FCMPusher{client: client, log: log}, nil
}

func (p *FCMPusher) Enabled() bool {
	return p.client != nil
}

// SendToToken sends a notification to a specific FCM token
func (p *FCMPusher) SendToToken(ctx context.Context, token string, payload NotificationPayload) error {
	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title:    payload.Title,
			Body:     payload.Body,
			ImageURL: payload.Image,
		},
		Data:    stringData(payload.Data),
		Token:   token,
		Android: androidConfig(),
		APNS:    apnsConfig(),
	}

	response, err := p.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}

	p.log.Debug("push notification sent", zap.String("response", response))
	return nil
}

// stringData flattens data values, FCM only carries strings.
func stringData(data map[string]interface{}) map[string]string {
	out := make(map[string]string, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case string:
			out[key] = v
		case int, int64, uint, float64, bool:
			out[key] = fmt.Sprintf("%v", v)
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[key] = string(raw)
		}
	}
	return out
}

func androidConfig() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Sound:                 "default",
			ChannelID:             "foodbridge_default",
			Priority:              messaging.PriorityHigh,
			DefaultSound:          true,
			DefaultVibrateTimings: true,
		},
	}
}

func apnsConfig() *messaging.APNSConfig {
	badge := 1
	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound:          "default",
				Badge:          &badge,
				MutableContent: true,
			},
		},
	}
}
