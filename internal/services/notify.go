package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chachabrian/foodbridge-backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Event types pushed to websocket clients.
const (
	EventNewRequest        = "new_request"
	EventRequestAccepted   = "request_accepted"
	EventOrderAssigned     = "order_assigned"
	EventOrderStatusUpdate = "order_status_update"
	EventDeliveryBoyStatus = "delivery_boy_status"
)

type Recipient struct {
	Role     string `json:"role"`
	Username string `json:"username"`
}

// Event is what services emit. Title and Body are only used for push.
type Event struct {
	Type       string      `json:"type"`
	Data       interface{} `json:"data"`
	Recipients []Recipient `json:"recipients"`
	Title      string      `json:"-"`
	Body       string      `json:"-"`
}

// Notifier fans events out to websockets and push.
type Notifier struct {
	db    *gorm.DB
	hub   *Hub
	store *Store
	push  Pusher
	log   *zap.Logger
}

// NewNotifier wires delivery. A nil store delivers to the local hub only;
// a nil hub drops websocket delivery.
func NewNotifier(db *gorm.DB, hub *Hub, store *Store, push Pusher, log *zap.Logger) *Notifier {
	if push == nil {
		push = noopPusher{}
	}
	return &Notifier{db: db, hub: hub, store: store, push: push, log: log}
}

// Notify never fails the caller; delivery problems are logged.
func (n *Notifier) Notify(ctx context.Context, ev Event) {
	if n == nil || len(ev.Recipients) == 0 {
		return
	}

	if n.store.enabled() {
		payload, err := json.Marshal(ev)
		if err == nil {
			err = n.store.Publish(ctx, payload)
		}
		if err != nil {
			n.log.Warn("publish event failed, delivering locally", zap.String("event", ev.Type), zap.Error(err))
			n.deliverLocal(ev.Type, ev.Data, ev.Recipients)
		}
	} else {
		n.deliverLocal(ev.Type, ev.Data, ev.Recipients)
	}

	if n.push.Enabled() {
		n.sendPush(ctx, ev)
	}
}

func (n *Notifier) deliverLocal(eventType string, data interface{}, recipients []Recipient) {
	if n.hub == nil {
		return
	}
	message, err := json.Marshal(WebSocketMessage{Type: eventType, Data: data})
	if err != nil {
		n.log.Error("marshal websocket message", zap.String("event", eventType), zap.Error(err))
		return
	}
	for _, r := range recipients {
		n.hub.SendTo(r.Role, r.Username, message)
	}
}

type relayedEvent struct {
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	Recipients []Recipient     `json:"recipients"`
}

// Relay forwards events published by any instance to this instance's
// websocket clients until ctx is done.
func (n *Notifier) Relay(ctx context.Context) {
	if !n.store.enabled() {
		return
	}

	pubsub := n.store.Subscribe(ctx)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev relayedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				n.log.Warn("malformed relayed event", zap.Error(err))
				continue
			}
			n.deliverLocal(ev.Type, ev.Data, ev.Recipients)
		}
	}
}

func (n *Notifier) sendPush(ctx context.Context, ev Event) {
	title, body := ev.Title, ev.Body
	if title == "" {
		title = "FoodBridge"
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, r := range ev.Recipients {
		token, err := n.fcmToken(ctx, r)
		if err != nil {
			n.log.Warn("lookup fcm token", zap.String("role", r.Role), zap.String("username", r.Username), zap.Error(err))
			continue
		}
		if token == "" {
			continue
		}
		payload := NotificationPayload{
			Title: title,
			Body:  body,
			Data:  map[string]interface{}{"type": ev.Type, "data": ev.Data},
		}
		if err := n.push.SendToToken(ctx, token, payload); err != nil {
			n.log.Warn("push notification failed", zap.String("role", r.Role), zap.String("username", r.Username), zap.Error(err))
		}
	}
}

func (n *Notifier) fcmToken(ctx context.Context, r Recipient) (string, error) {
	var token string
	q := n.db.WithContext(ctx)
	var err error
	switch r.Role {
	case models.RoleUser:
		err = q.Model(&models.User{}).Select("fcm_token").Where("username = ?", r.Username).Scan(&token).Error
	case models.RoleDonor:
		err = q.Model(&models.Donor{}).Select("fcm_token").Where("username = ?", r.Username).Scan(&token).Error
	case models.RoleDeliveryBoy:
		err = q.Model(&models.DeliveryBoy{}).Select("fcm_token").Where("delivery_boy_name = ?", r.Username).Scan(&token).Error
	}
	return token, err
}

func userRecipient(username string) Recipient {
	return Recipient{Role: models.RoleUser, Username: username}
}

func donorRecipient(username string) Recipient {
	return Recipient{Role: models.RoleDonor, Username: username}
}

func deliveryBoyRecipient(name string) Recipient {
	return Recipient{Role: models.RoleDeliveryBoy, Username: name}
}
