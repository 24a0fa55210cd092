package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/foodbridge-backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderService struct {
	Options
}

type AssignOrderInput struct {
	RequestID        uint   `json:"requestId"`
	DeliveryBoyID    uint   `json:"deliveryBoyId"`
	DeliveryLocation string `json:"deliveryLocation"`
}

// Assign hands an accepted request to one of the caller's available
// delivery boys. A Redis lock per delivery boy keeps concurrent assignments
// from racing; the row locks inside the transaction are the final check.
func (s *OrderService) Assign(ctx context.Context, p Principal, in AssignOrderInput) (*models.Order, error) {
	in.DeliveryLocation = strings.TrimSpace(in.DeliveryLocation)
	if in.RequestID == 0 || in.DeliveryBoyID == 0 || in.DeliveryLocation == "" {
		return nil, invalidInput("requestId, deliveryBoyId and deliveryLocation are required")
	}

	if client := s.Store.Client(); client != nil {
		lock := NewRedisLock(client, DeliveryBoyLockKey(in.DeliveryBoyID), s.Config.AssignLockTTL)
		switch err := lock.Acquire(ctx); {
		case err == nil:
			defer func() {
				s.warn("release assignment lock", lock.Release(context.WithoutCancel(ctx)), zap.Uint("deliveryBoyId", in.DeliveryBoyID))
			}()
		case errors.Is(err, ErrLockNotAcquired):
			return nil, newError(ErrBusy, "Delivery boy is being assigned")
		default:
			s.warn("assignment lock unavailable, relying on row locks", err, zap.Uint("deliveryBoyId", in.DeliveryBoyID))
		}
	}

	var (
		order models.Order
		boy   models.DeliveryBoy
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request models.Request
		if err := lookup(forUpdate(tx).First(&request, in.RequestID), "Request not found"); err != nil {
			return err
		}
		if request.UserUsername != p.Username {
			return forbidden("This request does not belong to you")
		}
		if !request.IsAccepted {
			return invalidState("Request has not been accepted by the donor")
		}
		if request.IsAssigned {
			return conflict("Request is already assigned")
		}

		if err := lookup(forUpdate(tx).First(&boy, in.DeliveryBoyID), "Delivery boy not found"); err != nil {
			return err
		}
		if boy.UserUsername != p.Username {
			return forbidden("This delivery boy does not belong to you")
		}
		if !boy.IsAvailable() {
			return newError(ErrBusy, "Delivery boy is not available")
		}

		pickup, coords, err := pickupFor(tx, &request)
		if err != nil {
			return err
		}

		order = models.Order{
			RequestID:                 request.ID,
			DonorUsername:             request.DonorUsername,
			UserUsername:              request.UserUsername,
			DeliveryBoyID:             boy.ID,
			DeliveryBoyName:           boy.DeliveryBoyName,
			PickupLocation:            pickup,
			PickupLocationCoordinates: coords,
			DeliveryLocation:          in.DeliveryLocation,
			Status:                    models.OrderOnGoing,
			Timestamp:                 time.Now(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return translate(err, "Request is already assigned")
		}

		if err := tx.Model(&request).Update("is_assigned", true).Error; err != nil {
			return err
		}
		boy.Status = models.DeliveryBoyBusy
		return tx.Model(&boy).Update("status", models.DeliveryBoyBusy).Error
	})
	if err != nil {
		return nil, err
	}

	s.warn("remove delivery boy from index", s.Store.RemoveAvailable(ctx, boy.UserUsername, boy.ID), zap.Uint("deliveryBoyId", boy.ID))
	s.Log.Info("order assigned",
		zap.Uint("orderId", order.ID),
		zap.Uint("requestId", order.RequestID),
		zap.Uint("deliveryBoyId", boy.ID),
	)

	s.Notifier.Notify(ctx, Event{
		Type:       EventOrderAssigned,
		Data:       order,
		Recipients: []Recipient{deliveryBoyRecipient(boy.DeliveryBoyName), userRecipient(order.UserUsername)},
		Title:      "New delivery",
		Body:       fmt.Sprintf("Pick up from %s and deliver to %s", order.PickupLocation, order.DeliveryLocation),
	})
	return &order, nil
}

// pickupFor prefers the post's location. When the post is gone the request
// text and the donor's address coordinates are used.
func pickupFor(tx *gorm.DB, request *models.Request) (string, models.GeoPoint, error) {
	var post models.Post
	err := tx.First(&post, request.PostID).Error
	if err == nil {
		return post.Location, post.Coordinates, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", models.GeoPoint{}, err
	}

	var donor models.Donor
	if err := lookup(tx.Where("username = ?", request.DonorUsername).First(&donor),
		fmt.Sprintf("Donor with username %s does not exist", request.DonorUsername)); err != nil {
		return "", models.GeoPoint{}, err
	}
	return request.Location, donor.Address.Coordinates, nil
}

// ForUser lists the caller's orders, newest first.
func (s *OrderService) ForUser(ctx context.Context, p Principal) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Where("user_username = ?", p.Username).
		Order("timestamp DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

func canView(p Principal, order *models.Order) bool {
	switch p.Role {
	case models.RoleUser:
		return order.UserUsername == p.Username
	case models.RoleDonor:
		return order.DonorUsername == p.Username
	case models.RoleDeliveryBoy:
		return order.DeliveryBoyID == p.ID
	}
	return false
}

func (s *OrderService) Get(ctx context.Context, p Principal, id uint) (*models.Order, error) {
	var order models.Order
	if err := lookup(s.DB.WithContext(ctx).First(&order, id), "Order not found"); err != nil {
		return nil, err
	}
	if !canView(p, &order) {
		return nil, forbidden("You cannot view this order")
	}
	return &order, nil
}

// UpdateStatus moves an order forward. Delivery credits every party and
// frees the delivery boy in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, p Principal, id uint, status string) (*models.Order, error) {
	var (
		order models.Order
		boy   models.DeliveryBoy
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(forUpdate(tx).First(&order, id), "Order not found"); err != nil {
			return err
		}
		if !p.Is(models.RoleDeliveryBoy) || order.DeliveryBoyID != p.ID {
			return forbidden("Only the assigned delivery boy can update this order")
		}
		if !models.CanTransition(order.Status, status) {
			return invalidState("Cannot change order status from %s to %s", order.Status, status)
		}

		updates := map[string]interface{}{"status": status}
		if status == models.OrderDelivered {
			now := time.Now()
			order.DeliveredAt = &now
			updates["delivered_at"] = now
		}
		order.Status = status
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return err
		}

		if status != models.OrderDelivered {
			return nil
		}
		return completeDelivery(tx, &order, &boy)
	})
	if err != nil {
		return nil, err
	}

	if order.IsFinished() {
		s.warn("reindex delivery boy", s.Store.IndexAvailable(ctx, boy.UserUsername, boy.ID, boy.CurrentLocation.Lat, boy.CurrentLocation.Lng),
			zap.Uint("deliveryBoyId", boy.ID))
	}
	s.Log.Info("order status updated", zap.Uint("orderId", order.ID), zap.String("status", order.Status))

	s.Notifier.Notify(ctx, Event{
		Type: EventOrderStatusUpdate,
		Data: order,
		Recipients: []Recipient{
			userRecipient(order.UserUsername),
			donorRecipient(order.DonorUsername),
			deliveryBoyRecipient(order.DeliveryBoyName),
		},
		Title: "Order update",
		Body:  fmt.Sprintf("Order #%d is now %s", order.ID, order.Status),
	})
	return &order, nil
}

// completeDelivery credits the counters of every party and frees the
// delivery boy. boy is loaded for reindexing after commit.
func completeDelivery(tx *gorm.DB, order *models.Order, boy *models.DeliveryBoy) error {
	if err := lookup(forUpdate(tx).First(boy, order.DeliveryBoyID), "Delivery boy not found"); err != nil {
		return err
	}
	boy.Status = models.DeliveryBoyAvailable
	boy.DeliveredOrders++
	if err := tx.Model(boy).Updates(map[string]interface{}{
		"status":           models.DeliveryBoyAvailable,
		"delivered_orders": gorm.Expr("delivered_orders + ?", 1),
	}).Error; err != nil {
		return err
	}

	if err := tx.Model(&models.User{}).
		Where("username = ?", order.UserUsername).
		UpdateColumn("delivered_orders_count", gorm.Expr("delivered_orders_count + ?", 1)).Error; err != nil {
		return err
	}
	return tx.Model(&models.Donor{}).
		Where("username = ?", order.DonorUsername).
		UpdateColumn("donated_orders_count", gorm.Expr("donated_orders_count + ?", 1)).Error
}

// Rate records the donor's score for a delivered order and refreshes the
// user's average.
func (s *OrderService) Rate(ctx context.Context, p Principal, orderID uint, value int) (*models.Rating, float64, error) {
	if !models.ValidRatingValue(value) {
		return nil, 0, invalidInput("Rating must be between 1 and 5")
	}

	var (
		rating models.Rating
		user   models.User
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := lookup(forUpdate(tx).First(&order, orderID), "Order not found"); err != nil {
			return err
		}
		if order.DonorUsername != p.Username {
			return forbidden("You can only rate your own orders")
		}
		if !order.IsFinished() {
			return invalidState("Only delivered orders can be rated")
		}

		var existing int64
		if err := tx.Model(&models.Rating{}).Where("order_id = ?", order.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return conflict("Order already rated")
		}

		rating = models.Rating{
			OrderID:       order.ID,
			DonorUsername: order.DonorUsername,
			UserUsername:  order.UserUsername,
			Value:         value,
		}
		if err := tx.Create(&rating).Error; err != nil {
			return translate(err, "Order already rated")
		}

		if err := lookup(forUpdate(tx).Where("username = ?", order.UserUsername).First(&user),
			fmt.Sprintf("User with username %s does not exist", order.UserUsername)); err != nil {
			return err
		}

		var values []int
		if err := tx.Model(&models.Rating{}).Where("user_username = ?", user.Username).Pluck("value", &values).Error; err != nil {
			return err
		}
		user.UpdateRating(values)
		return tx.Model(&user).Update("rating", user.Rating).Error
	})
	if err != nil {
		return nil, 0, err
	}

	s.Log.Info("order rated", zap.Uint("orderId", orderID), zap.Int("value", value), zap.Float64("userRating", user.Rating))
	return &rating, user.Rating, nil
}
