package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/chachabrian/foodbridge-backend/internal/models"
	"github.com/chachabrian/foodbridge-backend/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DeliveryBoyService struct {
	Options
}

// ListForOwner returns the user's delivery boys.
func (s *DeliveryBoyService) ListForOwner(ctx context.Context, p Principal) ([]models.DeliveryBoy, error) {
	var boys []models.DeliveryBoy
	err := s.DB.WithContext(ctx).
		Where("user_username = ?", p.Username).
		Order("id ASC").
		Find(&boys).Error
	return boys, err
}

func canManage(p Principal, boy *models.DeliveryBoy) bool {
	switch p.Role {
	case models.RoleDeliveryBoy:
		return p.ID == boy.ID
	case models.RoleUser:
		return p.Username == boy.UserUsername
	}
	return false
}

// ToggleStatus switches a delivery boy between available and inactive.
func (s *DeliveryBoyService) ToggleStatus(ctx context.Context, p Principal, id uint, status string) (*models.DeliveryBoy, error) {
	if !models.IsToggleableStatus(status) {
		return nil, invalidInput("Status must be available or inactive")
	}

	var boy models.DeliveryBoy
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(forUpdate(tx).First(&boy, id), "Delivery boy not found"); err != nil {
			return err
		}
		if !canManage(p, &boy) {
			return forbidden("You cannot change this delivery boy's status")
		}

		var open int64
		if err := tx.Model(&models.Order{}).
			Where("delivery_boy_id = ? AND status <> ?", boy.ID, models.OrderDelivered).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 || boy.Status == models.DeliveryBoyBusy {
			return newError(ErrBusy, "Delivery boy has an order in progress")
		}

		boy.Status = status
		return tx.Model(&boy).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}

	s.syncIndex(ctx, &boy)
	s.Notifier.Notify(ctx, Event{
		Type: EventDeliveryBoyStatus,
		Data: map[string]interface{}{
			"deliveryBoyId":   boy.ID,
			"deliveryBoyName": boy.DeliveryBoyName,
			"status":          boy.Status,
		},
		Recipients: []Recipient{userRecipient(boy.UserUsername)},
		Title:      "Delivery boy status",
		Body:       fmt.Sprintf("%s is now %s", boy.DeliveryBoyName, boy.Status),
	})
	return &boy, nil
}

// syncIndex keeps the GEO set in line with the delivery boy's status.
func (s *DeliveryBoyService) syncIndex(ctx context.Context, boy *models.DeliveryBoy) {
	var err error
	if boy.IsAvailable() {
		err = s.Store.IndexAvailable(ctx, boy.UserUsername, boy.ID, boy.CurrentLocation.Lat, boy.CurrentLocation.Lng)
	} else {
		err = s.Store.RemoveAvailable(ctx, boy.UserUsername, boy.ID)
	}
	s.warn("sync delivery boy index", err, zap.Uint("deliveryBoyId", boy.ID))
}

type LocationInput struct {
	Lat float64 `json:"lat" binding:"latitude_range"`
	Lng float64 `json:"lng" binding:"gte=-180,lte=180"`
}

// UpdateLocation records the caller's position.
func (s *DeliveryBoyService) UpdateLocation(ctx context.Context, p Principal, in LocationInput) (*models.DeliveryBoy, error) {
	if !utils.ValidCoordinates(in.Lat, in.Lng) {
		return nil, invalidInput("Invalid coordinates")
	}

	db := s.DB.WithContext(ctx)
	var boy models.DeliveryBoy
	if err := lookup(db.First(&boy, p.ID), "Delivery boy not found"); err != nil {
		return nil, err
	}

	boy.CurrentLocation = models.GeoPoint{Lat: in.Lat, Lng: in.Lng}
	if err := db.Model(&boy).Updates(map[string]interface{}{
		"current_location_lat": in.Lat,
		"current_location_lng": in.Lng,
	}).Error; err != nil {
		return nil, err
	}

	s.warn("cache delivery boy location", s.Store.SetDeliveryBoyLocation(ctx, boy.ID, in.Lat, in.Lng), zap.Uint("deliveryBoyId", boy.ID))
	if boy.IsAvailable() {
		s.syncIndex(ctx, &boy)
	}
	return &boy, nil
}

// DeliveryBoyStatus reports where the location was read from.
type DeliveryBoyStatus struct {
	Status   string      `json:"status"`
	Location utils.Point `json:"location"`
	Source   string      `json:"source"`
}

func (s *DeliveryBoyService) Status(ctx context.Context, p Principal) (*DeliveryBoyStatus, error) {
	var boy models.DeliveryBoy
	if err := lookup(s.DB.WithContext(ctx).First(&boy, p.ID), "Delivery boy not found"); err != nil {
		return nil, err
	}

	status := &DeliveryBoyStatus{Status: boy.Status, Location: boy.CurrentLocation.Point(), Source: "database"}
	cached, err := s.Store.GetDeliveryBoyLocation(ctx, boy.ID)
	switch {
	case err == nil:
		status.Location = utils.Point{Lat: cached.Lat, Lng: cached.Lng}
		status.Source = "cache"
	case !errors.Is(err, redis.Nil):
		s.warn("read cached location", err, zap.Uint("deliveryBoyId", boy.ID))
	}
	return status, nil
}

// FindNearby returns the caller's available delivery boys closest to a
// post. The Redis GEO index answers when it yields a full page of available
// rows; otherwise the database is authoritative.
func (s *DeliveryBoyService) FindNearby(ctx context.Context, p Principal, postID uint) ([]models.DeliveryBoy, error) {
	if postID == 0 {
		return nil, invalidInput("postId is required")
	}

	var post models.Post
	if err := lookup(s.DB.WithContext(ctx).First(&post, postID), "Post not found"); err != nil {
		return nil, err
	}

	radius, limit := s.Config.NearbyRadiusKm, s.Config.NearbyLimit
	matches, err := s.Store.NearestAvailable(ctx, p.Username, post.Coordinates.Lat, post.Coordinates.Lng, radius, 0)
	if err != nil {
		s.warn("geo lookup failed, using database", err, zap.Uint("postId", postID))
		return s.nearestFromDB(ctx, p.Username, post.Coordinates, radius, limit)
	}

	boys, err := s.hydrate(ctx, p.Username, matches)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(boys) >= limit {
		return boys[:limit], nil
	}
	return s.nearestFromDB(ctx, p.Username, post.Coordinates, radius, limit)
}

// hydrate loads the matched rows in match order. Members that stopped being
// available since they were indexed are dropped from the result and the
// index.
func (s *DeliveryBoyService) hydrate(ctx context.Context, owner string, matches []GeoMatch) ([]models.DeliveryBoy, error) {
	if len(matches) == 0 {
		return []models.DeliveryBoy{}, nil
	}

	ids := make([]uint, len(matches))
	for i, m := range matches {
		ids[i] = m.DeliveryBoyID
	}

	var rows []models.DeliveryBoy
	if err := s.DB.WithContext(ctx).
		Where("id IN ? AND user_username = ? AND status = ?", ids, owner, models.DeliveryBoyAvailable).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.DeliveryBoy, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	out := make([]models.DeliveryBoy, 0, len(matches))
	for _, m := range matches {
		boy, ok := byID[m.DeliveryBoyID]
		if !ok {
			s.warn("drop stale index entry", s.Store.RemoveAvailable(ctx, owner, m.DeliveryBoyID), zap.Uint("deliveryBoyId", m.DeliveryBoyID))
			continue
		}
		d := m.DistanceKm
		boy.Distance = &d
		out = append(out, boy)
	}
	return out, nil
}

func (s *DeliveryBoyService) nearestFromDB(ctx context.Context, owner string, center models.GeoPoint, radiusKm float64, limit int) ([]models.DeliveryBoy, error) {
	box := utils.GetBoundingBox(center.Point(), radiusKm)

	var candidates []models.DeliveryBoy
	db := s.DB.WithContext(ctx).Where("user_username = ? AND status = ?", owner, models.DeliveryBoyAvailable)
	if err := withinBox(db, "current_location_lat", "current_location_lng", box).Find(&candidates).Error; err != nil {
		return nil, err
	}

	return nearestDeliveryBoys(candidates, center, radiusKm, limit), nil
}

// RebuildIndex re-adds every available delivery boy to its owner's GEO set.
// It runs at startup so a flushed or restarted Redis is repopulated.
func (s *DeliveryBoyService) RebuildIndex(ctx context.Context) (int, error) {
	if !s.Store.enabled() {
		return 0, nil
	}

	var boys []models.DeliveryBoy
	if err := s.DB.WithContext(ctx).
		Select("id", "user_username", "current_location_lat", "current_location_lng").
		Where("status = ?", models.DeliveryBoyAvailable).
		Find(&boys).Error; err != nil {
		return 0, err
	}

	for _, boy := range boys {
		if err := s.Store.IndexAvailable(ctx, boy.UserUsername, boy.ID, boy.CurrentLocation.Lat, boy.CurrentLocation.Lng); err != nil {
			return 0, fmt.Errorf("index delivery boy %d: %w", boy.ID, err)
		}
	}
	return len(boys), nil
}

func nearestDeliveryBoys(boys []models.DeliveryBoy, center models.GeoPoint, radiusKm float64, limit int) []models.DeliveryBoy {
	out := make([]models.DeliveryBoy, 0, len(boys))
	for _, boy := range boys {
		d := center.DistanceTo(boy.CurrentLocation)
		if d > radiusKm {
			continue
		}
		boy.Distance = &d
		out = append(out, boy)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].Distance != *out[j].Distance {
			return *out[i].Distance < *out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Orders lists the orders assigned to the calling delivery boy.
func (s *DeliveryBoyService) Orders(ctx context.Context, p Principal) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Where("delivery_boy_id = ?", p.ID).
		Order("timestamp DESC, id DESC").
		Find(&orders).Error
	return orders, err
}
