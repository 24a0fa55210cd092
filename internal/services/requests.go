package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/chachabrian/foodbridge-backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RequestService struct {
	Options
}

type AddRequestInput struct {
	DonorUsername string   `json:"donorUsername"`
	Location      string   `json:"location"`
	AvailableFood []string `json:"availableFood"`
	PostID        uint     `json:"post_id"`
}

// AddRequest creates a request from the caller for food listed in a donor's
// post.
func (s *RequestService) AddRequest(ctx context.Context, p Principal, in AddRequestInput) (*models.Request, error) {
	in.DonorUsername = strings.TrimSpace(in.DonorUsername)
	in.Location = strings.TrimSpace(in.Location)
	food := cleanFood(in.AvailableFood)
	if in.DonorUsername == "" || in.Location == "" || len(food) == 0 || in.PostID == 0 {
		return nil, invalidInput("All fields are required")
	}

	post, err := s.availablePost(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.DonorUsername != in.DonorUsername {
		return nil, invalidInput("Post %d does not belong to donor %s", post.ID, in.DonorUsername)
	}
	if !offers(post.AvailableFood, food) {
		return nil, invalidInput("availableFood must only list items offered in the post")
	}

	return s.create(ctx, &models.Request{
		DonorUsername: post.DonorUsername,
		UserUsername:  p.Username,
		PostID:        post.ID,
		Location:      in.Location,
		AvailableFood: food,
	})
}

// availablePost loads a post that can still be requested.
func (s *RequestService) availablePost(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	if err := lookup(s.DB.WithContext(ctx).First(&post, postID), "Post not found"); err != nil {
		return nil, err
	}
	if !post.IsAvailable {
		return nil, invalidState("Post is no longer available")
	}
	return &post, nil
}

// offers reports whether every wanted item is listed, ignoring case.
func offers(listed, wanted []string) bool {
	have := make(map[string]bool, len(listed))
	for _, item := range listed {
		have[strings.ToLower(strings.TrimSpace(item))] = true
	}
	for _, item := range wanted {
		if !have[strings.ToLower(item)] {
			return false
		}
	}
	return true
}

func (s *RequestService) create(ctx context.Context, request *models.Request) (*models.Request, error) {
	db := s.DB.WithContext(ctx)

	var existing int64
	if err := db.Model(&models.Request{}).
		Where("user_username = ? AND post_id = ?", request.UserUsername, request.PostID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, conflict("You have already requested this post")
	}

	if err := db.Create(request).Error; err != nil {
		return nil, translate(err, "You have already requested this post")
	}

	s.Notifier.Notify(ctx, Event{
		Type:       EventNewRequest,
		Data:       request,
		Recipients: []Recipient{donorRecipient(request.DonorUsername)},
		Title:      "New food request",
		Body:       fmt.Sprintf("%s requested %s", request.UserUsername, strings.Join(request.AvailableFood, ", ")),
	})
	return request, nil
}

// ForDonor lists every request sent to the donor, newest first.
func (s *RequestService) ForDonor(ctx context.Context, p Principal) ([]models.Request, error) {
	var requests []models.Request
	err := s.DB.WithContext(ctx).
		Where("donor_username = ?", p.Username).
		Order("timestamp DESC, id DESC").
		Find(&requests).Error
	return requests, err
}

// ForUser lists the caller's requests, newest first.
func (s *RequestService) ForUser(ctx context.Context, p Principal) ([]models.Request, error) {
	var requests []models.Request
	err := s.DB.WithContext(ctx).
		Where("user_username = ?", p.Username).
		Order("timestamp DESC, id DESC").
		Find(&requests).Error
	return requests, err
}

// Accepted lists the caller's accepted requests still waiting for a
// delivery boy.
func (s *RequestService) Accepted(ctx context.Context, p Principal) ([]models.Request, error) {
	var requests []models.Request
	err := s.DB.WithContext(ctx).
		Where("user_username = ? AND is_accepted = ? AND is_assigned = ?", p.Username, true, false).
		Order("timestamp DESC, id DESC").
		Find(&requests).Error
	return requests, err
}

// Accept marks a pending request accepted, credits the user and takes the
// post off the board. Once a post is taken its other requests can no longer
// be accepted.
func (s *RequestService) Accept(ctx context.Context, p Principal, requestID uint) (*models.Request, error) {
	var request models.Request
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(forUpdate(tx).First(&request, requestID), "Request not found"); err != nil {
			return err
		}
		if request.DonorUsername != p.Username {
			return forbidden("This request was not sent to you")
		}
		if request.IsAccepted {
			return conflict("Request already accepted")
		}

		var post models.Post
		if err := lookup(forUpdate(tx).First(&post, request.PostID), "Post not found"); err != nil {
			return err
		}
		if !post.IsAvailable {
			return conflict("Post is no longer available")
		}

		if err := tx.Model(&request).Update("is_accepted", true).Error; err != nil {
			return err
		}

		result := tx.Model(&models.User{}).
			Where("username = ?", request.UserUsername).
			UpdateColumn("donor_orders_count", gorm.Expr("donor_orders_count + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFound("User with username %s does not exist", request.UserUsername)
		}

		return tx.Model(&post).Update("is_available", false).Error
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("request accepted", zap.Uint("requestId", request.ID), zap.String("donor", p.Username))
	s.Notifier.Notify(ctx, Event{
		Type:       EventRequestAccepted,
		Data:       request,
		Recipients: []Recipient{userRecipient(request.UserUsername)},
		Title:      "Request accepted",
		Body:       fmt.Sprintf("%s accepted your request", request.DonorUsername),
	})
	return &request, nil
}

// Reject deletes a pending request.
func (s *RequestService) Reject(ctx context.Context, p Principal, requestID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request models.Request
		if err := lookup(forUpdate(tx).First(&request, requestID), "Request not found"); err != nil {
			return err
		}
		if request.DonorUsername != p.Username {
			return forbidden("This request was not sent to you")
		}
		if !request.IsPending() {
			return invalidState("Only pending requests can be rejected")
		}
		return tx.Delete(&request).Error
	})
}

func cleanFood(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
