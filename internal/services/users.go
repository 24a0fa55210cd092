package services

import (
	"context"

	"github.com/chachabrian/foodbridge-backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserService struct {
	Options
	requests *RequestService
}

type UpdateUserInput struct {
	Address *models.AddressPatch `json:"address"`
}

// UpdateUser changes the caller's address. The address is only merged when
// it carries a full coordinate pair.
func (s *UserService) UpdateUser(ctx context.Context, p Principal, userID uint, in UpdateUserInput) (*models.User, error) {
	if !p.Is(models.RoleUser) || p.ID != userID {
		return nil, forbidden("You can only update your own profile")
	}

	var user models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(forUpdate(tx).First(&user, userID), "User not found"); err != nil {
			return err
		}

		changed, err := user.Address.Merge(in.Address)
		if err != nil {
			return invalidInput("%s", err.Error())
		}
		if !changed {
			return nil
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Profile(ctx context.Context, p Principal) (*models.User, error) {
	var user models.User
	if err := lookup(s.DB.WithContext(ctx).Where("username = ?", p.Username).First(&user), "User not found"); err != nil {
		return nil, err
	}
	return &user, nil
}

// Home returns the user with the donors it has requested from.
func (s *UserService) Home(ctx context.Context, p Principal) (*models.User, []string, error) {
	user, err := s.Profile(ctx, p)
	if err != nil {
		return nil, nil, err
	}

	var requests []models.Request
	if err := s.DB.WithContext(ctx).
		Select("donor_username", "timestamp").
		Where("user_username = ?", user.Username).
		Order("timestamp ASC").
		Find(&requests).Error; err != nil {
		return nil, nil, err
	}

	return user, models.DonorList(requests), nil
}

// SendRequest asks for the food in a post on behalf of the caller.
func (s *UserService) SendRequest(ctx context.Context, p Principal, postID uint) (*models.Request, error) {
	if postID == 0 {
		return nil, invalidInput("post_id is required")
	}

	post, err := s.requests.availablePost(ctx, postID)
	if err != nil {
		return nil, err
	}

	request, err := s.requests.create(ctx, &models.Request{
		DonorUsername: post.DonorUsername,
		UserUsername:  p.Username,
		PostID:        post.ID,
		Location:      post.Location,
		AvailableFood: post.AvailableFood,
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("request sent", zap.Uint("requestId", request.ID), zap.Uint("postId", post.ID), zap.String("user", p.Username))
	return request, nil
}
