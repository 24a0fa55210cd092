package services

import (
	"context"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"github.com/chachabrian/foodbridge-backend/internal/models"
	"github.com/chachabrian/foodbridge-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPostRadiusKm = 10.0

type PostService struct {
	Options
}

type AddPostInput struct {
	AvailableFood []string         `json:"availableFood" form:"availableFood"`
	Location      string           `json:"location" form:"location"`
	Coordinates   *models.GeoPoint `json:"coordinates"`
	Description   string           `json:"description" form:"description"`
}

// AddPost publishes a donor's food, uploading the image first when given.
func (s *PostService) AddPost(ctx context.Context, p Principal, in AddPostInput, image *multipart.FileHeader) (*models.Post, error) {
	food := cleanFood(in.AvailableFood)
	location := strings.TrimSpace(in.Location)
	if len(food) == 0 {
		return nil, invalidInput("availableFood must list at least one item")
	}
	if location == "" || in.Coordinates == nil {
		return nil, invalidInput("location and coordinates are required")
	}

	post := &models.Post{
		DonorUsername: p.Username,
		AvailableFood: food,
		Location:      location,
		Coordinates:   *in.Coordinates,
		Description:   strings.TrimSpace(in.Description),
		IsAvailable:   true,
		Timestamp:     time.Now(),
	}

	if image != nil {
		stored, err := s.Storage.Upload(ctx, image, "posts")
		if err != nil {
			return nil, err
		}
		post.ImageURL = stored.URL
		post.ImageKey = stored.Key
	}

	if err := s.DB.WithContext(ctx).Create(post).Error; err != nil {
		if post.ImageKey != "" {
			s.warn("discard uploaded image", s.Storage.Delete(ctx, post.ImageKey), zap.String("key", post.ImageKey))
		}
		return nil, translate(err, "")
	}

	s.Log.Info("post created", zap.Uint("postId", post.ID), zap.String("donor", p.Username))
	return post, nil
}

// ListPostsQuery filters posts around a point when Lat and Lng are set.
type ListPostsQuery struct {
	Lat    *float64 `form:"lat"`
	Lng    *float64 `form:"lng"`
	Radius *float64 `form:"radius"`
}

// List returns available posts. With a center they are filtered by radius
// and ordered nearest first.
func (s *PostService) List(ctx context.Context, q ListPostsQuery) ([]models.Post, error) {
	db := s.DB.WithContext(ctx).Where("is_available = ?", true)

	if q.Lat == nil && q.Lng == nil {
		var posts []models.Post
		err := db.Order("timestamp DESC, id DESC").Find(&posts).Error
		return posts, err
	}
	if q.Lat == nil || q.Lng == nil {
		return nil, invalidInput("lat and lng must be given together")
	}
	if !utils.ValidCoordinates(*q.Lat, *q.Lng) {
		return nil, invalidInput("Invalid coordinates")
	}

	radius := defaultPostRadiusKm
	if q.Radius != nil {
		if *q.Radius <= 0 {
			return nil, invalidInput("radius must be positive")
		}
		radius = *q.Radius
	}

	center := utils.Point{Lat: *q.Lat, Lng: *q.Lng}
	box := utils.GetBoundingBox(center, radius)

	var candidates []models.Post
	if err := withinBox(db, "coordinates_lat", "coordinates_lng", box).Find(&candidates).Error; err != nil {
		return nil, err
	}

	return nearestPosts(candidates, center, radius), nil
}

// nearestPosts keeps posts within radiusKm of center, sorted by distance
// then id, with Distance filled in.
func nearestPosts(posts []models.Post, center utils.Point, radiusKm float64) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		d := utils.Distance(center, post.Coordinates.Point())
		if d > radiusKm {
			continue
		}
		post.Distance = &d
		out = append(out, post)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].Distance != *out[j].Distance {
			return *out[i].Distance < *out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := lookup(s.DB.WithContext(ctx).First(&post, id), "Post not found"); err != nil {
		return nil, err
	}
	return &post, nil
}

// Mine lists the donor's own posts, newest first.
func (s *PostService) Mine(ctx context.Context, p Principal) ([]models.Post, error) {
	var posts []models.Post
	err := s.DB.WithContext(ctx).
		Where("donor_username = ?", p.Username).
		Order("timestamp DESC, id DESC").
		Find(&posts).Error
	return posts, err
}

// Delete removes a post and its pending requests. Posts with accepted
// requests are kept for the orders that reference them.
func (s *PostService) Delete(ctx context.Context, p Principal, id uint) error {
	var post models.Post
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(forUpdate(tx).First(&post, id), "Post not found"); err != nil {
			return err
		}
		if post.DonorUsername != p.Username {
			return forbidden("You can only delete your own posts")
		}

		var accepted int64
		if err := tx.Model(&models.Request{}).
			Where("post_id = ? AND is_accepted = ?", post.ID, true).
			Count(&accepted).Error; err != nil {
			return err
		}
		if accepted > 0 {
			return invalidState("Post has accepted requests and cannot be deleted")
		}

		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Request{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		return err
	}

	if post.ImageKey != "" {
		s.warn("delete post image", s.Storage.Delete(ctx, post.ImageKey), zap.String("key", post.ImageKey))
	}
	s.Log.Info("post deleted", zap.Uint("postId", post.ID), zap.String("donor", p.Username))
	return nil
}
