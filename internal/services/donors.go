package services

import (
	"context"

	"github.com/chachabrian/foodbridge-backend/internal/models"
)

type DonorService struct {
	Options
}

func (s *DonorService) Profile(ctx context.Context, p Principal) (*models.Donor, error) {
	var donor models.Donor
	if err := lookup(s.DB.WithContext(ctx).Where("username = ?", p.Username).First(&donor), "Donor not found"); err != nil {
		return nil, err
	}
	return &donor, nil
}

// DonorHome is the donor dashboard.
type DonorHome struct {
	Donor           *models.Donor    `json:"donor"`
	Posts           []models.Post    `json:"posts"`
	PendingRequests []models.Request `json:"pendingRequests"`
}

func (s *DonorService) Home(ctx context.Context, p Principal) (*DonorHome, error) {
	donor, err := s.Profile(ctx, p)
	if err != nil {
		return nil, err
	}

	home := &DonorHome{Donor: donor, Posts: []models.Post{}, PendingRequests: []models.Request{}}
	db := s.DB.WithContext(ctx)

	if err := db.Where("donor_username = ?", donor.Username).
		Order("timestamp DESC, id DESC").
		Find(&home.Posts).Error; err != nil {
		return nil, err
	}
	if err := db.Where("donor_username = ? AND is_accepted = ?", donor.Username, false).
		Order("timestamp DESC, id DESC").
		Find(&home.PendingRequests).Error; err != nil {
		return nil, err
	}
	return home, nil
}
