package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Post is a donor's offer of surplus food.
type Post struct {
	Base
	DonorUsername string         `json:"donorUsername" gorm:"index;not null"`
	AvailableFood pq.StringArray `json:"availableFood" gorm:"type:text[];not null"`
	Location      string         `json:"location" gorm:"not null"`
	Coordinates   GeoPoint       `json:"coordinates" gorm:"embedded;embeddedPrefix:coordinates_"`
	Description   string         `json:"description"`
	ImageURL      string         `json:"imageUrl"`
	ImageKey      string         `json:"-"`
	IsAvailable   bool           `json:"isAvailable" gorm:"not null;default:true"`
	Timestamp     time.Time      `json:"timestamp" gorm:"not null"`

	// Distance is only set on geo queries, in km.
	Distance *float64 `json:"distance,omitempty" gorm:"-"`
}

func (Post) TableName() string {
	return "posts"
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}
	return requireAccount(tx, &Donor{}, "Donor", p.DonorUsername)
}

func requireAccount(tx *gorm.DB, model interface{}, entity, username string) error {
	var count int64
	if err := tx.Session(&gorm.Session{NewDB: true}).
		Model(model).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &MissingReferenceError{Entity: entity, Username: username}
	}
	return nil
}
