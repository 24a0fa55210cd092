package models

import (
	"math"

	"golang.org/x/crypto/bcrypt"
)

// Account is implemented by every principal that can log in.
type Account interface {
	AccountID() uint
	AccountName() string
	AccountRole() string
	CheckPassword(password string) error
}

// User is the recipient organisation. It requests food and runs its own
// delivery boys.
type User struct {
	Base
	Username                    string  `json:"username" gorm:"uniqueIndex;not null"`
	Email                       string  `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash                string  `json:"-" gorm:"column:password_hash;not null"`
	MobileNumber                string  `json:"mobileNumber" gorm:"not null"`
	Address                     Address `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	DonorOrdersCount            int     `json:"donorOrdersCount" gorm:"not null;default:0"`
	DeliveredOrdersCount        int     `json:"deliveredOrdersCount" gorm:"not null;default:0"`
	RegisteredDeliveryBoysCount int     `json:"registeredDeliveryBoysCount" gorm:"not null;default:0"`
	Rating                      float64 `json:"rating" gorm:"not null;default:0"`
	FCMToken                    string  `json:"-" gorm:"column:fcm_token"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) AccountID() uint     { return u.ID }
func (u *User) AccountName() string { return u.Username }
func (u *User) AccountRole() string { return RoleUser }

func (u *User) SetPassword(password string, cost int) error {
	hash, err := HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// UpdateRating sets Rating to the mean of values. With no values the
// current rating is kept.
func (u *User) UpdateRating(values []int) {
	if len(values) == 0 {
		if math.IsNaN(u.Rating) || math.IsInf(u.Rating, 0) {
			u.Rating = 0
		}
		return
	}

	sum := 0
	for _, v := range values {
		sum += v
	}
	mean := float64(sum) / float64(len(values))
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		mean = 0
	}
	u.Rating = math.Max(0, math.Min(5, mean))
}

// HashPassword hashes with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
