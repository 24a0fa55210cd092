package models

import "golang.org/x/crypto/bcrypt"

type Donor struct {
	Base
	Username           string  `json:"username" gorm:"uniqueIndex;not null"`
	Email              string  `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash       string  `json:"-" gorm:"column:password_hash;not null"`
	MobileNumber       string  `json:"mobileNumber" gorm:"not null"`
	Address            Address `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	DonatedOrdersCount int     `json:"donatedOrdersCount" gorm:"not null;default:0"`
	FCMToken           string  `json:"-" gorm:"column:fcm_token"`
}

func (Donor) TableName() string {
	return "donors"
}

func (d *Donor) AccountID() uint     { return d.ID }
func (d *Donor) AccountName() string { return d.Username }
func (d *Donor) AccountRole() string { return RoleDonor }

func (d *Donor) SetPassword(password string, cost int) error {
	hash, err := HashPassword(password, cost)
	if err != nil {
		return err
	}
	d.PasswordHash = hash
	return nil
}

func (d *Donor) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(d.PasswordHash), []byte(password))
}
