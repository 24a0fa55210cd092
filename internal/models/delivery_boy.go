package models

import "golang.org/x/crypto/bcrypt"

// Delivery boy statuses. Busy is set while an order is in flight and is
// never chosen by the delivery boy.
const (
	DeliveryBoyAvailable = "available"
	DeliveryBoyInactive  = "inactive"
	DeliveryBoyBusy      = "busy"
)

type DeliveryBoy struct {
	Base
	DeliveryBoyName string   `json:"deliveryBoyName" gorm:"uniqueIndex;not null"`
	Email           string   `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash    string   `json:"-" gorm:"column:password_hash;not null"`
	MobileNumber    string   `json:"mobileNumber" gorm:"not null"`
	UserUsername    string   `json:"userUsername" gorm:"index;not null"`
	Status          string   `json:"status" gorm:"not null;default:'available'"`
	CurrentLocation GeoPoint `json:"currentLocation" gorm:"embedded;embeddedPrefix:current_location_"`
	DeliveredOrders int      `json:"deliveredOrders" gorm:"not null;default:0"`
	FCMToken        string   `json:"-" gorm:"column:fcm_token"`

	// Distance is filled in by nearest lookups, in km.
	Distance *float64 `json:"distance,omitempty" gorm:"-"`
}

func (DeliveryBoy) TableName() string {
	return "delivery_boys"
}

func (d *DeliveryBoy) AccountID() uint     { return d.ID }
func (d *DeliveryBoy) AccountName() string { return d.DeliveryBoyName }
func (d *DeliveryBoy) AccountRole() string { return RoleDeliveryBoy }

func (d *DeliveryBoy) SetPassword(password string, cost int) error {
	hash, err := HashPassword(password, cost)
	if err != nil {
		return err
	}
	d.PasswordHash = hash
	return nil
}

func (d *DeliveryBoy) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(d.PasswordHash), []byte(password))
}

func (d *DeliveryBoy) IsAvailable() bool {
	return d.Status == DeliveryBoyAvailable
}

// IsToggleableStatus reports whether s can be requested through the status
// toggle.
func IsToggleableStatus(s string) bool {
	return s == DeliveryBoyAvailable || s == DeliveryBoyInactive
}
