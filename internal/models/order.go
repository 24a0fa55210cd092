package models

import "time"

const (
	OrderOnGoing   = "on-going"
	OrderPickedUp  = "picked-up"
	OrderDelivered = "delivered"
)

var orderTransitions = map[string][]string{
	OrderOnGoing:  {OrderPickedUp, OrderDelivered},
	OrderPickedUp: {OrderDelivered},
}

// CanTransition reports whether an order may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	Base
	RequestID                 uint       `json:"requestId" gorm:"index;not null"`
	DonorUsername             string     `json:"donorUsername" gorm:"index;not null"`
	UserUsername              string     `json:"userUsername" gorm:"index;not null"`
	DeliveryBoyID             uint       `json:"deliveryBoyId" gorm:"index;not null"`
	DeliveryBoyName           string     `json:"deliveryBoyName" gorm:"not null"`
	PickupLocation            string     `json:"pickupLocation" gorm:"not null"`
	PickupLocationCoordinates GeoPoint   `json:"pickupLocationCoordinates" gorm:"embedded;embeddedPrefix:pickup_"`
	DeliveryLocation          string     `json:"deliveryLocation" gorm:"not null"`
	Status                    string     `json:"status" gorm:"not null;default:'on-going'"`
	Timestamp                 time.Time  `json:"timestamp" gorm:"not null"`
	DeliveredAt               *time.Time `json:"deliveredAt,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) IsFinished() bool {
	return o.Status == OrderDelivered
}

// Rating is a donor's score for a delivered order, one per order.
type Rating struct {
	Base
	OrderID       uint   `json:"orderId" gorm:"uniqueIndex;not null"`
	DonorUsername string `json:"donorUsername" gorm:"index;not null"`
	UserUsername  string `json:"userUsername" gorm:"index;not null"`
	Value         int    `json:"value" gorm:"not null"`
}

func (Rating) TableName() string {
	return "ratings"
}

func ValidRatingValue(v int) bool {
	return v >= 1 && v <= 5
}
