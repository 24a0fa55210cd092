package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chachabrian/foodbridge-backend/pkg/utils"
)

// Roles carried in JWT claims and websocket client keys.
const (
	RoleUser        = "user"
	RoleDonor       = "donor"
	RoleDeliveryBoy = "deliveryboy"
)

// Base replaces gorm.Model: records are hard deleted and the id is exposed
// as "_id" for existing clients.
type Base struct {
	ID        uint      `json:"_id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GeoPoint is a longitude/latitude pair. On the wire it is a GeoJSON Point.
type GeoPoint struct {
	Lng float64 `gorm:"column:lng;not null;default:0"`
	Lat float64 `gorm:"column:lat;not null;default:0"`
}

var ErrInvalidCoordinates = errors.New("coordinates must be [lng, lat] within valid ranges")

type geoJSON struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func (p GeoPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(geoJSON{Type: "Point", Coordinates: []float64{p.Lng, p.Lat}})
}

// UnmarshalJSON accepts {"type":"Point","coordinates":[lng,lat]} or a bare
// [lng,lat] array.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		var obj geoJSON
		if err := json.Unmarshal(data, &obj); err != nil {
			return ErrInvalidCoordinates
		}
		if obj.Type != "" && obj.Type != "Point" {
			return fmt.Errorf("unsupported geometry type %q", obj.Type)
		}
		coords = obj.Coordinates
	}

	point, err := NewGeoPoint(coords)
	if err != nil {
		return err
	}
	*p = point
	return nil
}

// NewGeoPoint builds a point from a [lng, lat] slice.
func NewGeoPoint(coords []float64) (GeoPoint, error) {
	if len(coords) != 2 || !utils.ValidCoordinates(coords[1], coords[0]) {
		return GeoPoint{}, ErrInvalidCoordinates
	}
	return GeoPoint{Lng: coords[0], Lat: coords[1]}, nil
}

func (p GeoPoint) Point() utils.Point {
	return utils.Point{Lat: p.Lat, Lng: p.Lng}
}

// DistanceTo returns the great-circle distance in km.
func (p GeoPoint) DistanceTo(o GeoPoint) float64 {
	return utils.Distance(p.Point(), o.Point())
}

// Address is embedded in users and donors.
type Address struct {
	DoorNo      string   `json:"doorNo" gorm:"column:door_no"`
	Street      string   `json:"street" gorm:"column:street"`
	Landmarks   string   `json:"landmarks" gorm:"column:landmarks"`
	TownCity    string   `json:"townCity" gorm:"column:town_city"`
	State       string   `json:"state" gorm:"column:state"`
	Pincode     string   `json:"pincode" gorm:"column:pincode"`
	Coordinates GeoPoint `json:"coordinates" gorm:"embedded;embeddedPrefix:coordinates_"`
}

// AddressPatch is a partial address update. Coordinates are kept raw so a
// missing or malformed pair can be told apart from a valid one.
type AddressPatch struct {
	DoorNo      *string   `json:"doorNo"`
	Street      *string   `json:"street"`
	Landmarks   *string   `json:"landmarks"`
	TownCity    *string   `json:"townCity"`
	State       *string   `json:"state"`
	Pincode     *string   `json:"pincode"`
	Coordinates []float64 `json:"coordinates"`
}

// Merge applies the patch only when it carries exactly two coordinates. It
// reports whether the address changed.
func (a *Address) Merge(patch *AddressPatch) (bool, error) {
	if patch == nil || len(patch.Coordinates) != 2 {
		return false, nil
	}
	point, err := NewGeoPoint(patch.Coordinates)
	if err != nil {
		return false, err
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.DoorNo, patch.DoorNo)
	set(&a.Street, patch.Street)
	set(&a.Landmarks, patch.Landmarks)
	set(&a.TownCity, patch.TownCity)
	set(&a.State, patch.State)
	set(&a.Pincode, patch.Pincode)
	a.Coordinates = point
	return true, nil
}

// MissingReferenceError is returned by create hooks when a referenced
// account does not exist.
type MissingReferenceError struct {
	Entity   string
	Username string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("%s with username %s does not exist", e.Entity, e.Username)
}
