package services

import (
	"errors"
	"strings"

	"github.com/chachabrian/foodbridge-backend/internal/config"
	"github.com/chachabrian/foodbridge-backend/internal/models"
	"github.com/chachabrian/foodbridge-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Principal is the authenticated caller.
type Principal struct {
	ID       uint
	Username string
	Role     string
}

func (p Principal) Is(role string) bool {
	return p.Role == role
}

// Options carries the shared dependencies of every service.
type Options struct {
	DB       *gorm.DB
	Store    *Store
	Notifier *Notifier
	Storage  Storage
	Config   *config.Config
	Log      *zap.Logger
}

// Services groups the domain services used by the handlers.
type Services struct {
	Accounts     *AccountService
	Users        *UserService
	Donors       *DonorService
	Posts        *PostService
	Requests     *RequestService
	DeliveryBoys *DeliveryBoyService
	Orders       *OrderService
}

func New(opts Options) *Services {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	requests := &RequestService{opts}
	return &Services{
		Accounts:     &AccountService{opts},
		Users:        &UserService{opts, requests},
		Donors:       &DonorService{opts},
		Posts:        &PostService{opts},
		Requests:     requests,
		DeliveryBoys: &DeliveryBoyService{opts},
		Orders:       &OrderService{opts},
	}
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// withinBox restricts the lat/lng columns to box. A box across the
// antimeridian matches either longitude range.
func withinBox(db *gorm.DB, latColumn, lngColumn string, box utils.BoundingBox) *gorm.DB {
	db = db.Where(latColumn+" BETWEEN ? AND ?", box.SouthWest.Lat, box.NorthEast.Lat)

	ranges := box.LngRanges()
	if len(ranges) == 1 {
		return db.Where(lngColumn+" BETWEEN ? AND ?", ranges[0][0], ranges[0][1])
	}
	return db.Where("(("+lngColumn+" BETWEEN ? AND ?) OR ("+lngColumn+" BETWEEN ? AND ?))",
		ranges[0][0], ranges[0][1], ranges[1][0], ranges[1][1])
}

// lookup maps a missing row to a not-found Error with msg.
func lookup(result *gorm.DB, msg string) error {
	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("%s", msg)
		}
		return err
	}
	return nil
}

// translate turns hook and constraint failures into client errors.
func translate(err error, duplicateMsg string) error {
	var missing *models.MissingReferenceError
	if errors.As(err, &missing) {
		return notFound("%s", missing.Error())
	}
	if isUniqueViolation(err) && duplicateMsg != "" {
		return newError(ErrConflict, "%s", duplicateMsg)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") || strings.Contains(msg, "duplicate key value")
}

func (o Options) warn(msg string, err error, fields ...zap.Field) {
	if err == nil || errors.Is(err, ErrCacheUnavailable) {
		return
	}
	o.Log.Warn(msg, append(fields, zap.Error(err))...)
}
