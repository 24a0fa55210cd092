package database

import (
	"github.com/chachabrian/foodbridge-backend/internal/models"
	"gorm.io/gorm"
)

// Statements run after AutoMigrate. Each one is idempotent.
var constraints = []string{
	`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_rating_check`,
	`ALTER TABLE users ADD CONSTRAINT users_rating_check CHECK (rating >= 0 AND rating <= 5)`,
	`ALTER TABLE ratings DROP CONSTRAINT IF EXISTS ratings_value_check`,
	`ALTER TABLE ratings ADD CONSTRAINT ratings_value_check CHECK (value >= 1 AND value <= 5)`,
	// at most one open order per request
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_active_request ON orders (request_id) WHERE status <> 'delivered'`,
	`CREATE INDEX IF NOT EXISTS idx_posts_coordinates ON posts (coordinates_lat, coordinates_lng)`,
}

// RunMigrations creates or updates every table and constraint.
func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Donor{},
		&models.DeliveryBoy{},
		&models.Post{},
		&models.Request{},
		&models.Order{},
		&models.Rating{},
	)
	if err != nil {
		return err
	}

	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
