package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/chachabrian/foodbridge-backend/internal/middleware"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Health pings the database and Redis. Only a database failure makes the
// service unhealthy.
func Health(db *gorm.DB, store *services.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", 200
		database := "up"
		if err := pingDB(ctx, db); err != nil {
			middleware.Log(c).Warn("database health check failed", zap.Error(err))
			status, code, database = "unavailable", 503, "down"
		}

		redis := "up"
		if err := store.Ping(ctx); err != nil {
			redis = "down"
			if errors.Is(err, services.ErrCacheUnavailable) {
				redis = "disabled"
			}
		}

		c.JSON(code, gin.H{"status": status, "database": database, "redis": redis})
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database not configured")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
