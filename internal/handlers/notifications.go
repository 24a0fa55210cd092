package handlers

import (
	"github.com/chachabrian/foodbridge-backend/internal/middleware"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// RegisterFCMToken registers or updates the caller's FCM token
func RegisterFCMToken(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			FCMToken string `json:"fcmToken" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}

		if err := accounts.RegisterFCMToken(c.Request.Context(), middleware.Principal(c), input.FCMToken); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "FCM token registered successfully"})
	}
}

// RemoveFCMToken removes the caller's FCM token
func RemoveFCMToken(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := accounts.RemoveFCMToken(c.Request.Context(), middleware.Principal(c)); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "FCM token removed successfully"})
	}
}
