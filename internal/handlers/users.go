package handlers

import (
	"github.com/chachabrian/foodbridge-backend/internal/middleware"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/gin-gonic/gin"
)

func UpdateUser(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := paramID(c, "userId")
		if !ok {
			return
		}

		var input services.UpdateUserInput
		if !bindJSON(c, &input) {
			return
		}

		user, err := users.UpdateUser(c.Request.Context(), middleware.Principal(c), userID, input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "User updated successfully", "user": user})
	}
}

func GetUserHome(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, donorList, err := users.Home(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"user": user, "donorList": donorList})
	}
}

func GetUserProfile(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := users.Profile(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"user": user})
	}
}

func SendRequest(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			PostID uint `json:"post_id"`
		}
		if !bindJSON(c, &input) {
			return
		}

		request, err := users.SendRequest(c.Request.Context(), middleware.Principal(c), input.PostID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, gin.H{"message": "Request sent successfully", "request": request})
	}
}

func GetDonorHome(donors *services.DonorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		home, err := donors.Home(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, home)
	}
}

func GetDonorProfile(donors *services.DonorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		donor, err := donors.Profile(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"donor": donor})
	}
}
