package handlers

import (
	"strconv"

	"github.com/chachabrian/foodbridge-backend/internal/middleware"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/gin-gonic/gin"
)

func GetAllDeliveryBoys(boys *services.DeliveryBoyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := boys.ListForOwner(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"deliveryBoys": list})
	}
}

func ToggleDeliveryBoyStatus(boys *services.DeliveryBoyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var input struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}

		boy, err := boys.ToggleStatus(c.Request.Context(), middleware.Principal(c), id, input.Status)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "Status updated successfully", "deliveryBoy": boy})
	}
}

// UpdateDeliveryBoyLocation handles location updates from delivery boys
func UpdateDeliveryBoyLocation(boys *services.DeliveryBoyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.LocationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}

		boy, err := boys.UpdateLocation(c.Request.Context(), middleware.Principal(c), input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{
			"message": "Location updated successfully",
			"location": gin.H{
				"lat": boy.CurrentLocation.Lat,
				"lng": boy.CurrentLocation.Lng,
			},
		})
	}
}

func GetDeliveryBoyStatus(boys *services.DeliveryBoyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := boys.Status(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, status)
	}
}

func FindNearbyDeliveryBoys(boys *services.DeliveryBoyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		postID, err := strconv.ParseUint(c.Query("postId"), 10, 32)
		if err != nil || postID == 0 {
			c.JSON(400, gin.H{"success": false, "message": "postId is required"})
			return
		}

		list, err := boys.FindNearby(c.Request.Context(), middleware.Principal(c), uint(postID))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"closestDeliveryBoys": list})
	}
}

func GetDeliveryBoyOrders(boys *services.DeliveryBoyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := boys.Orders(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"success": true, "orders": orders})
	}
}
