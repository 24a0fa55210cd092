package handlers

import (
	"github.com/chachabrian/foodbridge-backend/internal/middleware"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/gin-gonic/gin"
)

func AssignOrder(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.AssignOrderInput
		if !bindJSON(c, &input) {
			return
		}

		order, err := orders.Assign(c.Request.Context(), middleware.Principal(c), input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, gin.H{"success": true, "message": "Order assigned successfully", "order": order})
	}
}

func GetOrders(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := orders.ForUser(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"success": true, "orders": list})
	}
}

func GetOrder(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		order, err := orders.Get(c.Request.Context(), middleware.Principal(c), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"success": true, "order": order})
	}
}

func UpdateOrderStatus(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var input struct {
			Status string `json:"status" binding:"required,oneof=on-going picked-up delivered"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}

		order, err := orders.UpdateStatus(c.Request.Context(), middleware.Principal(c), id, input.Status)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"success": true, "message": "Order status updated", "order": order})
	}
}

func RateOrder(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		var input struct {
			Value int `json:"value" binding:"required,min=1,max=5"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}

		rating, userRating, err := orders.Rate(c.Request.Context(), middleware.Principal(c), id, input.Value)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, gin.H{"success": true, "rating": rating, "userRating": userRating})
	}
}
