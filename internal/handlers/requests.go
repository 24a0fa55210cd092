package handlers

import (
	"github.com/chachabrian/foodbridge-backend/internal/middleware"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/gin-gonic/gin"
)

func AddRequest(requests *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.AddRequestInput
		if !bindJSON(c, &input) {
			return
		}

		request, err := requests.AddRequest(c.Request.Context(), middleware.Principal(c), input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, gin.H{"message": "Request created successfully", "request": request})
	}
}

func GetRequests(requests *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := requests.ForDonor(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"requests": list})
	}
}

func GetUserRequests(requests *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := requests.ForUser(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"requests": list})
	}
}

func GetAcceptedRequests(requests *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := requests.Accepted(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"acceptedRequests": list})
	}
}

func AcceptRequest(requests *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		request, err := requests.Accept(c.Request.Context(), middleware.Principal(c), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "Request accepted", "request": request})
	}
}

func RejectRequest(requests *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		if err := requests.Reject(c.Request.Context(), middleware.Principal(c), id); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "Request rejected"})
	}
}
