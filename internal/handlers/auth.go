package handlers

import (
	"net/http"

	"github.com/chachabrian/foodbridge-backend/internal/config"
	"github.com/chachabrian/foodbridge-backend/internal/middleware"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type LoginInput struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (in LoginInput) identifier() string {
	switch {
	case in.Identifier != "":
		return in.Identifier
	case in.Username != "":
		return in.Username
	}
	return in.Email
}

func RegisterUser(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.RegisterInput
		if !bindJSON(c, &input) {
			return
		}

		user, err := accounts.RegisterUser(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, gin.H{"message": "User created successfully", "user": user})
	}
}

func RegisterDonor(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.RegisterInput
		if !bindJSON(c, &input) {
			return
		}

		donor, err := accounts.RegisterDonor(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, gin.H{"message": "Donor created successfully", "donor": donor})
	}
}

func RegisterDeliveryBoy(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.RegisterDeliveryBoyInput
		if !bindJSON(c, &input) {
			return
		}

		boy, err := accounts.RegisterDeliveryBoy(c.Request.Context(), middleware.Principal(c), input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, gin.H{"message": "Delivery boy registered successfully", "deliveryBoy": boy})
	}
}

// Login issues a token for role and sets it as the role's cookie.
func Login(accounts *services.AccountService, cfg *config.Config, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if !bindJSON(c, &input) {
			return
		}

		token, _, account, err := accounts.Login(c.Request.Context(), role, input.identifier(), input.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.CookieName(role), token, int(cfg.JWTExpiry.Seconds()), "/", cfg.CookieDomain, cfg.CookieSecure, true)

		c.JSON(200, gin.H{
			"success": true,
			"token":   token,
			role:      account,
		})
	}
}

// Logout revokes the current token and clears the cookie.
func Logout(accounts *services.AccountService, cfg *config.Config, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := accounts.Logout(c.Request.Context(), middleware.Claims(c)); err != nil {
			respondError(c, err)
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.CookieName(role), "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, true)
		c.JSON(200, gin.H{"success": true, "message": "Logged out successfully"})
	}
}

// CSRFToken mints a token for the double-submit check.
func CSRFToken(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.IssueCSRFToken(c, cfg.CookieSecure, cfg.CookieDomain)
		c.JSON(200, gin.H{"csrfToken": token})
	}
}
