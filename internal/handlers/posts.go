package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/chachabrian/foodbridge-backend/internal/middleware"
	"github.com/chachabrian/foodbridge-backend/internal/models"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// AddPost accepts JSON or a multipart form carrying an optional image.
func AddPost(posts *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			input services.AddPostInput
			image *multipart.FileHeader
		)

		if strings.HasPrefix(c.ContentType(), "multipart/") {
			var err error
			input, err = postFromForm(c)
			if err != nil {
				respondBindError(c, err)
				return
			}
			image, err = c.FormFile("image")
			if err != nil && !errors.Is(err, http.ErrMissingFile) {
				c.JSON(400, gin.H{"success": false, "message": "Invalid image upload"})
				return
			}
		} else if !bindJSON(c, &input) {
			return
		}

		post, err := posts.AddPost(c.Request.Context(), middleware.Principal(c), input, image)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, gin.H{"message": "Post created successfully", "post": post})
	}
}

// postFromForm reads form fields. availableFood may repeat or be a JSON
// array; coordinates is a JSON [lng,lat] or GeoJSON value.
func postFromForm(c *gin.Context) (services.AddPostInput, error) {
	input := services.AddPostInput{
		Location:    c.PostForm("location"),
		Description: c.PostForm("description"),
	}

	food := c.PostFormArray("availableFood")
	if len(food) == 1 && strings.HasPrefix(strings.TrimSpace(food[0]), "[") {
		if err := json.Unmarshal([]byte(food[0]), &input.AvailableFood); err != nil {
			return input, err
		}
	} else {
		input.AvailableFood = food
	}

	if raw := c.PostForm("coordinates"); raw != "" {
		var point models.GeoPoint
		if err := json.Unmarshal([]byte(raw), &point); err != nil {
			return input, err
		}
		input.Coordinates = &point
	}
	return input, nil
}

func GetPosts(posts *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query services.ListPostsQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			c.JSON(400, gin.H{"success": false, "message": "Invalid query parameters"})
			return
		}

		list, err := posts.List(c.Request.Context(), query)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"posts": list})
	}
}

func GetPost(posts *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		post, err := posts.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"post": post})
	}
}

func GetMyPosts(posts *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := posts.Mine(c.Request.Context(), middleware.Principal(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"posts": list})
	}
}

func DeletePost(posts *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}

		if err := posts.Delete(c.Request.Context(), middleware.Principal(c), id); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "Post deleted successfully"})
	}
}
