package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qrdine/table-order-app/services"
	"github.com/qrdine/table-order-app/utils"
)

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

var ErrNoPermission = &CustomError{"You do not have permission"}

// respondServiceError maps service-layer errors to HTTP responses. Geofence
// rejections carry the measured and allowed distances so the client can
// render a precise message.
func respondServiceError(c *gin.Context, err error) {
	var geoErr *services.GeofenceError
	if errors.As(err, &geoErr) {
		c.JSON(http.StatusForbidden, gin.H{
			"status":                  false,
			"message":                 geoErr.Error(),
			"distance_meters":         geoErr.DistanceMeters,
			"allowed_distance_meters": geoErr.EffectiveRadiusMeters,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrForbidden):
		utils.RespondError(c, http.StatusForbidden, err)
	case errors.Is(err, services.ErrInvalidInput):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.RespondError(c, http.StatusConflict, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}

// sessionTokenFrom pulls the customer bearer token from the Authorization
// header or, as a fallback for websocket-less clients, the query string.
func sessionTokenFrom(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		const prefix = "Bearer "
		if len(authHeader) > len(prefix) && authHeader[:len(prefix)] == prefix {
			return authHeader[len(prefix):]
		}
	}
	return c.Query("session_token")
}
