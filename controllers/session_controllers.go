package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qrdine/table-order-app/services"
	"github.com/qrdine/table-order-app/utils"
)

type SessionController struct {
	Sessions *services.SessionService
}

func NewSessionController(sessions *services.SessionService) *SessionController {
	return &SessionController{Sessions: sessions}
}

// StartSession -> customer scanned a table QR code
func (sc *SessionController) StartSession(c *gin.Context) {
	var req struct {
		QRCode     string   `json:"qr_code" binding:"required"`
		Latitude   *float64 `json:"latitude"`
		Longitude  *float64 `json:"longitude"`
		Accuracy   *float64 `json:"accuracy"`
		DeviceInfo string   `json:"device_info"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := sc.Sessions.StartSession(c.Request.Context(), services.StartSessionInput{
		QRCode:     req.QRCode,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Accuracy:   req.Accuracy,
		DeviceInfo: req.DeviceInfo,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Session started", result)
}

// VerifySession -> is this bearer token still good, and for how long
func (sc *SessionController) VerifySession(c *gin.Context) {
	token := sessionTokenFrom(c)
	if token == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("session token missing"))
		return
	}

	status, err := sc.Sessions.VerifySession(c.Request.Context(), token)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if !status.Valid {
		utils.RespondJSON(c, http.StatusUnauthorized, "Session is not valid", status)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session is valid", status)
}

// ExtendSession -> fresh expiry window measured from now
func (sc *SessionController) ExtendSession(c *gin.Context) {
	token := sessionTokenFrom(c)
	if token == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("session token missing"))
		return
	}

	result, err := sc.Sessions.ExtendSession(c.Request.Context(), token)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session extended", result)
}

// EndSession -> idempotent, ending twice is still success
func (sc *SessionController) EndSession(c *gin.Context) {
	token := sessionTokenFrom(c)
	if token == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("session token missing"))
		return
	}

	if err := sc.Sessions.EndSession(c.Request.Context(), token); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session ended", nil)
}
