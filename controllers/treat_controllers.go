package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qrdine/table-order-app/services"
	"github.com/qrdine/table-order-app/utils"
)

type TreatController struct {
	Treats *services.TreatService
}

func NewTreatController(treats *services.TreatService) *TreatController {
	return &TreatController{Treats: treats}
}

// CreateTreat -> one table gifts a menu item to another
func (tc *TreatController) CreateTreat(c *gin.Context) {
	var req struct {
		RestaurantID uint   `json:"restaurant_id" binding:"required"`
		FromTableID  uint   `json:"from_table_id" binding:"required"`
		ToTableID    uint   `json:"to_table_id" binding:"required"`
		MenuID       uint   `json:"menu_id" binding:"required"`
		Note         string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	treat, err := tc.Treats.CreateTreat(c.Request.Context(), services.CreateTreatInput{
		RestaurantID: req.RestaurantID,
		FromTableID:  req.FromTableID,
		ToTableID:    req.ToTableID,
		MenuID:       req.MenuID,
		Note:         req.Note,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Treat created", treat)
}

// UpdateTreatStatus -> staff approves, rejects or cancels a pending treat
func (tc *TreatController) UpdateTreatStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("treat_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid treat id"))
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := tc.Treats.UpdateStatus(c.Request.Context(), uint(id), req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Treat updated"
	if result.Warning != "" {
		message = result.Warning
	}
	utils.RespondJSON(c, http.StatusOK, message, result)
}

// ListTreats -> a restaurant's treats, optionally for one table
func (tc *TreatController) ListTreats(c *gin.Context) {
	restaurantID, err := strconv.Atoi(c.Query("restaurant_id"))
	if err != nil || restaurantID <= 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("restaurant_id is required"))
		return
	}

	var tableID *uint
	if raw := c.Query("table_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid table_id"))
			return
		}
		id := uint(parsed)
		tableID = &id
	}

	treats, err := tc.Treats.ListTreats(c.Request.Context(), uint(restaurantID), tableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of treats", treats)
}
