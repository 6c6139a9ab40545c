package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/qrdine/table-order-app/models"
	"github.com/qrdine/table-order-app/services"
	"github.com/qrdine/table-order-app/utils"
)

type TableController struct {
	DB          *gorm.DB
	Sessions    *services.SessionService
	ScanBaseURL string
}

func NewTableController(db *gorm.DB, sessions *services.SessionService, scanBaseURL string) *TableController {
	return &TableController{DB: db, Sessions: sessions, ScanBaseURL: scanBaseURL}
}

// CreateTable -> add a table with a fresh QR token
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNumber string `json:"table_number" binding:"required"`
		Name        string `json:"name"`
		Capacity    int    `json:"capacity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{
		RestaurantID: c.GetUint("restaurant_id"),
		TableNumber:  req.TableNumber,
		Name:         req.Name,
		Capacity:     req.Capacity,
		QRCode:       uuid.NewString(),
		IsActive:     true,
	}
	if table.Capacity <= 0 {
		table.Capacity = 4
	}

	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New table created: %s (restaurant=%d)", table.TableNumber, table.RestaurantID)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables -> a restaurant's tables
func (tc *TableController) GetAllTables(c *gin.Context) {
	var tables []models.Table
	if err := tc.DB.Where("restaurant_id = ?", c.GetUint("restaurant_id")).
		Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// UpdateTable -> rename, resize or (de)activate a table
func (tc *TableController) UpdateTable(c *gin.Context) {
	table, ok := tc.loadOwnTable(c)
	if !ok {
		return
	}

	var req struct {
		TableNumber *string `json:"table_number"`
		Name        *string `json:"name"`
		Capacity    *int    `json:"capacity"`
		IsActive    *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if req.TableNumber != nil {
		table.TableNumber = *req.TableNumber
	}
	if req.Name != nil {
		table.Name = *req.Name
	}
	if req.Capacity != nil {
		table.Capacity = *req.Capacity
	}
	if req.IsActive != nil {
		table.IsActive = *req.IsActive
	}

	if err := tc.DB.Save(table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

// RegenerateQRCode -> new QR token; every active session for the table dies
func (tc *TableController) RegenerateQRCode(c *gin.Context) {
	table, ok := tc.loadOwnTable(c)
	if !ok {
		return
	}

	table.QRCode = uuid.NewString()
	if err := tc.DB.Save(table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if err := tc.Sessions.InvalidateTableSessions(c.Request.Context(), table.ID); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("QR code regenerated for table %d, active sessions invalidated", table.ID)
	utils.RespondJSON(c, http.StatusOK, "QR code regenerated", table)
}

// GetQRCodePNG -> printable QR image of the table's scan URL
func (tc *TableController) GetQRCodePNG(c *gin.Context) {
	table, ok := tc.loadOwnTable(c)
	if !ok {
		return
	}

	scanURL := fmt.Sprintf("%s/scan?qr=%s", tc.ScanBaseURL, table.QRCode)
	png, err := qrcode.Encode(scanURL, qrcode.Medium, 256)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// DeleteTable -> remove a table
func (tc *TableController) DeleteTable(c *gin.Context) {
	table, ok := tc.loadOwnTable(c)
	if !ok {
		return
	}

	if err := tc.Sessions.InvalidateTableSessions(c.Request.Context(), table.ID); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if err := tc.DB.Delete(table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Table %d deleted", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": table.ID})
}

// loadOwnTable resolves :table_id and checks it belongs to the caller's
// restaurant.
func (tc *TableController) loadOwnTable(c *gin.Context) (*models.Table, bool) {
	var table models.Table
	if err := tc.DB.First(&table, c.Param("table_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return nil, false
	}
	if table.RestaurantID != c.GetUint("restaurant_id") {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return nil, false
	}
	return &table, true
}
