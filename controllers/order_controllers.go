package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrdine/table-order-app/models"
	"github.com/qrdine/table-order-app/services"
	"github.com/qrdine/table-order-app/utils"
)

type OrderController struct {
	DB     *gorm.DB
	Orders *services.OrderService
}

func NewOrderController(db *gorm.DB, orders *services.OrderService) *OrderController {
	return &OrderController{DB: db, Orders: orders}
}

// CreateOrder -> customer places an order against an active session
func (oc *OrderController) CreateOrder(c *gin.Context) {
	token := sessionTokenFrom(c)
	if token == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("session token missing"))
		return
	}

	var req struct {
		Items         []services.OrderItemInput `json:"items" binding:"required"`
		PaymentMethod string                    `json:"payment_method" binding:"required"`
		CustomerNotes string                    `json:"customer_notes"`
		Latitude      *float64                  `json:"latitude"`
		Longitude     *float64                  `json:"longitude"`
		Accuracy      *float64                  `json:"accuracy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.CreateOrder(c.Request.Context(), services.CreateOrderInput{
		SessionToken:  token,
		Items:         req.Items,
		PaymentMethod: req.PaymentMethod,
		CustomerNotes: req.CustomerNotes,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Accuracy:      req.Accuracy,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Order created", gin.H{
		"order":         order,
		"total_display": utils.FormatCurrency(order.TotalAmount),
	})
}

// GetOrderByID -> detail of one order with its items
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	order, err := oc.Orders.GetOrder(c.Request.Context(), uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// GetAllOrders -> staff view of a restaurant's orders
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	var orders []models.Order
	query := oc.DB.Preload("OrderItems").Preload("Table").
		Where("restaurant_id = ?", restaurantID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// UpdateOrderStatus -> staff moves an order along the workflow
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	var req struct {
		Status             string `json:"status" binding:"required"`
		CancellationReason string `json:"cancellation_reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.UpdateStatus(c.Request.Context(), uint(id), req.Status, req.CancellationReason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

// CancelOrder -> explicit staff cancel, default reason when none given
func (oc *OrderController) CancelOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional here.
	_ = c.ShouldBindJSON(&req)

	order, err := oc.Orders.CancelOrder(c.Request.Context(), uint(id), req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

// GetKitchenDisplay -> live non-terminal orders, oldest first
func (oc *OrderController) GetKitchenDisplay(c *gin.Context) {
	restaurantID := c.GetUint("restaurant_id")

	orders, err := oc.Orders.ListKitchenOrders(c.Request.Context(), restaurantID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Kitchen display orders", orders)
}
