package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/qrdine/table-order-app/geofence"
	"github.com/qrdine/table-order-app/models"
	"github.com/qrdine/table-order-app/realtime"
	"github.com/qrdine/table-order-app/utils"
)

const (
	maxItemsPerOrder = 50
	maxItemQuantity  = 99
)

var orderStatuses = map[string]bool{
	models.OrderStatusPending:   true,
	models.OrderStatusConfirmed: true,
	models.OrderStatusPreparing: true,
	models.OrderStatusReady:     true,
	models.OrderStatusCompleted: true,
	models.OrderStatusCancelled: true,
}

func knownOrderStatus(status string) bool {
	return orderStatuses[status]
}

// transitionAllowed: staff may move a live order to any other known status,
// including skipping steps (a quiet kitchen can jump pending -> preparing).
// Terminal orders are frozen.
func transitionAllowed(from, to string) bool {
	if from == models.OrderStatusCompleted || from == models.OrderStatusCancelled {
		return false
	}
	return knownOrderStatus(to) && from != to
}

// OrderService drives orders through their status workflow and keeps the
// kitchen/admin displays in sync through the publisher.
type OrderService struct {
	db        *gorm.DB
	sessions  *SessionService
	publisher realtime.Publisher
	opts      SessionOptions
}

func NewOrderService(db *gorm.DB, sessions *SessionService, publisher realtime.Publisher, opts SessionOptions) *OrderService {
	return &OrderService{
		db:        db,
		sessions:  sessions,
		publisher: publisher,
		opts:      opts,
	}
}

type OrderItemInput struct {
	MenuID   uint   `json:"menu_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

type CreateOrderInput struct {
	SessionToken  string
	Items         []OrderItemInput
	PaymentMethod string
	CustomerNotes string
	Latitude      *float64
	Longitude     *float64
	Accuracy      *float64
}

// CreateOrder places a customer order. The session is re-verified here, not
// trusted from an earlier check, and when the client supplies GPS the
// geofence is re-run against the restaurant as defense in depth.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	status, err := s.sessions.VerifySession(ctx, input.SessionToken)
	if err != nil {
		return nil, err
	}
	if !status.Valid {
		if status.Expired {
			return nil, fmt.Errorf("%w: session expired", ErrForbidden)
		}
		return nil, fmt.Errorf("%w: unknown session token", ErrNotFound)
	}
	snap := status.Session

	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: order needs at least one item", ErrInvalidInput)
	}
	if len(input.Items) > maxItemsPerOrder {
		return nil, fmt.Errorf("%w: at most %d items per order", ErrInvalidInput, maxItemsPerOrder)
	}
	if input.PaymentMethod != models.PaymentMethodCash && input.PaymentMethod != models.PaymentMethodCardAtTable {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, input.PaymentMethod)
	}

	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).First(&restaurant, snap.RestaurantID).Error; err != nil {
		return nil, err
	}

	if input.Latitude != nil && input.Longitude != nil && !s.opts.GeofenceBypass {
		accuracy := 0.0
		if input.Accuracy != nil {
			accuracy = *input.Accuracy
		}
		res := geofence.Evaluate(
			geofence.Point(*input.Latitude, *input.Longitude),
			geofence.Point(restaurant.Latitude, restaurant.Longitude),
			restaurant.LocationRadius,
			accuracy,
			0,
		)
		if !res.WithinRange {
			return nil, &GeofenceError{
				DistanceMeters:        res.DistanceMeters,
				EffectiveRadiusMeters: res.EffectiveRadiusMeters,
			}
		}
	}

	now := time.Now()
	order := models.Order{
		RestaurantID:  snap.RestaurantID,
		TableID:       snap.TableID,
		SessionID:     &snap.ID,
		Status:        models.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		CustomerNotes: input.CustomerNotes,
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total float64
		items := make([]models.OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			if item.Quantity < 1 || item.Quantity > maxItemQuantity {
				return fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidInput, maxItemQuantity)
			}

			var menu models.Menu
			if err := tx.First(&menu, item.MenuID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: menu item %d does not exist", ErrInvalidInput, item.MenuID)
				}
				return err
			}
			if menu.RestaurantID != snap.RestaurantID {
				return fmt.Errorf("%w: menu item %d belongs to another restaurant", ErrInvalidInput, item.MenuID)
			}
			if !menu.IsAvailable {
				return fmt.Errorf("%w: menu item %q is not available", ErrInvalidInput, menu.Name)
			}

			subtotal := menu.Price * float64(item.Quantity)
			total += subtotal
			items = append(items, models.OrderItem{
				MenuID:    menu.ID,
				MenuName:  menu.Name,
				UnitPrice: menu.Price,
				Quantity:  item.Quantity,
				Subtotal:  subtotal,
				Notes:     item.Notes,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}

		number, err := nextOrderNumber(tx, snap.RestaurantID, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		order.TotalAmount = total
		order.OrderItems = items

		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.TouchActivity(ctx, snap.ID); err != nil {
		utils.ErrorLogger.Printf("Failed to touch session %d after order %d: %v", snap.ID, order.ID, err)
	}

	s.publisher.Publish(realtime.RestaurantRoom(order.RestaurantID), realtime.EventNewOrder, map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"table_number": snap.TableNumber,
		"total_amount": order.TotalAmount,
		"status":       order.Status,
	})

	utils.InfoLogger.Printf("Order %s created for table %s (total %s)",
		order.OrderNumber, snap.TableNumber, utils.FormatCurrency(order.TotalAmount))

	return &order, nil
}

// UpdateStatus moves an order along the workflow. Cancelling requires a
// reason; every entered status stamps its timestamp field.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, newStatus, reason string) (*models.Order, error) {
	if !knownOrderStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, newStatus)
	}
	if newStatus == models.OrderStatusCancelled && reason == "" {
		return nil, fmt.Errorf("%w: a cancellation reason is required", ErrInvalidInput)
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("OrderItems").Preload("Table").First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
			}
			return err
		}

		if !transitionAllowed(order.Status, newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, newStatus)
		}

		now := time.Now()
		order.Status = newStatus
		order.UpdatedAt = now
		switch newStatus {
		case models.OrderStatusConfirmed:
			order.ConfirmedAt = &now
		case models.OrderStatusPreparing:
			order.PreparingAt = &now
		case models.OrderStatusReady:
			order.ReadyAt = &now
		case models.OrderStatusCompleted:
			order.CompletedAt = &now
		case models.OrderStatusCancelled:
			order.CancelledAt = &now
			order.CancellationReason = reason
		}

		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(realtime.RestaurantRoom(order.RestaurantID), realtime.EventOrderStatusUpdated, map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"status":       order.Status,
		"table_number": order.Table.TableNumber,
	})

	utils.InfoLogger.Printf("Order %s moved to %s", order.OrderNumber, order.Status)
	return &order, nil
}

// CancelOrder is the explicit staff cancel action. It refuses terminal
// orders and otherwise behaves like UpdateStatus to cancelled, supplying a
// default reason when none is given.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uint, reason string) (*models.Order, error) {
	if reason == "" {
		reason = "Cancelled by staff"
	}
	return s.UpdateStatus(ctx, orderID, models.OrderStatusCancelled, reason)
}

// GetOrder loads one order with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("OrderItems").Preload("Table").First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListKitchenOrders returns the live (non-terminal) orders for a restaurant,
// oldest first, for the kitchen display.
func (s *OrderService) ListKitchenOrders(ctx context.Context, restaurantID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("OrderItems").Preload("Table").
		Where("restaurant_id = ? AND status NOT IN ?", restaurantID,
			[]string{models.OrderStatusCompleted, models.OrderStatusCancelled}).
		Order("created_at asc").
		Find(&orders).Error
	return orders, err
}

// nextOrderNumber produces ORD-YYYYMMDD-NNN where NNN is today's order count
// for the restaurant plus one, zero-padded to three digits and widening past
// 999. Count-then-insert is a read-then-write race under concurrent same-day
// creation, so the number is display-only; internal references always use
// the order's ID.
func nextOrderNumber(tx *gorm.DB, restaurantID uint, now time.Time) (string, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var count int64
	if err := tx.Model(&models.Order{}).
		Where("restaurant_id = ? AND created_at >= ?", restaurantID, midnight).
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("ORD-%s-%03d", now.Format("20060102"), count+1), nil
}
