package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/qrdine/table-order-app/models"
	"github.com/qrdine/table-order-app/realtime"
	"github.com/qrdine/table-order-app/utils"
)

// TreatService handles table-to-table gifts. Approval materializes a
// zero-amount gift order for the receiving table's kitchen ticket.
type TreatService struct {
	db        *gorm.DB
	publisher realtime.Publisher
}

func NewTreatService(db *gorm.DB, publisher realtime.Publisher) *TreatService {
	return &TreatService{db: db, publisher: publisher}
}

type CreateTreatInput struct {
	RestaurantID uint
	FromTableID  uint
	ToTableID    uint
	MenuID       uint
	Note         string
}

// TreatUpdateResult reports the status change plus a warning when the gift
// order could not be synthesized. The status change itself stands either
// way; an operator can create the missing kitchen ticket by hand.
type TreatUpdateResult struct {
	Treat   *models.Treat `json:"treat"`
	Warning string        `json:"warning,omitempty"`
}

// CreateTreat records a PENDING gift request. Self-gifts are rejected.
func (s *TreatService) CreateTreat(ctx context.Context, input CreateTreatInput) (*models.Treat, error) {
	if input.FromTableID == input.ToTableID {
		return nil, fmt.Errorf("%w: a table cannot treat itself", ErrInvalidInput)
	}

	var fromTable, toTable models.Table
	if err := s.db.WithContext(ctx).First(&fromTable, input.FromTableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: from table %d", ErrNotFound, input.FromTableID)
		}
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(&toTable, input.ToTableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: to table %d", ErrNotFound, input.ToTableID)
		}
		return nil, err
	}
	if fromTable.RestaurantID != input.RestaurantID || toTable.RestaurantID != input.RestaurantID {
		return nil, fmt.Errorf("%w: both tables must belong to the restaurant", ErrInvalidInput)
	}

	var menu models.Menu
	if err := s.db.WithContext(ctx).First(&menu, input.MenuID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: menu item %d", ErrNotFound, input.MenuID)
		}
		return nil, err
	}
	if menu.RestaurantID != input.RestaurantID {
		return nil, fmt.Errorf("%w: menu item %d belongs to another restaurant", ErrInvalidInput, input.MenuID)
	}
	if !menu.IsAvailable {
		return nil, fmt.Errorf("%w: menu item %q is not available", ErrInvalidInput, menu.Name)
	}

	treat := models.Treat{
		RestaurantID: input.RestaurantID,
		FromTableID:  input.FromTableID,
		ToTableID:    input.ToTableID,
		MenuID:       input.MenuID,
		Note:         input.Note,
		Status:       models.TreatStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&treat).Error; err != nil {
		return nil, err
	}

	s.publisher.Publish(realtime.RestaurantRoom(treat.RestaurantID), realtime.EventNewTreat, map[string]interface{}{
		"treat_id":   treat.ID,
		"from_table": fromTable.TableNumber,
		"to_table":   toTable.TableNumber,
		"menu_name":  menu.Name,
	})

	utils.InfoLogger.Printf("Treat %d created: table %s -> table %s (%s)",
		treat.ID, fromTable.TableNumber, toTable.TableNumber, menu.Name)

	return &treat, nil
}

// UpdateStatus decides a PENDING treat. A treat is terminal once decided, so
// re-approving an APPROVED treat fails before any second gift order could be
// synthesized.
func (s *TreatService) UpdateStatus(ctx context.Context, treatID uint, newStatus string) (*TreatUpdateResult, error) {
	switch newStatus {
	case models.TreatStatusApproved, models.TreatStatusRejected, models.TreatStatusCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown treat status %q", ErrInvalidInput, newStatus)
	}

	var treat models.Treat
	err := s.db.WithContext(ctx).Preload("FromTable").Preload("ToTable").Preload("Menu").
		First(&treat, treatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: treat %d", ErrNotFound, treatID)
	}
	if err != nil {
		return nil, err
	}

	if treat.Decided() {
		return nil, fmt.Errorf("%w: treat is already %s", ErrInvalidTransition, treat.Status)
	}

	treat.Status = newStatus
	treat.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&treat).Error; err != nil {
		return nil, err
	}

	result := &TreatUpdateResult{Treat: &treat}

	if newStatus == models.TreatStatusApproved && treat.OrderID == nil {
		// Best-effort: the approval stands even when the kitchen ticket
		// cannot be created.
		if order, err := s.synthesizeGiftOrder(ctx, &treat); err != nil {
			utils.ErrorLogger.Printf("Treat %d approved but gift order failed: %v", treat.ID, err)
			result.Warning = "treat approved, but the gift order could not be created"
		} else {
			treat.OrderID = &order.ID
			if err := s.db.WithContext(ctx).Model(&treat).Update("order_id", order.ID).Error; err != nil {
				utils.ErrorLogger.Printf("Failed to link order %d to treat %d: %v", order.ID, treat.ID, err)
			}
			s.publisher.Publish(realtime.RestaurantRoom(treat.RestaurantID), realtime.EventNewOrder, map[string]interface{}{
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
				"table_number": treat.ToTable.TableNumber,
				"total_amount": order.TotalAmount,
				"status":       order.Status,
				"is_gift":      true,
			})
		}
	}

	s.publisher.Publish(realtime.RestaurantRoom(treat.RestaurantID), realtime.EventTreatStatusUpdated, map[string]interface{}{
		"treat_id": treat.ID,
		"status":   treat.Status,
	})

	utils.InfoLogger.Printf("Treat %d moved to %s", treat.ID, treat.Status)
	return result, nil
}

// ListTreats returns a restaurant's treats, optionally filtered to those
// sent to or from one table.
func (s *TreatService) ListTreats(ctx context.Context, restaurantID uint, tableID *uint) ([]models.Treat, error) {
	query := s.db.WithContext(ctx).Preload("FromTable").Preload("ToTable").Preload("Menu").
		Where("restaurant_id = ?", restaurantID)
	if tableID != nil {
		query = query.Where("from_table_id = ? OR to_table_id = ?", *tableID, *tableID)
	}

	var treats []models.Treat
	err := query.Order("created_at desc").Find(&treats).Error
	return treats, err
}

// synthesizeGiftOrder creates the zero-amount, auto-confirmed order that
// puts the gift on the kitchen display.
func (s *TreatService) synthesizeGiftOrder(ctx context.Context, treat *models.Treat) (*models.Order, error) {
	now := time.Now()
	notes := fmt.Sprintf("Gift from table %s", treat.FromTable.TableNumber)
	if treat.Note != "" {
		notes = fmt.Sprintf("%s: %s", notes, treat.Note)
	}

	order := models.Order{
		RestaurantID:  treat.RestaurantID,
		TableID:       treat.ToTableID,
		Status:        models.OrderStatusConfirmed,
		TotalAmount:   0,
		PaymentMethod: models.PaymentMethodCash,
		CustomerNotes: notes,
		IsGift:        true,
		ConfirmedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
		OrderItems: []models.OrderItem{{
			MenuID:    treat.MenuID,
			MenuName:  treat.Menu.Name,
			UnitPrice: 0,
			Quantity:  1,
			Subtotal:  0,
			Notes:     "Gift item",
			CreatedAt: now,
			UpdatedAt: now,
		}},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextOrderNumber(tx, treat.RestaurantID, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
