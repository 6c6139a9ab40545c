package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/qrdine/table-order-app/cache"
	"github.com/qrdine/table-order-app/models"
	"github.com/qrdine/table-order-app/realtime"
	"github.com/qrdine/table-order-app/services"
)

// orderFixture wires an order service with an active session on seed.Table.
type orderFixture struct {
	db       *gorm.DB
	seed     seedData
	sessions *services.SessionService
	orders   *services.OrderService
	recorder *eventRecorder
	token    string
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	db := setupTestDB(t)
	seed := seedRestaurant(t, db)
	recorder := &eventRecorder{}
	sessions := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{})
	orders := services.NewOrderService(db, sessions, recorder, services.SessionOptions{})

	started, err := sessions.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat),
		Longitude: floatPtr(anchorLon),
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	return &orderFixture{
		db:       db,
		seed:     seed,
		sessions: sessions,
		orders:   orders,
		recorder: recorder,
		token:    started.SessionToken,
	}
}

func TestCreateOrderComputesTotalFromSnapshots(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items: []services.OrderItemInput{
			{MenuID: f.seed.Menu.ID, Quantity: 1},
			{MenuID: f.seed.Menu2.ID, Quantity: 2, Notes: "extra lemon"},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 65.0+2*45.0, order.TotalAmount)
	assert.Len(t, order.OrderItems, 2)

	// Name and price are frozen on the line, not joined back to the menu.
	assert.Equal(t, "Grilled Fish", order.OrderItems[0].MenuName)
	assert.Equal(t, 65.0, order.OrderItems[0].UnitPrice)
	assert.Equal(t, 65.0, order.OrderItems[0].Subtotal)
	assert.Equal(t, 90.0, order.OrderItems[1].Subtotal)

	// The sum of line subtotals is the order total.
	var sum float64
	for _, item := range order.OrderItems {
		sum += item.Subtotal
	}
	assert.Equal(t, order.TotalAmount, sum)

	events := f.recorder.byEvent(realtime.EventNewOrder)
	assert.Len(t, events, 1)
	assert.Equal(t, realtime.RestaurantRoom(f.seed.Restaurant.ID), events[0].Room)
}

func TestCreateOrderPriceChangeDoesNotRewriteHistory(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
	})
	assert.NoError(t, err)

	f.db.Model(&models.Menu{}).Where("id = ?", f.seed.Menu.ID).Update("price", 80)

	reloaded, err := f.orders.GetOrder(context.Background(), order.ID)
	assert.NoError(t, err)
	assert.Equal(t, 65.0, reloaded.OrderItems[0].UnitPrice)
	assert.Equal(t, 65.0, reloaded.TotalAmount)
}

func TestCreateOrderNumberSequence(t *testing.T) {
	f := newOrderFixture(t)

	for i := 0; i < 2; i++ {
		_, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
			SessionToken:  f.token,
			PaymentMethod: models.PaymentMethodCash,
			Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
		})
		assert.NoError(t, err)
	}

	third, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
	})
	assert.NoError(t, err)

	want := fmt.Sprintf("ORD-%s-003", time.Now().Format("20060102"))
	assert.Equal(t, want, third.OrderNumber)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input services.CreateOrderInput
	}{
		{
			name: "no items",
			input: services.CreateOrderInput{
				SessionToken:  f.token,
				PaymentMethod: models.PaymentMethodCash,
			},
		},
		{
			name: "unknown payment method",
			input: services.CreateOrderInput{
				SessionToken:  f.token,
				PaymentMethod: "crypto",
				Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
			},
		},
		{
			name: "zero quantity",
			input: services.CreateOrderInput{
				SessionToken:  f.token,
				PaymentMethod: models.PaymentMethodCash,
				Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 0}},
			},
		},
		{
			name: "quantity over limit",
			input: services.CreateOrderInput{
				SessionToken:  f.token,
				PaymentMethod: models.PaymentMethodCash,
				Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 100}},
			},
		},
		{
			name: "unknown menu item",
			input: services.CreateOrderInput{
				SessionToken:  f.token,
				PaymentMethod: models.PaymentMethodCash,
				Items:         []services.OrderItemInput{{MenuID: 9999, Quantity: 1}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(ctx, tc.input)
			assert.True(t, errors.Is(err, services.ErrInvalidInput), "got %v", err)
		})
	}

	// A failed create leaves no order rows behind.
	var count int64
	f.db.Model(&models.Order{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreateOrderUnavailableMenuItem(t *testing.T) {
	f := newOrderFixture(t)
	f.db.Model(&models.Menu{}).Where("id = ?", f.seed.Menu.ID).Update("is_available", false)

	_, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, services.ErrInvalidInput))
}

func TestCreateOrderExpiredSession(t *testing.T) {
	f := newOrderFixture(t)
	assert.NoError(t, f.sessions.EndSession(context.Background(), f.token))

	_, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, services.ErrForbidden))
}

func TestCreateOrderGeofenceRecheck(t *testing.T) {
	f := newOrderFixture(t)

	// GPS supplied with the order is checked again, without the start slack.
	_, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
		Latitude:      floatPtr(anchorLat + 0.01),
		Longitude:     floatPtr(anchorLon),
		Accuracy:      floatPtr(0),
	})
	var geoErr *services.GeofenceError
	assert.True(t, errors.As(err, &geoErr))
	assert.Equal(t, 50.0, geoErr.EffectiveRadiusMeters)

	// An order without GPS rides on the verified session alone.
	_, err = f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
	})
	assert.NoError(t, err)
}

func TestUpdateStatusWalksTheWorkflow(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
	})
	assert.NoError(t, err)
	assert.Nil(t, order.ConfirmedAt)

	confirmed, err := f.orders.UpdateStatus(context.Background(), order.ID, models.OrderStatusConfirmed, "")
	assert.NoError(t, err)
	assert.NotNil(t, confirmed.ConfirmedAt)
	confirmedAt := *confirmed.ConfirmedAt

	preparing, err := f.orders.UpdateStatus(context.Background(), order.ID, models.OrderStatusPreparing, "")
	assert.NoError(t, err)
	assert.NotNil(t, preparing.PreparingAt)
	// Moving on does not disturb the earlier stamp.
	assert.Equal(t, confirmedAt.Unix(), preparing.ConfirmedAt.Unix())

	events := f.recorder.byEvent(realtime.EventOrderStatusUpdated)
	assert.Len(t, events, 2)
}

func TestUpdateStatusMaySkipSteps(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
	})
	assert.NoError(t, err)

	// Straight from pending to preparing: only the entered status gets its
	// stamp, the skipped one stays empty.
	preparing, err := f.orders.UpdateStatus(context.Background(), order.ID, models.OrderStatusPreparing, "")
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, preparing.Status)
	assert.NotNil(t, preparing.PreparingAt)
	assert.Nil(t, preparing.ConfirmedAt)
}

func TestUpdateStatusRejectsSameStatus(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
	})
	assert.NoError(t, err)

	_, err = f.orders.UpdateStatus(context.Background(), order.ID, models.OrderStatusPending, "")
	assert.True(t, errors.Is(err, services.ErrInvalidTransition))

	// The failed attempt changed nothing.
	reloaded, err := f.orders.GetOrder(context.Background(), order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, reloaded.Status)
}

func TestTerminalOrdersAreFrozen(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
	})
	assert.NoError(t, err)

	_, err = f.orders.CancelOrder(context.Background(), order.ID, "customer left")
	assert.NoError(t, err)

	for _, next := range []string{
		models.OrderStatusConfirmed,
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	} {
		_, err := f.orders.UpdateStatus(context.Background(), order.ID, next, "again")
		assert.True(t, errors.Is(err, services.ErrInvalidTransition), "cancelled -> %s should fail", next)
	}
}

func TestCancelFromAnyLiveStatus(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCardAtTable,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
	})
	assert.NoError(t, err)

	_, err = f.orders.UpdateStatus(context.Background(), order.ID, models.OrderStatusConfirmed, "")
	assert.NoError(t, err)
	_, err = f.orders.UpdateStatus(context.Background(), order.ID, models.OrderStatusPreparing, "")
	assert.NoError(t, err)

	cancelled, err := f.orders.CancelOrder(context.Background(), order.ID, "")
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "Cancelled by staff", cancelled.CancellationReason)
	// The stamps from the path already walked survive the cancel.
	assert.NotNil(t, cancelled.PreparingAt)
}

func TestCancelRequiresReasonOnUpdateStatus(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
		SessionToken:  f.token,
		PaymentMethod: models.PaymentMethodCash,
		Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
	})
	assert.NoError(t, err)

	_, err = f.orders.UpdateStatus(context.Background(), order.ID, models.OrderStatusCancelled, "")
	assert.True(t, errors.Is(err, services.ErrInvalidInput))
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.orders.UpdateStatus(context.Background(), 9999, models.OrderStatusConfirmed, "")
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestListKitchenOrdersSkipsTerminal(t *testing.T) {
	f := newOrderFixture(t)

	var ids []uint
	for i := 0; i < 3; i++ {
		order, err := f.orders.CreateOrder(context.Background(), services.CreateOrderInput{
			SessionToken:  f.token,
			PaymentMethod: models.PaymentMethodCash,
			Items:         []services.OrderItemInput{{MenuID: f.seed.Menu.ID, Quantity: 1}},
		})
		assert.NoError(t, err)
		ids = append(ids, order.ID)
	}

	_, err := f.orders.CancelOrder(context.Background(), ids[1], "mistake")
	assert.NoError(t, err)

	live, err := f.orders.ListKitchenOrders(context.Background(), f.seed.Restaurant.ID)
	assert.NoError(t, err)
	assert.Len(t, live, 2)
	for _, order := range live {
		assert.NotEqual(t, ids[1], order.ID)
		assert.False(t, order.Terminal())
	}
}
