package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qrdine/table-order-app/cache"
	"github.com/qrdine/table-order-app/models"
	"github.com/qrdine/table-order-app/services"
)

func TestStartSessionAtAnchor(t *testing.T) {
	db := setupTestDB(t)
	seed := seedRestaurant(t, db)
	sessionCache := cache.NewMemorySessionCache()
	svc := services.NewSessionService(db, sessionCache, services.SessionOptions{})

	result, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat),
		Longitude: floatPtr(anchorLon),
		Accuracy:  floatPtr(0),
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, result.SessionToken)
	assert.True(t, result.Verification.WithinRange)
	assert.Equal(t, 0.0, result.Verification.DistanceMeters)
	assert.Equal(t, seed.Table.ID, result.TableID)
	assert.Equal(t, "Test Bistro", result.RestaurantName)
	assert.True(t, result.ExpiresAt.After(time.Now().Add(29*time.Minute)))

	// The cache mirror is in place.
	snap, err := sessionCache.Get(context.Background(), result.SessionToken)
	assert.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, seed.Restaurant.ID, snap.RestaurantID)
}

func TestStartSessionUnknownQR(t *testing.T) {
	db := setupTestDB(t)
	seedRestaurant(t, db)
	svc := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{})

	_, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    "no-such-qr",
		Latitude:  floatPtr(anchorLat),
		Longitude: floatPtr(anchorLon),
	})
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestStartSessionInactiveTable(t *testing.T) {
	db := setupTestDB(t)
	seed := seedRestaurant(t, db)
	db.Model(&models.Table{}).Where("id = ?", seed.Table.ID).Update("is_active", false)
	svc := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{})

	_, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat),
		Longitude: floatPtr(anchorLon),
	})
	assert.True(t, errors.Is(err, services.ErrForbidden))
}

func TestStartSessionOutsideGeofence(t *testing.T) {
	db := setupTestDB(t)
	seed := seedRestaurant(t, db)
	svc := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{})

	// Roughly 1.1km north of the anchor.
	_, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat + 0.01),
		Longitude: floatPtr(anchorLon),
		Accuracy:  floatPtr(0),
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrForbidden))

	var geoErr *services.GeofenceError
	assert.True(t, errors.As(err, &geoErr))
	assert.Greater(t, geoErr.DistanceMeters, geoErr.EffectiveRadiusMeters)
	assert.Equal(t, 70.0, geoErr.EffectiveRadiusMeters) // 50 base + 20 start slack
}

func TestStartSessionBypassStillReportsDistance(t *testing.T) {
	db := setupTestDB(t)
	seed := seedRestaurant(t, db)
	svc := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{GeofenceBypass: true})

	result, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat + 0.01),
		Longitude: floatPtr(anchorLon),
		Accuracy:  floatPtr(0),
	})
	assert.NoError(t, err)
	assert.NotNil(t, result.Verification)
	assert.False(t, result.Verification.WithinRange)
	assert.Greater(t, result.Verification.DistanceMeters, 1000.0)
}

func TestStartSessionWithoutGPS(t *testing.T) {
	db := setupTestDB(t)
	seed := seedRestaurant(t, db)

	strict := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{})
	_, err := strict.StartSession(context.Background(), services.StartSessionInput{QRCode: seed.Table.QRCode})
	assert.True(t, errors.Is(err, services.ErrForbidden))

	bypass := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{GeofenceBypass: true})
	result, err := bypass.StartSession(context.Background(), services.StartSessionInput{QRCode: seed.Table.QRCode})
	assert.NoError(t, err)
	assert.Nil(t, result.Verification)
}

func TestSecondSessionDeactivatesFirst(t *testing.T) {
	db := setupTestDB(t)
	seed := seedRestaurant(t, db)
	svc := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{})

	first, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat),
		Longitude: floatPtr(anchorLon),
	})
	assert.NoError(t, err)

	second, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat),
		Longitude: floatPtr(anchorLon),
	})
	assert.NoError(t, err)
	assert.NotEqual(t, first.SessionToken, second.SessionToken)

	// The replaced token no longer verifies.
	status, err := svc.VerifySession(context.Background(), first.SessionToken)
	assert.NoError(t, err)
	assert.False(t, status.Valid)
	assert.True(t, status.Expired)

	// At most one active row for the table.
	var activeCount int64
	db.Model(&models.TableSession{}).
		Where("table_id = ? AND is_active = ?", seed.Table.ID, true).
		Count(&activeCount)
	assert.Equal(t, int64(1), activeCount)
}

func TestVerifySessionCacheMissFallsBackAndHeals(t *testing.T) {
	db := setupTestDB(t)
	seed := seedRestaurant(t, db)
	sessionCache := cache.NewMemorySessionCache()
	svc := services.NewSessionService(db, sessionCache, services.SessionOptions{})

	result, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat),
		Longitude: floatPtr(anchorLon),
	})
	assert.NoError(t, err)

	// Simulate a cold cache.
	assert.NoError(t, sessionCache.Delete(context.Background(), result.SessionToken))

	status, err := svc.VerifySession(context.Background(), result.SessionToken)
	assert.NoError(t, err)
	assert.True(t, status.Valid)
	assert.Greater(t, status.RemainingSeconds, 0)

	// Self-healed.
	snap, err := sessionCache.Get(context.Background(), result.SessionToken)
	assert.NoError(t, err)
	assert.NotNil(t, snap)
}

func TestVerifySessionNeverExisted(t *testing.T) {
	db := setupTestDB(t)
	seedRestaurant(t, db)
	svc := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{})

	status, err := svc.VerifySession(context.Background(), "ghost-token")
	assert.NoError(t, err)
	assert.False(t, status.Valid)
	assert.False(t, status.Expired)
}

func TestVerifySessionTimedOut(t *testing.T) {
	db := setupTestDB(t)
	seed := seedRestaurant(t, db)
	sessionCache := cache.NewMemorySessionCache()
	svc := services.NewSessionService(db, sessionCache, services.SessionOptions{})

	result, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat),
		Longitude: floatPtr(anchorLon),
	})
	assert.NoError(t, err)

	// Force the durable expiry into the past and drop the mirror.
	db.Model(&models.TableSession{}).
		Where("session_token = ?", result.SessionToken).
		Update("expires_at", time.Now().Add(-time.Minute))
	assert.NoError(t, sessionCache.Delete(context.Background(), result.SessionToken))

	status, err := svc.VerifySession(context.Background(), result.SessionToken)
	assert.NoError(t, err)
	assert.False(t, status.Valid)
	assert.True(t, status.Expired)
}

func TestExtendSessionGrantsFreshWindow(t *testing.T) {
	db := setupTestDB(t)
	seed := seedRestaurant(t, db)
	svc := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{})

	started, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat),
		Longitude: floatPtr(anchorLon),
	})
	assert.NoError(t, err)

	// Shrink the remaining time so the extension is visible.
	nearExpiry := time.Now().Add(time.Minute)
	db.Model(&models.TableSession{}).
		Where("session_token = ?", started.SessionToken).
		Update("expires_at", nearExpiry)

	beforeExtend := time.Now()
	extended, err := svc.ExtendSession(context.Background(), started.SessionToken)
	assert.NoError(t, err)

	// The new window is measured from now, not stacked on the old expiry.
	assert.True(t, extended.ExpiresAt.After(beforeExtend.Add(29*time.Minute)))
	assert.True(t, extended.ExpiresAt.After(nearExpiry))
}

func TestExtendSessionUnknownToken(t *testing.T) {
	db := setupTestDB(t)
	seedRestaurant(t, db)
	svc := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{})

	_, err := svc.ExtendSession(context.Background(), "ghost-token")
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestEndSessionIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	seed := seedRestaurant(t, db)
	svc := services.NewSessionService(db, cache.NewMemorySessionCache(), services.SessionOptions{})

	started, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat),
		Longitude: floatPtr(anchorLon),
	})
	assert.NoError(t, err)

	assert.NoError(t, svc.EndSession(context.Background(), started.SessionToken))
	// Ending twice, or ending a token that never existed, still succeeds.
	assert.NoError(t, svc.EndSession(context.Background(), started.SessionToken))
	assert.NoError(t, svc.EndSession(context.Background(), "ghost-token"))

	status, err := svc.VerifySession(context.Background(), started.SessionToken)
	assert.NoError(t, err)
	assert.False(t, status.Valid)
}

func TestInvalidateTableSessions(t *testing.T) {
	db := setupTestDB(t)
	seed := seedRestaurant(t, db)
	sessionCache := cache.NewMemorySessionCache()
	svc := services.NewSessionService(db, sessionCache, services.SessionOptions{})

	started, err := svc.StartSession(context.Background(), services.StartSessionInput{
		QRCode:    seed.Table.QRCode,
		Latitude:  floatPtr(anchorLat),
		Longitude: floatPtr(anchorLon),
	})
	assert.NoError(t, err)

	assert.NoError(t, svc.InvalidateTableSessions(context.Background(), seed.Table.ID))

	status, err := svc.VerifySession(context.Background(), started.SessionToken)
	assert.NoError(t, err)
	assert.False(t, status.Valid)

	snap, err := sessionCache.Get(context.Background(), started.SessionToken)
	assert.NoError(t, err)
	assert.Nil(t, snap)
}
