package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qrdine/table-order-app/cache"
	"github.com/qrdine/table-order-app/geofence"
	"github.com/qrdine/table-order-app/models"
	"github.com/qrdine/table-order-app/utils"
)

// SessionOptions tune the session manager. GeofenceBypass is the explicit
// development switch: it accepts sessions without GPS and ignores fence
// rejections, but distances are still computed and reported when GPS is
// present.
type SessionOptions struct {
	GeofenceBypass bool
}

// SessionService orchestrates the QR-scan table binding: geofence check,
// at-most-one-active-session-per-table, the time-boxed bearer token and its
// cache mirror.
type SessionService struct {
	db    *gorm.DB
	cache cache.SessionCache
	opts  SessionOptions
}

func NewSessionService(db *gorm.DB, sessionCache cache.SessionCache, opts SessionOptions) *SessionService {
	return &SessionService{
		db:    db,
		cache: sessionCache,
		opts:  opts,
	}
}

type StartSessionInput struct {
	QRCode     string
	Latitude   *float64
	Longitude  *float64
	Accuracy   *float64
	DeviceInfo string
}

type StartSessionResult struct {
	SessionToken   string           `json:"session_token"`
	ExpiresAt      time.Time        `json:"expires_at"`
	TableID        uint             `json:"table_id"`
	TableNumber    string           `json:"table_number"`
	TableName      string           `json:"table_name"`
	RestaurantID   uint             `json:"restaurant_id"`
	RestaurantName string           `json:"restaurant_name"`
	RestaurantSlug string           `json:"restaurant_slug"`
	Verification   *geofence.Result `json:"verification,omitempty"`
}

// SessionStatus is the answer to Verify. Expired distinguishes a session
// that timed out (or was replaced/ended) from a token that never existed.
type SessionStatus struct {
	Valid            bool                   `json:"valid"`
	Expired          bool                   `json:"expired"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	Session          *cache.SessionSnapshot `json:"session,omitempty"`
}

// StartSession resolves a QR token to a table, verifies the device position
// against the restaurant geofence and issues a fresh bearer token. Any
// previously active session for the table is deactivated in the same
// transaction that creates the new one.
func (s *SessionService) StartSession(ctx context.Context, input StartSessionInput) (*StartSessionResult, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).Preload("Restaurant").
		Where("qr_code = ?", input.QRCode).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown QR code", ErrNotFound)
		}
		return nil, err
	}

	if !table.Restaurant.IsActive {
		return nil, fmt.Errorf("%w: restaurant is not active", ErrForbidden)
	}
	if !table.IsActive {
		return nil, fmt.Errorf("%w: table is not active", ErrForbidden)
	}

	var verification *geofence.Result
	if input.Latitude != nil && input.Longitude != nil {
		accuracy := 0.0
		if input.Accuracy != nil {
			accuracy = *input.Accuracy
		}
		res := geofence.Evaluate(
			geofence.Point(*input.Latitude, *input.Longitude),
			geofence.Point(table.Restaurant.Latitude, table.Restaurant.Longitude),
			table.Restaurant.LocationRadius,
			accuracy,
			geofence.SessionStartSlackM,
		)
		verification = &res

		if !res.WithinRange && !s.opts.GeofenceBypass {
			return nil, &GeofenceError{
				DistanceMeters:        res.DistanceMeters,
				EffectiveRadiusMeters: res.EffectiveRadiusMeters,
			}
		}
	} else if !s.opts.GeofenceBypass {
		// No GPS at all is only acceptable under the development bypass.
		return nil, fmt.Errorf("%w: location is required to start a session", ErrForbidden)
	}

	now := time.Now()
	session := models.TableSession{
		TableID:        table.ID,
		SessionToken:   uuid.NewString(),
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		Accuracy:       input.Accuracy,
		DeviceInfo:     input.DeviceInfo,
		IsActive:       true,
		ExpiresAt:      now.Add(time.Duration(table.Restaurant.SessionTimeout) * time.Minute),
		LastActivityAt: now,
	}

	// Grab the tokens being replaced first so their cache mirrors can be
	// dropped once the swap is durable.
	var replaced []models.TableSession
	if err := s.db.WithContext(ctx).
		Where("table_id = ? AND is_active = ?", table.ID, true).
		Find(&replaced).Error; err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TableSession{}).
			Where("table_id = ? AND is_active = ?", table.ID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		return nil, err
	}

	for _, old := range replaced {
		if err := s.cache.Delete(ctx, old.SessionToken); err != nil {
			utils.ErrorLogger.Printf("Session cache delete failed for session %d: %v", old.ID, err)
		}
	}
	s.mirrorToCache(ctx, &session, &table, &table.Restaurant)

	utils.InfoLogger.Printf("Session %d started at table %d (expires %s)",
		session.ID, table.ID, session.ExpiresAt.Format(time.RFC3339))

	return &StartSessionResult{
		SessionToken:   session.SessionToken,
		ExpiresAt:      session.ExpiresAt,
		TableID:        table.ID,
		TableNumber:    table.TableNumber,
		TableName:      table.Name,
		RestaurantID:   table.Restaurant.ID,
		RestaurantName: table.Restaurant.Name,
		RestaurantSlug: table.Restaurant.Slug,
		Verification:   verification,
	}, nil
}

// VerifySession answers from the cache when it can and falls back to the
// durable row on a miss, repairing the cache on the way out (cache-aside).
func (s *SessionService) VerifySession(ctx context.Context, token string) (*SessionStatus, error) {
	now := time.Now()

	snap, err := s.cache.Get(ctx, token)
	if err != nil {
		// Cache trouble is never fatal, the database is authoritative.
		utils.ErrorLogger.Printf("Session cache read failed for token: %v", err)
		snap = nil
	}
	if snap != nil && snap.ExpiresAt.After(now) {
		return &SessionStatus{
			Valid:            true,
			RemainingSeconds: int(snap.ExpiresAt.Sub(now).Seconds()),
			Session:          snap,
		}, nil
	}

	var session models.TableSession
	err = s.db.WithContext(ctx).Preload("Table").Preload("Table.Restaurant").
		Where("session_token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &SessionStatus{Valid: false, Expired: false}, nil
	}
	if err != nil {
		return nil, err
	}

	if !session.IsActive || session.Expired(now) {
		return &SessionStatus{Valid: false, Expired: true}, nil
	}

	// Cache miss but the durable record is alive: self-heal the mirror.
	fresh := snapshotOf(&session, &session.Table, &session.Table.Restaurant)
	s.setCache(ctx, fresh, session.ExpiresAt.Sub(now))

	return &SessionStatus{
		Valid:            true,
		RemainingSeconds: int(session.ExpiresAt.Sub(now).Seconds()),
		Session:          fresh,
	}, nil
}

// ExtendSession grants a fresh window measured from now, not stacked on the
// old expiry.
func (s *SessionService) ExtendSession(ctx context.Context, token string) (*StartSessionResult, error) {
	var session models.TableSession
	err := s.db.WithContext(ctx).Preload("Table").Preload("Table.Restaurant").
		Where("session_token = ? AND is_active = ?", token, true).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no active session for this token", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if session.Expired(now) {
		return nil, fmt.Errorf("%w: no active session for this token", ErrNotFound)
	}

	session.ExpiresAt = now.Add(time.Duration(session.Table.Restaurant.SessionTimeout) * time.Minute)
	session.LastActivityAt = now
	if err := s.db.WithContext(ctx).Save(&session).Error; err != nil {
		return nil, err
	}

	s.mirrorToCache(ctx, &session, &session.Table, &session.Table.Restaurant)

	return &StartSessionResult{
		SessionToken:   session.SessionToken,
		ExpiresAt:      session.ExpiresAt,
		TableID:        session.Table.ID,
		TableNumber:    session.Table.TableNumber,
		TableName:      session.Table.Name,
		RestaurantID:   session.Table.Restaurant.ID,
		RestaurantName: session.Table.Restaurant.Name,
		RestaurantSlug: session.Table.Restaurant.Slug,
	}, nil
}

// EndSession is idempotent: ending a session that is already gone succeeds.
func (s *SessionService) EndSession(ctx context.Context, token string) error {
	if err := s.cache.Delete(ctx, token); err != nil {
		utils.ErrorLogger.Printf("Session cache delete failed for token: %v", err)
	}
	return s.db.WithContext(ctx).Model(&models.TableSession{}).
		Where("session_token = ?", token).
		Update("is_active", false).Error
}

// InvalidateTableSessions ends every active session for a table. Used when a
// table's QR code is regenerated and before activating a replacement.
func (s *SessionService) InvalidateTableSessions(ctx context.Context, tableID uint) error {
	var sessions []models.TableSession
	if err := s.db.WithContext(ctx).
		Where("table_id = ? AND is_active = ?", tableID, true).
		Find(&sessions).Error; err != nil {
		return err
	}

	for _, session := range sessions {
		if err := s.cache.Delete(ctx, session.SessionToken); err != nil {
			utils.ErrorLogger.Printf("Session cache delete failed for session %d: %v", session.ID, err)
		}
	}

	return s.db.WithContext(ctx).Model(&models.TableSession{}).
		Where("table_id = ? AND is_active = ?", tableID, true).
		Update("is_active", false).Error
}

// TouchActivity bumps LastActivityAt, e.g. when the session places an order.
func (s *SessionService) TouchActivity(ctx context.Context, sessionID uint) error {
	return s.db.WithContext(ctx).Model(&models.TableSession{}).
		Where("id = ?", sessionID).
		Update("last_activity_at", time.Now()).Error
}

func snapshotOf(session *models.TableSession, table *models.Table, restaurant *models.Restaurant) *cache.SessionSnapshot {
	return &cache.SessionSnapshot{
		ID:             session.ID,
		Token:          session.SessionToken,
		RestaurantID:   restaurant.ID,
		TableID:        table.ID,
		TableNumber:    table.TableNumber,
		TableName:      table.Name,
		RestaurantName: restaurant.Name,
		RestaurantSlug: restaurant.Slug,
		ExpiresAt:      session.ExpiresAt,
	}
}

func (s *SessionService) mirrorToCache(ctx context.Context, session *models.TableSession, table *models.Table, restaurant *models.Restaurant) {
	s.setCache(ctx, snapshotOf(session, table, restaurant), time.Until(session.ExpiresAt))
}

func (s *SessionService) setCache(ctx context.Context, snap *cache.SessionSnapshot, ttl time.Duration) {
	if err := s.cache.Set(ctx, snap, ttl); err != nil {
		utils.ErrorLogger.Printf("Session cache write failed for session %d: %v", snap.ID, err)
	}
}
