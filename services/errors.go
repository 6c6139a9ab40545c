package services

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the session, order and treat services.
// Controllers map these to HTTP statuses; anything unwrapped is a 500.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// GeofenceError is a client-visible rejection carrying the measured and
// allowed distances so the UI can render "you are 120m away, must be within
// 80m". It matches ErrForbidden under errors.Is.
type GeofenceError struct {
	DistanceMeters        float64
	EffectiveRadiusMeters float64
}

func (e *GeofenceError) Error() string {
	return fmt.Sprintf("outside the allowed area: you are %.0fm away, must be within %.0fm",
		e.DistanceMeters, e.EffectiveRadiusMeters)
}

func (e *GeofenceError) Is(target error) bool {
	return target == ErrForbidden
}
