package leagues

import (
	"errors"
	"time"
)

// Module-level sentinel errors.
var (
	ErrNotFound = errors.New("leagues: not found")
	ErrInUse    = errors.New("leagues: league still has seasons")
)

// Sport enumerates the activities the platform schedules.
type Sport string

const (
	SportSoccer     Sport = "soccer"
	SportBasketball Sport = "basketball"
	SportSoftball   Sport = "softball"
	SportVolleyball Sport = "volleyball"
	SportHockey     Sport = "hockey"
	SportKickball   Sport = "kickball"
	SportUltimate   Sport = "ultimate"
)

// KnownSports lists every supported sport.
func KnownSports() []Sport {
	return []Sport{SportSoccer, SportBasketball, SportSoftball, SportVolleyball, SportHockey, SportKickball, SportUltimate}
}

// Valid reports whether the sport is supported.
func (s Sport) Valid() bool {
	for _, known := range KnownSports() {
		if s == known {
			return true
		}
	}
	return false
}

// League groups seasons of one recreational sport.
type League struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Sport       Sport     `json:"sport"`
	Description string    `json:"description"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
