package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Roles
// -----------------------------------------------------------------------------

// Role identifies what a user account is allowed to do.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCourier   Role = "courier"
	RoleSender    Role = "sender"
	RoleRecipient Role = "recipient"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCourier, RoleSender, RoleRecipient:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Package status machine
// -----------------------------------------------------------------------------

// PackageStatus is a stage in the package delivery lifecycle.
type PackageStatus string

const (
	StatusCreated   PackageStatus = "created"
	StatusAssigned  PackageStatus = "assigned"
	StatusPickedUp  PackageStatus = "picked_up"
	StatusInTransit PackageStatus = "in_transit"
	StatusDelivered PackageStatus = "delivered"
	StatusFailed    PackageStatus = "failed"
	StatusCancelled PackageStatus = "cancelled"
)

// statusTransitions is the closed set of legal status moves.
var statusTransitions = map[PackageStatus][]PackageStatus{
	StatusCreated:   {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusInTransit, StatusFailed},
	StatusInTransit: {StatusDelivered, StatusFailed},
	StatusDelivered: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// Valid reports whether s is a known status.
func (s PackageStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s PackageStatus) CanTransitionTo(next PackageStatus) bool {
	for _, t := range statusTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s PackageStatus) Terminal() bool {
	return s.Valid() && len(statusTransitions[s]) == 0
}

// -----------------------------------------------------------------------------
// Entities
// -----------------------------------------------------------------------------

// User is a platform account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Package is a shippable item moving through the delivery lifecycle.
type Package struct {
	ID             int64         `json:"id"`
	TrackingNumber string        `json:"tracking_number"`
	SenderID       int64         `json:"sender_id"`
	CourierID      *int64        `json:"courier_id,omitempty"`
	RecipientID    *int64        `json:"recipient_id,omitempty"`
	RecipientName  string        `json:"recipient_name"`
	RecipientPhone string        `json:"recipient_phone,omitempty"`
	PickupAddress  string        `json:"pickup_address"`
	DeliveryAddr   string        `json:"delivery_address"`
	Description    string        `json:"description,omitempty"`
	WeightKg       float64       `json:"weight_kg"`
	Status         PackageStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	// Optional scheduling hints supplied by the sender.
	ScheduledPickupTime   *time.Time `json:"scheduled_pickup_time,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
}

// Delivery is the courier-side record of one package in motion. Created when
// the package is assigned; completed when it reaches a terminal status.
type Delivery struct {
	ID                 int64      `json:"id"`
	PackageID          int64      `json:"package_id"`
	CourierID          int64      `json:"courier_id"`
	CurrentLat         *float64   `json:"current_lat,omitempty"`
	CurrentLng         *float64   `json:"current_lng,omitempty"`
	LastLocationUpdate *time.Time `json:"last_location_update,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Notification is a persisted message for a user, written alongside the live
// push so offline users catch up through the REST API.
type Notification struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	Kind             string    `json:"kind"`
	IsRead           bool      `json:"is_read"`
	RelatedPackageID *int64    `json:"related_package_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// TokenPair is an issued access/refresh token set.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Identity is the verified subject of a request or connection.
type Identity struct {
	UserID int64
	Role   Role
}

// NewTrackingNumber generates a "PKG-XXXXXXXX" tracking number.
func NewTrackingNumber() string {
	id := uuid.New().String()
	return "PKG-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:8])
}
