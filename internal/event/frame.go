package event

import (
	"encoding/json"
	"time"
)

// Kind is the "type" discriminator on outbound wire frames.
type Kind string

const (
	KindConnectionEstablished Kind = "connection_established"
	KindPackageCreated        Kind = "package_created"
	KindNewPackageAvailable   Kind = "new_package_available"
	KindPackageStatusUpdated  Kind = "package_status_updated"
	KindPackageAssignedToYou  Kind = "package_assigned_to_you"
	KindPackageAssigned       Kind = "package_assigned"
	KindDeliveryLocation      Kind = "delivery_location"
	KindSystemAnnouncement    Kind = "system_announcement"
	KindDeliverySubscribed    Kind = "delivery_subscribed"
	KindDeliveryUnsubscribed  Kind = "delivery_unsubscribed"
	KindPong                  Kind = "pong"
	KindError                 Kind = "error"
)

// Stamp returns the wire timestamp for frames built now.
func Stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ConnectionEstablishedFrame greets a session after a successful upgrade.
type ConnectionEstablishedFrame struct {
	Type      Kind   `json:"type"`
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
}

// PackageCreatedFrame notifies admins of a new package.
type PackageCreatedFrame struct {
	Type            Kind   `json:"type"`
	PackageID       int64  `json:"package_id"`
	TrackingNumber  string `json:"tracking_number"`
	SenderID        int64  `json:"sender_id"`
	PickupAddress   string `json:"pickup_address"`
	DeliveryAddress string `json:"delivery_address"`
	Timestamp       string `json:"timestamp"`
}

// NewPackageAvailableFrame offers an unassigned package to an eligible courier.
type NewPackageAvailableFrame struct {
	Type            Kind   `json:"type"`
	PackageID       int64  `json:"package_id"`
	TrackingNumber  string `json:"tracking_number"`
	PickupAddress   string `json:"pickup_address"`
	DeliveryAddress string `json:"delivery_address"`
	Timestamp       string `json:"timestamp"`
}

// PackageStatusUpdatedFrame reports a status transition to package participants.
type PackageStatusUpdatedFrame struct {
	Type           Kind   `json:"type"`
	PackageID      int64  `json:"package_id"`
	TrackingNumber string `json:"tracking_number"`
	OldStatus      string `json:"old_status"`
	NewStatus      string `json:"new_status"`
	Timestamp      string `json:"timestamp"`
}

// PackageAssignedFrame reports an assignment. The courier's copy uses
// KindPackageAssignedToYou, the sender's copy KindPackageAssigned; payloads
// are identical.
type PackageAssignedFrame struct {
	Type            Kind   `json:"type"`
	PackageID       int64  `json:"package_id"`
	TrackingNumber  string `json:"tracking_number"`
	CourierID       int64  `json:"courier_id"`
	PickupAddress   string `json:"pickup_address"`
	DeliveryAddress string `json:"delivery_address"`
	Timestamp       string `json:"timestamp"`
}

// DeliveryLocationFrame carries a courier position fix to delivery subscribers.
type DeliveryLocationFrame struct {
	Type       Kind    `json:"type"`
	DeliveryID int64   `json:"delivery_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Timestamp  string  `json:"timestamp"`
}

// SystemAnnouncementFrame is an operator broadcast.
type SystemAnnouncementFrame struct {
	Type      Kind   `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// SubscriptionAckFrame acknowledges subscribe_delivery / unsubscribe_delivery.
type SubscriptionAckFrame struct {
	Type       Kind   `json:"type"`
	DeliveryID int64  `json:"delivery_id"`
	Timestamp  string `json:"timestamp"`
}

// PongFrame answers an application-level ping.
type PongFrame struct {
	Type      Kind   `json:"type"`
	Timestamp string `json:"timestamp"`
}

// ErrorFrame reports a recoverable per-command failure without closing.
type ErrorFrame struct {
	Type      Kind   `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Frame is the client-side decoded view of any outbound frame. Only the
// fields matching Type carry meaning.
type Frame struct {
	Type            Kind    `json:"type"`
	Timestamp       string  `json:"timestamp"`
	UserID          int64   `json:"user_id"`
	Role            string  `json:"role"`
	PackageID       int64   `json:"package_id"`
	TrackingNumber  string  `json:"tracking_number"`
	SenderID        int64   `json:"sender_id"`
	CourierID       int64   `json:"courier_id"`
	OldStatus       string  `json:"old_status"`
	NewStatus       string  `json:"new_status"`
	PickupAddress   string  `json:"pickup_address"`
	DeliveryAddress string  `json:"delivery_address"`
	DeliveryID      int64   `json:"delivery_id"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	Message         string  `json:"message"`
}

// ParseFrame decodes one outbound wire frame.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}
