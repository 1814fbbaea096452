package event

import (
	"github.com/avelichko/couriertrack/internal/model"
)

// Event is a domain fact about a package or delivery state change. The set of
// implementations is closed; route with a type switch over *PackageCreated,
// *PackageStatusChanged, *PackageAssigned, *DeliveryLocationUpdated and
// *SystemAnnouncement.
type Event interface {
	isEvent()
}

// PackageCreated fires when a sender posts a new package. EligibleCourierIDs
// is the audience of couriers who may claim it, computed by the caller at
// publish time.
type PackageCreated struct {
	PackageID          int64
	TrackingNumber     string
	SenderID           int64
	PickupAddress      string
	DeliveryAddress    string
	EligibleCourierIDs []int64
}

// PackageStatusChanged fires on every legal status transition. CourierID and
// RecipientID are nil when the package has none.
type PackageStatusChanged struct {
	PackageID      int64
	TrackingNumber string
	OldStatus      model.PackageStatus
	NewStatus      model.PackageStatus
	SenderID       int64
	CourierID      *int64
	RecipientID    *int64
}

// PackageAssigned fires when a courier is attached to a package.
type PackageAssigned struct {
	PackageID       int64
	TrackingNumber  string
	CourierID       int64
	SenderID        int64
	PickupAddress   string
	DeliveryAddress string
}

// DeliveryLocationUpdated fires when a courier reports a position fix.
type DeliveryLocationUpdated struct {
	DeliveryID int64
	Lat        float64
	Lng        float64
}

// SystemAnnouncement is an operator broadcast to every live connection.
type SystemAnnouncement struct {
	Message string
}

func (*PackageCreated) isEvent()          {}
func (*PackageStatusChanged) isEvent()    {}
func (*PackageAssigned) isEvent()         {}
func (*DeliveryLocationUpdated) isEvent() {}
func (*SystemAnnouncement) isEvent()      {}
