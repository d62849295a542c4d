package enums

import "fmt"

// LoadPlanStatus is the lifecycle state of a container load plan.
type LoadPlanStatus string

const (
	LoadPlanStatusDraft     LoadPlanStatus = "draft"
	LoadPlanStatusLoading   LoadPlanStatus = "loading"
	LoadPlanStatusShipped   LoadPlanStatus = "shipped"
	LoadPlanStatusCancelled LoadPlanStatus = "cancelled"
)

var validLoadPlanStatuses = []LoadPlanStatus{
	LoadPlanStatusDraft,
	LoadPlanStatusLoading,
	LoadPlanStatusShipped,
	LoadPlanStatusCancelled,
}

// IsValid reports whether the value matches the canonical load plan status enum.
func (l LoadPlanStatus) IsValid() bool {
	for _, candidate := range validLoadPlanStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLoadPlanStatus converts the raw string to LoadPlanStatus.
func ParseLoadPlanStatus(value string) (LoadPlanStatus, error) {
	for _, candidate := range validLoadPlanStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid load plan status %q", value)
}

// ShipmentStatus is the lifecycle state of an outbound shipment.
type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "pending"
	ShipmentStatusPlanned   ShipmentStatus = "planned"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusCancelled ShipmentStatus = "cancelled"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusPending,
	ShipmentStatusPlanned,
	ShipmentStatusDelivered,
	ShipmentStatusCancelled,
}

// IsValid reports whether the value matches the canonical shipment status enum.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShipmentStatus converts the raw string to ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
