package enums

import (
	"fmt"
	"strings"
)

// CarStatus maps to the car_status enum in Postgres.
type CarStatus string

const (
	CarStatusAvailable     CarStatus = "available"
	CarStatusReserved      CarStatus = "reserved"
	CarStatusRented        CarStatus = "rented"
	CarStatusInMaintenance CarStatus = "in_maintenance"
	CarStatusDamaged       CarStatus = "damaged"
	CarStatusOutOfService  CarStatus = "out_of_service"
)

var validCarStatuses = []CarStatus{
	CarStatusAvailable,
	CarStatusReserved,
	CarStatusRented,
	CarStatusInMaintenance,
	CarStatusDamaged,
	CarStatusOutOfService,
}

// String implements fmt.Stringer.
func (c CarStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CarStatus.
func (c CarStatus) IsValid() bool {
	for _, candidate := range validCarStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsRentable reports whether a new contract may claim the car.
func (c CarStatus) IsRentable() bool {
	return c == CarStatusAvailable
}

// IsHeldByContract reports whether the status was set by a contract
// (as opposed to an administrative state such as maintenance).
func (c CarStatus) IsHeldByContract() bool {
	return c == CarStatusReserved || c == CarStatusRented
}

// ParseCarStatus converts raw input into a CarStatus.
func ParseCarStatus(value string) (CarStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validCarStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid car status %q", value)
}
