package enums

import (
	"fmt"
	"strings"
)

// ContractStatus maps to the contract_status enum in Postgres.
type ContractStatus string

const (
	ContractStatusActive ContractStatus = "active"
	// ContractStatusEnded marks a contract closed by reaching its end date.
	ContractStatusEnded ContractStatus = "ended"
	// ContractStatusTerminated marks a contract cancelled before it started.
	ContractStatusTerminated ContractStatus = "terminated"
)

var validContractStatuses = []ContractStatus{
	ContractStatusActive,
	ContractStatusEnded,
	ContractStatusTerminated,
}

// String implements fmt.Stringer.
func (c ContractStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContractStatus.
func (c ContractStatus) IsValid() bool {
	for _, candidate := range validContractStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the contract no longer holds its car.
func (c ContractStatus) IsTerminal() bool {
	return c == ContractStatusEnded || c == ContractStatusTerminated
}

// ParseContractStatus converts raw input into a ContractStatus.
func ParseContractStatus(value string) (ContractStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validContractStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contract status %q", value)
}
