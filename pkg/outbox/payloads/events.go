package payloads

import (
	"time"

	"github.com/angelmondragon/carrental-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractEvent is the payload for contract_created, contract_updated and contract_expired.
type ContractEvent struct {
	ContractID uuid.UUID            `json:"contract_id"`
	CarID      uuid.UUID            `json:"car_id"`
	CustomerID uuid.UUID            `json:"customer_id"`
	Status     enums.ContractStatus `json:"status"`
	StartDate  time.Time            `json:"start_date"`
	EndDate    *time.Time           `json:"end_date,omitempty"`
	TotalPrice *decimal.Decimal     `json:"total_price,omitempty"`
	// CarReleased is set when the transition returned the car to the fleet.
	CarReleased bool `json:"car_released"`
	// PreviousCarID is set when an update reassigned the contract to another car.
	PreviousCarID *uuid.UUID `json:"previous_car_id,omitempty"`
}

// ContractCanceledEvent is emitted when a contract is terminated before it starts.
type ContractCanceledEvent struct {
	ContractID  uuid.UUID `json:"contract_id"`
	CarID       uuid.UUID `json:"car_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	CanceledAt  time.Time `json:"canceled_at"`
	CarReleased bool      `json:"car_released"`
}

// PaymentRecordedEvent is emitted when a payment is created against a contract.
type PaymentRecordedEvent struct {
	PaymentID   uuid.UUID           `json:"payment_id"`
	ContractID  uuid.UUID           `json:"contract_id"`
	Method      enums.PaymentMethod `json:"method"`
	Status      enums.PaymentStatus `json:"status"`
	Amount      decimal.Decimal     `json:"amount"`
	PaymentDate time.Time           `json:"payment_date"`
}
