package controllers

import (
	"net/http"

	"github.com/angelmondragon/carrental-backend/api/middleware"
	"github.com/angelmondragon/carrental-backend/api/responses"
	"github.com/angelmondragon/carrental-backend/api/validators"
	"github.com/angelmondragon/carrental-backend/internal/contracts"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
)

// ContractCreate opens a contract and reserves or rents the car.
func ContractCreate(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		var body contracts.CreateContractInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.PrincipalFromContext(r.Context())
		contract, err := svc.Create(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, contract)
	}
}

// ContractCancel cancels a contract and frees its car.
func ContractCancel(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		id, err := validators.PathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.PrincipalFromContext(r.Context())
		result, err := svc.Cancel(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ContractUpdate applies a partial patch. An explicit null end_date clears it.
func ContractUpdate(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		id, err := validators.PathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body contracts.UpdateContractInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.PrincipalFromContext(r.Context())
		contract, err := svc.Update(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, contract)
	}
}

func ContractGet(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		id, err := validators.PathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contract, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, contract)
	}
}

func ContractList(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		limit, cursor, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseOptionalQueryEnum(r, "status", enums.ParseContractStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		carID, err := validators.ParseOptionalQueryUUID(r, "car_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := validators.ParseOptionalQueryUUID(r, "customer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), contracts.ListInput{
			Filters: contracts.ListFilters{Status: status, CarID: carID, CustomerID: customerID},
			Cursor:  cursor,
			Limit:   limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
