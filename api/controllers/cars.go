package controllers

import (
	"net/http"

	"github.com/angelmondragon/carrental-backend/api/responses"
	"github.com/angelmondragon/carrental-backend/api/validators"
	"github.com/angelmondragon/carrental-backend/internal/cars"
	"github.com/angelmondragon/carrental-backend/internal/contracts"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
)

const maxFilterLength = 100

func CarCreate(svc cars.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "car service unavailable"))
			return
		}

		var body cars.CreateCarInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		car, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, car)
	}
}

func CarGet(svc cars.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "car service unavailable"))
			return
		}

		id, err := validators.PathUUID(r, "carId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		car, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, car)
	}
}

// CarList serves both the plain listing and the search filters
// brand, model, year and status.
func CarList(svc cars.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "car service unavailable"))
			return
		}

		limit, cursor, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		year, err := validators.ParseOptionalQueryInt(r, "year", 1886, 2100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseOptionalQueryEnum(r, "status", enums.ParseCarStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		result, err := svc.List(r.Context(), cars.ListInput{
			Filters: cars.ListFilters{
				Brand:  validators.SanitizeString(query.Get("brand"), maxFilterLength),
				Model:  validators.SanitizeString(query.Get("model"), maxFilterLength),
				Year:   year,
				Status: status,
			},
			Cursor: cursor,
			Limit:  limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func CarUpdate(svc cars.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "car service unavailable"))
			return
		}

		id, err := validators.PathUUID(r, "carId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cars.UpdateCarInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		car, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, car)
	}
}

func CarDelete(svc cars.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "car service unavailable"))
			return
		}

		id, err := validators.PathUUID(r, "carId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Delete(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CarPrice quotes the rental price of a car for the hours query parameter.
func CarPrice(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}

		id, err := validators.PathUUID(r, "carId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hours, err := validators.ParseQueryDecimal(r, "hours")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := svc.ComputeRentalPrice(r.Context(), id, hours)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, price)
	}
}
