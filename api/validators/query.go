package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseOptionalQueryInt returns nil when key is absent.
func ParseOptionalQueryInt(r *http.Request, key string, min, max int) (*int, error) {
	if strings.TrimSpace(r.URL.Query().Get(key)) == "" {
		return nil, nil
	}
	value, err := ParseQueryInt(r, key, 0, min, max)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// ParsePagination reads the limit and cursor query parameters shared by list endpoints.
func ParsePagination(r *http.Request) (int, string, error) {
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return 0, "", err
	}
	return limit, strings.TrimSpace(r.URL.Query().Get("cursor")), nil
}

// ParseOptionalQueryUUID returns nil when key is absent.
func ParseOptionalQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a uuid").WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}

// ParseOptionalQueryEnum applies parse to the raw value when key is present.
func ParseOptionalQueryEnum[T any](r *http.Request, key string, parse func(string) (T, error)) (*T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid query parameter").WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}

// ParseQueryDecimal parses a required decimal query parameter.
func ParseQueryDecimal(r *http.Request, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "query parameter is required").WithDetails(map[string]any{"field": key})
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a number").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// PathUUID reads a chi URL parameter as a uuid.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid id").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}
