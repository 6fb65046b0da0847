package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// constraintRules names the rental rule behind each schema constraint so a 5xx log
// line says what was violated without reading the migrations.
var constraintRules = map[string]string{
	"users_email_key":                    "user email must be unique",
	"customers_email_key":                "customer email must be unique",
	"cars_price_per_hour_positive":       "car price_per_hour must be positive",
	"cars_year_range":                    "car year must be between 1886 and 2100",
	"contracts_date_range":               "contract start_date must be before end_date",
	"contracts_total_price_non_negative": "contract total_price must not be negative",
	"fk_contracts_car":                   "contract car must exist and cars with contracts cannot be deleted",
	"fk_contracts_customer":              "contract customer must exist",
	"payments_amount_non_negative":       "payment amount must not be negative",
	"fk_payments_contract":               "payment contract must exist",
	"ux_outbox_dlq_event_id":             "an outbox event is dead-lettered once",
}

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
	// Rule is the rental invariant behind PGConstraint, when it is one we own.
	Rule string `json:"rule,omitempty"`
}

// Dump flattens err for structured logs: the typed code, every wrapped layer and the
// Postgres diagnostics from either pgx or lib/pq.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	if pg, ok := postgresError(err); ok {
		d.PGCode = pg.PGCode
		d.PGConstraint = pg.PGConstraint
		d.PGTable = pg.PGTable
		d.PGColumn = pg.PGColumn
		d.PGDetail = pg.PGDetail
		d.PGMessage = pg.PGMessage
		d.Rule = constraintRules[pg.PGConstraint]
	}
	return d
}

// ConstraintRule returns the rental rule enforced by the constraint err violated.
func ConstraintRule(err error) (string, bool) {
	pg, ok := postgresError(err)
	if !ok || pg.PGConstraint == "" {
		return "", false
	}
	rule, ok := constraintRules[pg.PGConstraint]
	return rule, ok
}

func postgresError(err error) (ErrorDump, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return ErrorDump{
			PGCode:       pgxErr.Code,
			PGConstraint: pgxErr.ConstraintName,
			PGTable:      pgxErr.TableName,
			PGColumn:     pgxErr.ColumnName,
			PGDetail:     pgxErr.Detail,
			PGMessage:    pgxErr.Message,
		}, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return ErrorDump{
			PGCode:       string(pqErr.Code),
			PGConstraint: pqErr.Constraint,
			PGTable:      pqErr.Table,
			PGColumn:     pqErr.Column,
			PGDetail:     pqErr.Detail,
			PGMessage:    pqErr.Message,
		}, true
	}
	return ErrorDump{}, false
}
