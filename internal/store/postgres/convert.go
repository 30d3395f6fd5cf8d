package postgres

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// toText converts an optional string to pgtype.Text.
// nil and empty strings become NULL.
func toText(p *string) pgtype.Text {
	if p == nil || *p == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *p, Valid: true}
}

// toUUID converts a string id to pgtype.UUID.
// Returns invalid if the string is empty or not a UUID.
func toUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func toUUIDPtr(p *string) pgtype.UUID {
	if p == nil {
		return pgtype.UUID{Valid: false}
	}
	return toUUID(*p)
}

// uuidString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func uuidString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// describe adds the constraint and SQLSTATE of a server error to the
// wrapped message so that error mapping upstream can match on them.
func describe(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		return fmt.Errorf("%s: constraint %s (%s): %w", op, pgErr.ConstraintName, pgErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
