package aggregates

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/mediahub-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

var (
	ErrValidation = errors.New("validation")
	ErrConflict   = errors.New("conflict")
)

func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// sqlite: "UNIQUE constraint failed: media.fingerprint"
var sqliteUniqueRe = regexp.MustCompile(`UNIQUE constraint failed: ([A-Za-z0-9_.]+)`)

// MapError maps driver and gorm failures into domain error codes.
// Unique violations keep the constraint (postgres) or table.column (sqlite) name.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var already *domainagg.Error
	if errors.As(err, &already) {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case errors.Is(err, ErrConflict):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domainagg.WrapConstraint(domainagg.CodeConflict, op, pgErr.ConstraintName, err)
		case "23503":
			return domainagg.WrapConstraint(domainagg.CodePreconditionFailed, op, pgErr.ConstraintName, err)
		case "40001", "40P01", "55P03":
			return domainagg.Wrap(domainagg.CodeRetryable, op, err)
		}
	}

	raw := err.Error()
	if m := sqliteUniqueRe.FindStringSubmatch(raw); m != nil {
		return domainagg.WrapConstraint(domainagg.CodeConflict, op, m[1], err)
	}
	msg := strings.ToLower(raw)
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}

// IsUniqueViolationOn reports whether err is a unique violation whose constraint
// mentions any of the given fragments (index name or column).
func IsUniqueViolationOn(err error, fragments ...string) bool {
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		return false
	}
	c := strings.ToLower(domainagg.ConstraintOf(err))
	msg := strings.ToLower(err.Error())
	for _, f := range fragments {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if strings.Contains(c, f) || strings.Contains(msg, f) {
			return true
		}
	}
	return false
}
