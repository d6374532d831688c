package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness or reference constraint.
	ErrConflict = errors.New("record conflicts with existing data")
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Postgres error codes. A malformed uuid literal can never match a row, so
// invalid_text_representation reads as not found.
const (
	pgUniqueViolation           = "23505"
	pgForeignKeyViolation       = "23503"
	pgInvalidTextRepresentation = "22P02"
)

// Sort describes ordering and paging shared by list queries. SortBy accepts
// the field names exposed by the API (camelCase) or the column names.
type Sort struct {
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// Normalize clamps paging values into range.
func (s Sort) Normalize() Sort {
	if s.Limit <= 0 {
		s.Limit = defaultLimit
	}
	if s.Limit > maxLimit {
		s.Limit = maxLimit
	}
	if s.Offset < 0 {
		s.Offset = 0
	}
	return s
}

// NewPage builds a Sort for a zero-based page of the given size. The size is
// clamped first so the offset always lines up with the limit actually used.
func NewPage(page, size int) Sort {
	sort := Sort{Limit: size}.Normalize()
	if page > 0 {
		sort.Offset = page * sort.Limit
	}
	return sort
}

// TicketSortColumns maps accepted sort keys to ticket columns.
var TicketSortColumns = map[string]string{
	"id":          "id",
	"subject":     "subject",
	"description": "description",
	"status":      "status",
	"priority":    "priority",
	"creatorId":   "creator_id",
	"creator_id":  "creator_id",
	"assigneeId":  "assignee_id",
	"assignee_id": "assignee_id",
	"createdAt":   "created_at",
	"created_at":  "created_at",
	"updatedAt":   "updated_at",
	"updated_at":  "updated_at",
	"resolvedAt":  "resolved_at",
	"resolved_at": "resolved_at",
	"closedAt":    "closed_at",
	"closed_at":   "closed_at",
}

// UserSortColumns maps accepted sort keys to user columns.
var UserSortColumns = map[string]string{
	"id":         "id",
	"username":   "username",
	"email":      "email",
	"firstName":  "first_name",
	"first_name": "first_name",
	"lastName":   "last_name",
	"last_name":  "last_name",
	"role":       "role",
	"active":     "active",
	"createdAt":  "created_at",
	"created_at": "created_at",
	"updatedAt":  "updated_at",
	"updated_at": "updated_at",
}

// SortColumn resolves a sort key, falling back to created_at for unknown keys.
func SortColumn(columns map[string]string, key string) string {
	if col, ok := columns[key]; ok {
		return col
	}
	return "created_at"
}

func orderClause(columns map[string]string, sort Sort) string {
	dir := "ASC"
	if sort.SortDesc {
		dir = "DESC"
	}
	// id breaks ties so paging is stable.
	return fmt.Sprintf("ORDER BY %s %s, id %s LIMIT %d OFFSET %d",
		SortColumn(columns, sort.SortBy), dir, dir, sort.Limit, sort.Offset)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches term literally anywhere in a value. Queries using it
// must declare ESCAPE '\'.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

// mapPgError translates driver errors into repository errors.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case pgInvalidTextRepresentation:
			return ErrNotFound
		}
	}
	return err
}
