// Package cases implements the legal-case record store: create-and-search
// over case files with optional attachments. It shares no state with the
// stock-control core and talks only to its own table.
package cases

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Case is one legal case record. Attachment bytes are stored base64-encoded
// so the same column type works on every supported database.
type Case struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Number      string  `db:"number" json:"number"`
	Description string  `db:"description" json:"description"`
	FileName    *string `db:"file_name" json:"file_name,omitempty"`
	FileType    *string `db:"file_type" json:"file_type,omitempty"`
	FileData    *string `db:"file_data" json:"-"`
	CreatedAt   string  `db:"created_at" json:"created_at"`
}

// CreateInput is the input for registering a case.
type CreateInput struct {
	Name        string `json:"name"`
	Number      string `json:"number"`
	Description string `json:"description"`
	FileName    string `json:"file_name,omitempty"`
	FileType    string `json:"file_type,omitempty"`
	FileData    []byte `json:"file_data,omitempty"`
}

// ValidationError reports malformed case input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NotFoundError reports an unknown case id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("case %s not found", e.ID) }

// Search fields. An empty field searches across all three.
const (
	FieldName        = "name"
	FieldNumber      = "number"
	FieldDescription = "description"
)

type Service interface {
	Create(ctx context.Context, in CreateInput) (*Case, error)
	Get(ctx context.Context, id string) (*Case, error)
	// Search performs a substring match on the chosen field (or all fields
	// when field is empty), newest cases first.
	Search(ctx context.Context, term, field string) ([]Case, error)
	// Attachment returns the decoded file bytes for a case, or NotFoundError
	// if the case has no attachment.
	Attachment(ctx context.Context, id string) (name, mimeType string, data []byte, err error)
}

type service struct {
	conn *sqlx.DB
}

func NewService(conn *sqlx.DB) Service {
	return &service{conn: conn}
}

func (s *service) Create(ctx context.Context, in CreateInput) (*Case, error) {
	if in.Name == "" || in.Number == "" || in.Description == "" {
		return nil, &ValidationError{Reason: "name, number and description are all required"}
	}

	c := &Case{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Number:      in.Number,
		Description: in.Description,
		CreatedAt:   nowStamp(),
	}
	if len(in.FileData) > 0 {
		if in.FileName == "" {
			return nil, &ValidationError{Reason: "attachments require a file name"}
		}
		encoded := base64.StdEncoding.EncodeToString(in.FileData)
		c.FileName = &in.FileName
		c.FileType = &in.FileType
		c.FileData = &encoded
	}

	_, err := s.conn.ExecContext(ctx, s.conn.Rebind(`
		INSERT INTO cases (id, name, number, description, file_name, file_type, file_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), c.ID, c.Name, c.Number, c.Description, c.FileName, c.FileType, c.FileData, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert case: %w", err)
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, id string) (*Case, error) {
	var c Case
	err := s.conn.GetContext(ctx, &c,
		s.conn.Rebind("SELECT * FROM cases WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to fetch case %s: %w", id, err)
	}
	return &c, nil
}

func (s *service) Search(ctx context.Context, term, field string) ([]Case, error) {
	if term == "" {
		return nil, &ValidationError{Reason: "search term is required"}
	}

	pattern := "%" + escapeLike(term) + "%"
	var (
		where string
		args  []any
	)
	switch field {
	case FieldName:
		where = "name LIKE ? ESCAPE '\\'"
		args = []any{pattern}
	case FieldNumber:
		where = "number LIKE ? ESCAPE '\\'"
		args = []any{pattern}
	case FieldDescription:
		where = "description LIKE ? ESCAPE '\\'"
		args = []any{pattern}
	case "":
		where = "name LIKE ? ESCAPE '\\' OR number LIKE ? ESCAPE '\\' OR description LIKE ? ESCAPE '\\'"
		args = []any{pattern, pattern, pattern}
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown search field %q", field)}
	}

	var out []Case
	err := s.conn.SelectContext(ctx, &out,
		s.conn.Rebind("SELECT * FROM cases WHERE "+where+" ORDER BY created_at DESC, id"),
		args...)
	if err != nil {
		return nil, fmt.Errorf("case search failed: %w", err)
	}
	return out, nil
}

func (s *service) Attachment(ctx context.Context, id string) (string, string, []byte, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", "", nil, err
	}
	if c.FileData == nil || c.FileName == nil {
		return "", "", nil, &NotFoundError{ID: id}
	}
	data, err := base64.StdEncoding.DecodeString(*c.FileData)
	if err != nil {
		return "", "", nil, fmt.Errorf("stored attachment for case %s is corrupt: %w", id, err)
	}
	mimeType := "application/octet-stream"
	if c.FileType != nil && *c.FileType != "" {
		mimeType = *c.FileType
	}
	return *c.FileName, mimeType, data, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
