package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mailroom/core"
	"github.com/trezcool/mailroom/core/template"
	"github.com/trezcool/mailroom/storage/database"
)

const templateColumns = `id, slug, name, description, category, subject, preheader, body, placeholders,
	is_active, is_system, created_at, updated_at`

// templateRow is the templates table row.
type templateRow struct {
	ID           string         `db:"id"`
	Slug         string         `db:"slug"`
	Name         string         `db:"name"`
	Description  null.String    `db:"description"`
	Category     string         `db:"category"`
	Subject      string         `db:"subject"`
	Preheader    null.String    `db:"preheader"`
	Body         string         `db:"body"`
	Placeholders pq.StringArray `db:"placeholders"`
	IsActive     bool           `db:"is_active"`
	IsSystem     bool           `db:"is_system"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func toRow(tmpl template.Template) templateRow {
	placeholders := pq.StringArray(tmpl.Placeholders)
	if placeholders == nil {
		placeholders = pq.StringArray{}
	}
	return templateRow{
		ID:           tmpl.ID,
		Slug:         tmpl.Slug,
		Name:         tmpl.Name,
		Description:  null.NewString(tmpl.Description, tmpl.Description != ""),
		Category:     string(tmpl.Category),
		Subject:      tmpl.Subject,
		Preheader:    null.NewString(tmpl.Preheader, tmpl.Preheader != ""),
		Body:         tmpl.Body,
		Placeholders: placeholders,
		IsActive:     tmpl.IsActive,
		IsSystem:     tmpl.IsSystem,
		CreatedAt:    tmpl.CreatedAt.UTC(),
		UpdatedAt:    tmpl.UpdatedAt.UTC(),
	}
}

func (row templateRow) toTemplate() template.Template {
	placeholders := []string(row.Placeholders)
	if placeholders == nil {
		placeholders = make([]string, 0)
	}
	return template.Template{
		ID:           row.ID,
		Slug:         row.Slug,
		Name:         row.Name,
		Description:  row.Description.String,
		Category:     template.Category(row.Category),
		Subject:      row.Subject,
		Preheader:    row.Preheader.String,
		Body:         row.Body,
		Placeholders: placeholders,
		IsActive:     row.IsActive,
		IsSystem:     row.IsSystem,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

type templateRepository struct {
	db *sqlx.DB
}

var _ template.Repository = (*templateRepository)(nil) // interface compliance check

func NewTemplateRepository(db *sqlx.DB) template.Repository {
	return &templateRepository{db: db}
}

func (repo *templateRepository) CreateTemplate(ctx context.Context, tmpl template.Template) (template.Template, error) {
	q := `INSERT INTO templates (` + templateColumns + `)
	VALUES (:id, :slug, :name, :description, :category, :subject, :preheader, :body, :placeholders,
		:is_active, :is_system, :created_at, :updated_at)
	RETURNING ` + templateColumns

	row, err := repo.namedGet(ctx, q, toRow(tmpl))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return template.Template{}, template.ErrDuplicateSlug
		}
		return template.Template{}, dbError(err, "inserting template")
	}
	return row.toTemplate(), nil
}

func (repo *templateRepository) UpsertTemplate(ctx context.Context, tmpl template.Template) (template.Template, error) {
	// id and created_at of an existing row are kept; is_system is never cleared
	q := `INSERT INTO templates (` + templateColumns + `)
	VALUES (:id, :slug, :name, :description, :category, :subject, :preheader, :body, :placeholders,
		:is_active, :is_system, :created_at, :updated_at)
	ON CONFLICT (slug) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		category = EXCLUDED.category,
		subject = EXCLUDED.subject,
		preheader = EXCLUDED.preheader,
		body = EXCLUDED.body,
		placeholders = EXCLUDED.placeholders,
		is_active = EXCLUDED.is_active,
		is_system = templates.is_system OR EXCLUDED.is_system,
		updated_at = EXCLUDED.updated_at
	RETURNING ` + templateColumns

	row, err := repo.namedGet(ctx, q, toRow(tmpl))
	if err != nil {
		return template.Template{}, dbError(err, "upserting template")
	}
	return row.toTemplate(), nil
}

func (repo *templateRepository) GetTemplateBySlug(ctx context.Context, slug string) (template.Template, error) {
	var row templateRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+templateColumns+` FROM templates WHERE slug = $1`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return template.Template{}, template.ErrNotFound
		}
		return template.Template{}, dbError(err, "selecting template")
	}
	return row.toTemplate(), nil
}

func (repo *templateRepository) FilterTemplates(ctx context.Context, filter template.QueryFilter) ([]template.Template, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		where = append(where, "category = ?")
	}
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		args = append(args, pattern, pattern)
		where = append(where, "(LOWER(slug) LIKE ? OR LOWER(name) LIKE ?)")
	}

	q := `SELECT ` + templateColumns + ` FROM templates`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY ` + orderBy(filter.Orderings)

	var rows []templateRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, dbError(err, "selecting templates")
	}
	tmpls := make([]template.Template, 0, len(rows))
	for _, row := range rows {
		tmpls = append(tmpls, row.toTemplate())
	}
	return tmpls, nil
}

func (repo *templateRepository) DeleteTemplate(ctx context.Context, slug string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM templates WHERE slug = $1`, slug)
	if err != nil {
		return dbError(err, "deleting template")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return template.ErrNotFound
	}
	return nil
}

func (repo *templateRepository) namedGet(ctx context.Context, q string, arg templateRow) (templateRow, error) {
	var row templateRow
	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return row, err
	}
	defer func() { _ = stmt.Close() }()
	err = stmt.GetContext(ctx, &row, arg)
	return row, err
}

// orderBy only lets template.OrderingFields through; slug is the default and the tie breaker.
func orderBy(ords []core.DBOrdering) string {
	parts := make([]string, 0, len(ords)+1)
	for _, ord := range ords {
		for _, field := range template.OrderingFields {
			if ord.Field == field {
				parts = append(parts, ord.String())
				break
			}
		}
	}
	return strings.Join(append(parts, "slug ASC"), ", ")
}

// dbError wraps err; a missing templates table means the database is not the one the app was
// migrated against, and is reported as a shutdown error.
func dbError(err error, msg string) error {
	if database.IsUndefinedTable(err) {
		return core.NewShutdownError(msg + ": " + err.Error())
	}
	return errors.Wrap(err, msg)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
