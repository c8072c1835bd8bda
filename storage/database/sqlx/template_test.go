package sqlxrepos

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mailroom/core"
	"github.com/trezcool/mailroom/core/template"
)

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "default", raw: "", want: "slug ASC"},
		{name: "descending", raw: "-updated_at", want: "updated_at DESC, slug ASC"},
		{name: "many", raw: "category,-name", want: "category ASC, name DESC, slug ASC"},
		{name: "injection dropped", raw: "name;DROP TABLE templates,-id", want: "slug ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ords := core.ParseOrderings(tt.raw, template.OrderingFields...)
			if got := orderBy(ords); got != tt.want {
				t.Errorf("orderBy() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
}

func TestDBError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantShutdown bool
	}{
		{name: "undefined table", err: &pq.Error{Code: "42P01", Message: `relation "templates" does not exist`}, wantShutdown: true},
		{name: "wrapped undefined table", err: errors.Wrap(&pq.Error{Code: "42P01"}, "x"), wantShutdown: true},
		{name: "unique violation", err: &pq.Error{Code: "23505"}},
		{name: "connection", err: errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dbError(tt.err, "selecting template")
			if got := core.IsShutdown(err); got != tt.wantShutdown {
				t.Errorf("core.IsShutdown(dbError()) = %v, want %v", got, tt.wantShutdown)
			}
			assert.Contains(t, err.Error(), "selecting template")
			// still a shutdown error once the catalog wraps it
			assert.Equal(t, tt.wantShutdown, core.IsShutdown(errors.Wrapf(err, "getting template %q", "welcome")))
		})
	}
}

func TestTemplateRow(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tmpl := template.Template{
		ID:        "7f1c2f6e-8e57-4c38-9d6b-8d8a1c8f1a10",
		Slug:      "welcome",
		Name:      "Welcome",
		Category:  template.CategoryAccount,
		Subject:   "Hi {{firstName}}",
		Body:      "<p>{{firstName}}</p>",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	row := toRow(tmpl)
	assert.False(t, row.Description.Valid)
	assert.False(t, row.Preheader.Valid)
	assert.NotNil(t, row.Placeholders)

	got := row.toTemplate()
	tmpl.Placeholders = []string{}
	assert.Equal(t, tmpl, got)
}
