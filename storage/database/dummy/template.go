package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/mailroom/core"
	"github.com/trezcool/mailroom/core/template"
)

type templateRepository struct {
	db *templateTable
}

var _ template.Repository = (*templateRepository)(nil) // interface compliance check

func NewTemplateRepository(db *DB) template.Repository {
	return &templateRepository{db: db.template}
}

func (repo *templateRepository) query() []template.Template {
	tmpls := make([]template.Template, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		tmpls = append(tmpls, copyTemplate(*t))
	}
	return tmpls
}

func (repo *templateRepository) CreateTemplate(_ context.Context, tmpl template.Template) (template.Template, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[tmpl.Slug]; ok {
		return template.Template{}, template.ErrDuplicateSlug
	}
	tmpl = copyTemplate(tmpl)
	repo.db.table[tmpl.Slug] = &tmpl
	return copyTemplate(tmpl), nil
}

func (repo *templateRepository) UpsertTemplate(_ context.Context, tmpl template.Template) (template.Template, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	tmpl = copyTemplate(tmpl)
	if orig, ok := repo.db.table[tmpl.Slug]; ok {
		tmpl.ID = orig.ID
		tmpl.CreatedAt = orig.CreatedAt
		tmpl.IsSystem = orig.IsSystem || tmpl.IsSystem
	}
	repo.db.table[tmpl.Slug] = &tmpl
	return copyTemplate(tmpl), nil
}

func (repo *templateRepository) GetTemplateBySlug(_ context.Context, slug string) (template.Template, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if tmpl, ok := repo.db.table[slug]; ok {
		return copyTemplate(*tmpl), nil
	}
	return template.Template{}, template.ErrNotFound
}

func (repo *templateRepository) FilterTemplates(_ context.Context, filter template.QueryFilter) ([]template.Template, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	tmpls := make([]template.Template, 0)
	for _, t := range repo.query() {
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !t.IsActive {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Slug), search) &&
			!strings.Contains(strings.ToLower(t.Name), search) {
			continue
		}
		tmpls = append(tmpls, t)
	}
	sortTemplates(tmpls, filter.Orderings)
	return tmpls, nil
}

func (repo *templateRepository) DeleteTemplate(_ context.Context, slug string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[slug]; !ok {
		return template.ErrNotFound
	}
	delete(repo.db.table, slug)
	return nil
}

// copyTemplate keeps callers from sharing the stored placeholders slice.
func copyTemplate(t template.Template) template.Template {
	placeholders := make([]string, len(t.Placeholders))
	copy(placeholders, t.Placeholders)
	t.Placeholders = placeholders
	return t
}

// sortTemplates orders tmpls by ords, then by slug.
func sortTemplates(tmpls []template.Template, ords []core.DBOrdering) {
	sort.SliceStable(tmpls, func(i, j int) bool {
		a, b := tmpls[i], tmpls[j]
		for _, ord := range ords {
			cmp := compareField(a, b, ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return a.Slug < b.Slug
	})
}

func compareField(a, b template.Template, field string) int {
	switch field {
	case "slug":
		return strings.Compare(a.Slug, b.Slug)
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "category":
		return strings.Compare(string(a.Category), string(b.Category))
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}
