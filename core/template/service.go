package template

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/mailroom/core"
)

var nowFunc = time.Now // mockable

const testSubjectPrefix = "[TEST] "

type (
	// Repository is the storage collaborator of the catalog.
	// Slug uniqueness must be enforced by the storage itself.
	Repository interface {
		// CreateTemplate inserts tmpl; ErrDuplicateSlug if its slug is taken.
		CreateTemplate(ctx context.Context, tmpl Template) (Template, error)
		// UpsertTemplate inserts tmpl or overwrites the record holding its slug.
		// An existing record keeps its ID, CreatedAt and a true IsSystem.
		UpsertTemplate(ctx context.Context, tmpl Template) (Template, error)
		// GetTemplateBySlug returns ErrNotFound when no record holds slug.
		GetTemplateBySlug(ctx context.Context, slug string) (Template, error)
		// FilterTemplates applies AND operation on available QueryFilter fields.
		FilterTemplates(ctx context.Context, filter QueryFilter) ([]Template, error)
		DeleteTemplate(ctx context.Context, slug string) error
	}

	// ReferenceChecker reports which other records (eg. sequences) use a template slug.
	ReferenceChecker interface {
		References(slug string) []string
	}

	Option func(*Service)

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		refs    ReferenceChecker
		cache   *lru.Cache[string, Template]
		logger  core.Logger

		// gens counts evictions per slug; a read only fills the cache if none happened meanwhile.
		mu   sync.Mutex
		gens map[string]uint64
	}
)

// WithCache enables a read cache of `size` templates. size <= 0 disables it.
func WithCache(size int) Option {
	return func(svc *Service) {
		if size <= 0 {
			return
		}
		c, err := lru.New[string, Template](size)
		if err == nil {
			svc.cache = c
			svc.gens = make(map[string]uint64)
		}
	}
}

func WithReferenceChecker(rc ReferenceChecker) Option {
	return func(svc *Service) { svc.refs = rc }
}

func WithLogger(logger core.Logger) Option {
	return func(svc *Service) { svc.logger = logger }
}

func NewService(repo Repository, mailSvc core.EmailService, opts ...Option) *Service {
	svc := &Service{repo: repo, mailSvc: mailSvc}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SetReferenceChecker sets the ReferenceChecker after initialization.
func (svc *Service) SetReferenceChecker(rc ReferenceChecker) {
	svc.refs = rc
}

// Create inserts a new Template. It fails with ErrDuplicateSlug if the slug is taken.
func (svc *Service) Create(ctx context.Context, nt NewTemplate) (Template, error) {
	if err := nt.Validate(); err != nil {
		return Template{}, err
	}
	tmpl, err := svc.repo.CreateTemplate(ctx, svc.newTemplate(nt))
	if err != nil {
		return Template{}, errors.Wrapf(err, "creating template %q", nt.Slug)
	}
	svc.evict(tmpl.Slug)
	return tmpl, nil
}

// Upsert inserts nt if its slug is unseen, else updates the mutable fields of the existing Template.
// The slug never changes, and a system template stays a system template.
func (svc *Service) Upsert(ctx context.Context, nt NewTemplate) (Template, error) {
	if err := nt.Validate(); err != nil {
		return Template{}, err
	}
	defer svc.evict(nt.Slug)

	tmpl, err := svc.repo.GetTemplateBySlug(ctx, nt.Slug)
	switch {
	case err == nil:
		tmpl = MergeNewTemplate(tmpl, nt)
	case errors.Cause(err) == ErrNotFound:
		tmpl = svc.newTemplate(nt)
	default:
		return Template{}, errors.Wrapf(err, "upserting template %q", nt.Slug)
	}

	tmpl, err = svc.repo.UpsertTemplate(ctx, tmpl)
	if err != nil {
		return Template{}, errors.Wrapf(err, "upserting template %q", nt.Slug)
	}
	return tmpl, nil
}

// GetBySlug returns the Template with this exact slug, or ErrNotFound.
func (svc *Service) GetBySlug(ctx context.Context, slug string) (Template, error) {
	slug = core.CleanString(slug)
	if slug == "" {
		return Template{}, ErrNotFound
	}
	var gen uint64
	if svc.cache != nil {
		if tmpl, ok := svc.cache.Get(slug); ok {
			return tmpl, nil
		}
		gen = svc.generation(slug)
	}

	tmpl, err := svc.repo.GetTemplateBySlug(ctx, slug)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Template{}, errors.Wrapf(ErrNotFound, "slug %q", slug)
		}
		return Template{}, errors.Wrapf(err, "getting template %q", slug)
	}
	svc.fill(slug, gen, tmpl)
	return tmpl, nil
}

// List returns the templates matching filter, in no particular order.
func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Template, error) {
	filter.Clean()
	tmpls, err := svc.repo.FilterTemplates(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing templates")
	}
	return tmpls, nil
}

// Update applies an admin edit to the Template with this slug.
func (svc *Service) Update(ctx context.Context, slug string, ut UpdateTemplate) (Template, error) {
	if err := ut.Validate(); err != nil {
		return Template{}, err
	}
	return svc.modify(ctx, slug, func(tmpl *Template) { ut.apply(tmpl) })
}

// Deactivate marks the Template inactive. It never removes the record and is allowed on system templates.
func (svc *Service) Deactivate(ctx context.Context, slug string) (Template, error) {
	return svc.modify(ctx, slug, func(tmpl *Template) { tmpl.IsActive = false })
}

// Delete removes the Template physically.
// System templates and templates still referenced elsewhere fail with ErrProtectedRecord.
func (svc *Service) Delete(ctx context.Context, slug string) error {
	tmpl, err := svc.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if tmpl.IsSystem {
		return errors.Wrapf(ErrProtectedRecord, "%q is a system template", tmpl.Slug)
	}
	if svc.refs != nil {
		if refs := svc.refs.References(tmpl.Slug); len(refs) > 0 {
			return errors.Wrapf(ErrProtectedRecord, "%q is referenced by %s", tmpl.Slug, strings.Join(refs, ", "))
		}
	}

	defer svc.evict(tmpl.Slug)
	if err := svc.repo.DeleteTemplate(ctx, tmpl.Slug); err != nil {
		return errors.Wrapf(err, "deleting template %q", tmpl.Slug)
	}
	return nil
}

// Preview renders the Template with this slug against mctx, whatever its state.
func (svc *Service) Preview(ctx context.Context, slug string, mctx Context) (Content, Diagnostics, error) {
	tmpl, err := svc.GetBySlug(ctx, slug)
	if err != nil {
		return Content{}, Diagnostics{}, err
	}
	return Render(tmpl.Content(), mctx), Validate(tmpl.Content(), mctx), nil
}

// Send renders the active Template with this slug and hands it to the email service.
func (svc *Service) Send(ctx context.Context, slug string, to []mail.Address, mctx Context) error {
	tmpl, err := svc.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if !tmpl.IsActive {
		return errors.Wrapf(ErrInactive, "slug %q", tmpl.Slug)
	}
	diag := Validate(tmpl.Content(), mctx)
	if len(diag.Missing) > 0 && svc.logger != nil {
		svc.logger.Warn(fmt.Sprintf("sending %q with unresolved placeholders: %s", tmpl.Slug, strings.Join(diag.Missing, ", ")))
	}
	return svc.send(ctx, tmpl, to, Render(tmpl.Content(), mctx))
}

// TestSend is Send for admins checking a template: the active flag is ignored and the subject is marked.
func (svc *Service) TestSend(ctx context.Context, slug string, to []mail.Address, mctx Context) (Diagnostics, error) {
	tmpl, err := svc.GetBySlug(ctx, slug)
	if err != nil {
		return Diagnostics{}, err
	}
	rendered := Render(tmpl.Content(), mctx)
	rendered.Subject = testSubjectPrefix + rendered.Subject
	return Validate(tmpl.Content(), mctx), svc.send(ctx, tmpl, to, rendered)
}

func (svc *Service) send(ctx context.Context, tmpl Template, to []mail.Address, rendered Content) error {
	if len(to) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "to", Error: "at least one recipient is required"})
	}
	msg := core.EmailMessage{
		To:           to,
		Subject:      rendered.Subject,
		Preheader:    rendered.Preheader,
		HTMLContent:  rendered.Body,
		TemplateSlug: tmpl.Slug,
	}
	if err := svc.mailSvc.SendMessage(ctx, msg); err != nil {
		return errors.Wrapf(err, "sending %q", tmpl.Slug)
	}
	return nil
}

// modify loads the Template with this slug, applies fn and saves it.
func (svc *Service) modify(ctx context.Context, slug string, fn func(*Template)) (Template, error) {
	tmpl, err := svc.repo.GetTemplateBySlug(ctx, core.CleanString(slug))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Template{}, errors.Wrapf(ErrNotFound, "slug %q", slug)
		}
		return Template{}, errors.Wrapf(err, "getting template %q", slug)
	}
	defer svc.evict(tmpl.Slug)

	fn(&tmpl)
	tmpl.UpdatedAt = nowFunc().UTC()
	tmpl, err = svc.repo.UpsertTemplate(ctx, tmpl)
	if err != nil {
		return Template{}, errors.Wrapf(err, "saving template %q", tmpl.Slug)
	}
	return tmpl, nil
}

func (svc *Service) evict(slug string) {
	if svc.cache == nil {
		return
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.gens[slug]++
	svc.cache.Remove(slug)
}

func (svc *Service) generation(slug string) uint64 {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.gens[slug]
}

// fill caches tmpl unless slug was evicted since gen was read.
func (svc *Service) fill(slug string, gen uint64, tmpl Template) {
	if svc.cache == nil {
		return
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.gens[slug] == gen {
		svc.cache.Add(slug, tmpl)
	}
}

func (svc *Service) newTemplate(nt NewTemplate) Template {
	now := nowFunc().UTC()
	tmpl := Template{
		ID:        uuid.NewString(),
		Slug:      nt.Slug,
		IsActive:  true,
		CreatedAt: now,
	}
	if nt.IsSystem != nil {
		tmpl.IsSystem = *nt.IsSystem
	}
	return MergeNewTemplate(tmpl, nt)
}

// MergeNewTemplate returns tmpl as an upsert of nt would leave it.
func MergeNewTemplate(tmpl Template, nt NewTemplate) Template {
	tmpl.Name = nt.Name
	tmpl.Description = nt.Description
	tmpl.Category = nt.Category
	tmpl.Subject = nt.Subject
	tmpl.Preheader = nt.Preheader
	tmpl.Body = nt.Body
	tmpl.Placeholders = nt.Placeholders
	if tmpl.Placeholders == nil {
		tmpl.Placeholders = make([]string, 0)
	}
	if nt.IsActive != nil {
		tmpl.IsActive = *nt.IsActive
	}
	// only a non-system template may change its system-ness
	if !tmpl.IsSystem && nt.IsSystem != nil {
		tmpl.IsSystem = *nt.IsSystem
	}
	tmpl.UpdatedAt = nowFunc().UTC()
	return tmpl
}
