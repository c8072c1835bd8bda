package template

import (
	"context"
	"net/mail"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mailroom/core"
)

type memRepo struct {
	mu    sync.Mutex
	table map[string]Template
	reads int
}

var _ Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{table: make(map[string]Template)}
}

func (r *memRepo) CreateTemplate(_ context.Context, tmpl Template) (Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.table[tmpl.Slug]; ok {
		return Template{}, ErrDuplicateSlug
	}
	r.table[tmpl.Slug] = tmpl
	return tmpl, nil
}

func (r *memRepo) UpsertTemplate(_ context.Context, tmpl Template) (Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.table[tmpl.Slug]; ok {
		tmpl.ID = old.ID
		tmpl.CreatedAt = old.CreatedAt
		tmpl.IsSystem = tmpl.IsSystem || old.IsSystem
	}
	r.table[tmpl.Slug] = tmpl
	return tmpl, nil
}

func (r *memRepo) GetTemplateBySlug(_ context.Context, slug string) (Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	tmpl, ok := r.table[slug]
	if !ok {
		return Template{}, ErrNotFound
	}
	return tmpl, nil
}

func (r *memRepo) FilterTemplates(_ context.Context, filter QueryFilter) ([]Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]Template, 0)
	for _, tmpl := range r.table {
		if filter.Category != "" && tmpl.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !tmpl.IsActive {
			continue
		}
		res = append(res, tmpl)
	}
	return res, nil
}

func (r *memRepo) DeleteTemplate(_ context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.table, slug)
	return nil
}

type mailerMock struct {
	sent []core.EmailMessage
	err  error
}

func (m *mailerMock) SendMessage(_ context.Context, msg core.EmailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type refsMock map[string][]string

func (r refsMock) References(slug string) []string { return r[slug] }

func bPtr(b bool) *bool { return &b }

func welcomeTemplate() NewTemplate {
	return NewTemplate{
		Slug:         "welcome",
		Name:         "Welcome",
		Category:     CategoryAccount,
		Subject:      "Welcome {{firstName}}!",
		Body:         "Hi {{firstName}}, login at {{loginUrl}}",
		Placeholders: []string{"firstName", "loginUrl"},
	}
}

func setup(t *testing.T, opts ...Option) (*Service, *memRepo, *mailerMock) {
	t.Helper()
	repo := newMemRepo()
	mailer := &mailerMock{}
	return NewService(repo, mailer, opts...), repo, mailer
}

func TestService_Upsert(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	first, err := svc.Upsert(ctx, welcomeTemplate())
	require.NoError(t, err)
	second, err := svc.Upsert(ctx, welcomeTemplate())
	require.NoError(t, err)

	assert.Len(t, repo.table, 1)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "welcome", second.Slug)
	assert.Equal(t, "Welcome {{firstName}}!", second.Subject)
	assert.Equal(t, []string{"firstName", "loginUrl"}, second.Placeholders)
	assert.True(t, second.IsActive)
	assert.False(t, second.IsSystem)

	t.Run("updates mutable fields", func(t *testing.T) {
		nt := welcomeTemplate()
		nt.Subject = "Karibu {{firstName}}"
		nt.IsActive = bPtr(false)
		got, err := svc.Upsert(ctx, nt)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, "Karibu {{firstName}}", got.Subject)
		assert.False(t, got.IsActive)
	})

	t.Run("slug is normalized", func(t *testing.T) {
		nt := welcomeTemplate()
		nt.Slug = "  WELCOME "
		got, err := svc.Upsert(ctx, nt)
		require.NoError(t, err)
		assert.Equal(t, "welcome", got.Slug)
		assert.Len(t, repo.table, 1)
	})

	t.Run("system flag is sticky", func(t *testing.T) {
		nt := welcomeTemplate()
		nt.Slug = "password-reset"
		nt.IsSystem = bPtr(true)
		_, err := svc.Upsert(ctx, nt)
		require.NoError(t, err)

		nt.IsSystem = bPtr(false)
		got, err := svc.Upsert(ctx, nt)
		require.NoError(t, err)
		assert.True(t, got.IsSystem)
	})

	t.Run("non-system may be promoted", func(t *testing.T) {
		nt := welcomeTemplate()
		nt.IsSystem = bPtr(true)
		got, err := svc.Upsert(ctx, nt)
		require.NoError(t, err)
		assert.True(t, got.IsSystem)
	})

	t.Run("invalid", func(t *testing.T) {
		nt := welcomeTemplate()
		nt.Slug = "Not A Slug!"
		nt.Category = "NOPE"
		_, err := svc.Upsert(ctx, nt)
		assert.Error(t, err)
	})
}

func TestService_Create(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, welcomeTemplate())
	require.NoError(t, err)

	_, err = svc.Create(ctx, welcomeTemplate())
	if errors.Cause(err) != ErrDuplicateSlug {
		t.Errorf("Create() error = %v, wantErr %v", err, ErrDuplicateSlug)
	}
}

func TestService_GetBySlug(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	_, err := svc.Upsert(ctx, welcomeTemplate())
	require.NoError(t, err)

	tests := []struct {
		name    string
		slug    string
		wantErr error
	}{
		{name: "found", slug: "welcome"},
		{name: "untrimmed", slug: " welcome "},
		{name: "case sensitive", slug: "Welcome", wantErr: ErrNotFound},
		{name: "unknown", slug: "nope", wantErr: ErrNotFound},
		{name: "blank", slug: "  ", wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetBySlug(ctx, tt.slug)
			if errors.Cause(err) != tt.wantErr {
				t.Errorf("GetBySlug() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				assert.Equal(t, "welcome", got.Slug)
			}
		})
	}
}

func TestService_cache(t *testing.T) {
	svc, repo, _ := setup(t, WithCache(8))
	ctx := context.Background()
	_, err := svc.Upsert(ctx, welcomeTemplate())
	require.NoError(t, err)

	repo.reads = 0
	for i := 0; i < 3; i++ {
		_, err = svc.GetBySlug(ctx, "welcome")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.reads)

	// every mutation invalidates
	_, err = svc.Deactivate(ctx, "welcome")
	require.NoError(t, err)
	got, err := svc.GetBySlug(ctx, "welcome")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	nt := welcomeTemplate()
	nt.Subject = "Changed"
	_, err = svc.Upsert(ctx, nt)
	require.NoError(t, err)
	got, err = svc.GetBySlug(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.Subject)

	require.NoError(t, svc.Delete(ctx, "welcome"))
	_, err = svc.GetBySlug(ctx, "welcome")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

// pausingRepo blocks the first GetTemplateBySlug after it has read the store.
type pausingRepo struct {
	*memRepo
	paused atomic.Bool
	read   chan struct{}
	resume chan struct{}
}

func (r *pausingRepo) GetTemplateBySlug(ctx context.Context, slug string) (Template, error) {
	tmpl, err := r.memRepo.GetTemplateBySlug(ctx, slug)
	if r.paused.CompareAndSwap(false, true) {
		close(r.read)
		<-r.resume
	}
	return tmpl, err
}

func TestService_cache_concurrentWrite(t *testing.T) {
	ctx := context.Background()
	mem := newMemRepo()
	nt := welcomeTemplate()
	nt.Subject = "old"
	_, err := NewService(mem, &mailerMock{}).Upsert(ctx, nt)
	require.NoError(t, err)

	repo := &pausingRepo{memRepo: mem, read: make(chan struct{}), resume: make(chan struct{})}
	svc := NewService(repo, &mailerMock{}, WithCache(8))

	done := make(chan error, 1)
	go func() {
		_, err := svc.GetBySlug(ctx, "welcome")
		done <- err
	}()
	<-repo.read

	nt.Subject = "new"
	_, err = svc.Upsert(ctx, nt)
	require.NoError(t, err)
	close(repo.resume)
	require.NoError(t, <-done)

	got, err := svc.GetBySlug(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Subject)
}

func TestService_List(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	welcome := welcomeTemplate()
	receipt := NewTemplate{Slug: "receipt", Name: "Receipt", Category: CategoryBilling, Subject: "Receipt"}
	old := NewTemplate{Slug: "old-receipt", Name: "Old", Category: CategoryBilling, Subject: "Receipt", IsActive: bPtr(false)}
	for _, nt := range []NewTemplate{welcome, receipt, old} {
		_, err := svc.Upsert(ctx, nt)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{name: "all", want: []string{"welcome", "receipt", "old-receipt"}},
		{name: "category", filter: QueryFilter{Category: CategoryBilling}, want: []string{"receipt", "old-receipt"}},
		{name: "active only", filter: QueryFilter{ActiveOnly: true}, want: []string{"welcome", "receipt"}},
		{name: "combined", filter: QueryFilter{Category: " BILLING ", ActiveOnly: true}, want: []string{"receipt"}},
		{name: "empty", filter: QueryFilter{Category: CategoryMarketing}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpls, err := svc.List(ctx, tt.filter)
			require.NoError(t, err)
			slugs := make([]string, 0, len(tmpls))
			for _, tmpl := range tmpls {
				slugs = append(slugs, tmpl.Slug)
			}
			assert.ElementsMatch(t, tt.want, slugs)
		})
	}
}

func TestService_Update(t *testing.T) {
	nowFunc = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	defer func() { nowFunc = time.Now }()

	svc, _, _ := setup(t)
	ctx := context.Background()
	orig, err := svc.Upsert(ctx, welcomeTemplate())
	require.NoError(t, err)

	nowFunc = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }
	subject := "New subject"
	got, err := svc.Update(ctx, "welcome", UpdateTemplate{Subject: &subject})
	require.NoError(t, err)
	assert.Equal(t, subject, got.Subject)
	assert.Equal(t, orig.Body, got.Body)
	assert.Equal(t, orig.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(orig.UpdatedAt))

	blank := "   "
	_, err = svc.Update(ctx, "welcome", UpdateTemplate{Name: &blank})
	assert.Error(t, err)

	_, err = svc.Update(ctx, "nope", UpdateTemplate{Subject: &subject})
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestService_Delete(t *testing.T) {
	svc, repo, _ := setup(t, WithReferenceChecker(refsMock{"day-3": {"onboarding"}}))
	ctx := context.Background()

	sys := welcomeTemplate()
	sys.Slug = "password-reset"
	sys.IsSystem = bPtr(true)
	used := welcomeTemplate()
	used.Slug = "day-3"
	for _, nt := range []NewTemplate{welcomeTemplate(), sys, used} {
		_, err := svc.Upsert(ctx, nt)
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		slug    string
		wantErr error
	}{
		{name: "system", slug: "password-reset", wantErr: ErrProtectedRecord},
		{name: "referenced", slug: "day-3", wantErr: ErrProtectedRecord},
		{name: "unknown", slug: "nope", wantErr: ErrNotFound},
		{name: "ok", slug: "welcome"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Delete(ctx, tt.slug); errors.Cause(err) != tt.wantErr {
				t.Errorf("Delete() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	assert.Len(t, repo.table, 2)

	t.Run("system templates can still be deactivated", func(t *testing.T) {
		got, err := svc.Deactivate(ctx, "password-reset")
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		assert.True(t, got.IsSystem)
	})
}

func TestService_Send(t *testing.T) {
	svc, _, mailer := setup(t)
	ctx := context.Background()
	_, err := svc.Upsert(ctx, welcomeTemplate())
	require.NoError(t, err)
	inactive := welcomeTemplate()
	inactive.Slug = "retired"
	inactive.IsActive = bPtr(false)
	_, err = svc.Upsert(ctx, inactive)
	require.NoError(t, err)

	to := []mail.Address{{Name: "Maria", Address: "maria@test.cd"}}
	mctx := Context{"firstName": "Maria", "loginUrl": "https://x/y"}

	require.NoError(t, svc.Send(ctx, "welcome", to, mctx))
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, to, msg.To)
	assert.Equal(t, "Welcome Maria!", msg.Subject)
	assert.Equal(t, "Hi Maria, login at https://x/y", msg.HTMLContent)
	assert.Equal(t, "welcome", msg.TemplateSlug)

	err = svc.Send(ctx, "retired", to, mctx)
	assert.Equal(t, ErrInactive, errors.Cause(err))

	err = svc.Send(ctx, "nope", to, mctx)
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	err = svc.Send(ctx, "welcome", nil, mctx)
	assert.IsType(t, &core.ValidationError{}, errors.Cause(err))

	mailer.err = errors.New("smtp down")
	err = svc.Send(ctx, "welcome", to, mctx)
	assert.Equal(t, mailer.err, errors.Cause(err))
	assert.Len(t, mailer.sent, 1)
}

func TestService_TestSend(t *testing.T) {
	svc, _, mailer := setup(t)
	ctx := context.Background()
	nt := welcomeTemplate()
	nt.IsActive = bPtr(false)
	_, err := svc.Upsert(ctx, nt)
	require.NoError(t, err)

	to := []mail.Address{{Address: "admin@test.cd"}}
	diag, err := svc.TestSend(ctx, "welcome", to, Context{"firstName": "Amy", "extra": "Z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"loginUrl"}, diag.Missing)
	assert.Equal(t, []string{"extra"}, diag.Unused)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "[TEST] Welcome Amy!", mailer.sent[0].Subject)
	assert.Equal(t, "Hi Amy, login at {{loginUrl}}", mailer.sent[0].HTMLContent)
}

func TestService_Preview(t *testing.T) {
	svc, _, mailer := setup(t)
	ctx := context.Background()
	_, err := svc.Upsert(ctx, welcomeTemplate())
	require.NoError(t, err)

	content, diag, err := svc.Preview(ctx, "welcome", Context{"firstName": "Amy"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome Amy!", content.Subject)
	assert.Equal(t, []string{"loginUrl"}, diag.Missing)
	assert.Empty(t, mailer.sent)
}
