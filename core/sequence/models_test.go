package sequence

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mailroom/core/template"
)

func inline(day int, phase Phase, subject string) Entry {
	return Entry{DayOffset: day, Phase: phase, Subject: subject, Body: "Hi {{firstName}}"}
}

func subjects(entries []Entry) []string {
	res := make([]string, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.Subject)
	}
	return res
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    []string
	}{
		{name: "empty", entries: nil, want: []string{}},
		{
			name:    "ties keep declaration order",
			entries: []Entry{inline(5, PhaseValue, "day5-first"), inline(1, PhaseValue, "day1"), inline(5, PhaseDesire, "day5-second")},
			want:    []string{"day1", "day5-first", "day5-second"},
		},
		{
			name:    "already sorted",
			entries: []Entry{inline(0, PhaseValue, "a"), inline(2, PhaseValue, "b"), inline(9, PhaseDecision, "c")},
			want:    []string{"a", "b", "c"},
		},
		{
			name: "many ties",
			entries: []Entry{
				inline(3, PhaseValue, "3a"), inline(3, PhaseValue, "3b"), inline(0, PhaseValue, "0"),
				inline(3, PhaseValue, "3c"), inline(1, PhaseValue, "1"),
			},
			want: []string{"0", "1", "3a", "3b", "3c"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.entries)
			assert.Equal(t, tt.want, subjects(got))
			// idempotent
			assert.Equal(t, tt.want, subjects(Build(got)))
		})
	}

	t.Run("input untouched", func(t *testing.T) {
		entries := []Entry{inline(5, PhaseValue, "b"), inline(1, PhaseValue, "a")}
		_ = Build(entries)
		assert.Equal(t, []string{"b", "a"}, subjects(entries))
	})
}

func TestEntriesDueBy(t *testing.T) {
	seq, err := New("onboarding", "", []Entry{
		inline(7, PhaseDesire, "day7"),
		inline(0, PhaseValue, "day0"),
		inline(3, PhaseValue, "day3"),
		inline(14, PhaseDecision, "day14"),
	})
	require.NoError(t, err)

	tests := []struct {
		elapsed int
		want    []string
	}{
		{elapsed: -1, want: []string{}},
		{elapsed: 0, want: []string{"day0"}},
		{elapsed: 6, want: []string{"day0", "day3"}},
		{elapsed: 7, want: []string{"day0", "day3", "day7"}},
		{elapsed: 100, want: []string{"day0", "day3", "day7", "day14"}},
	}
	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.want, subjects(EntriesDueBy(seq, tt.elapsed)))
		})
	}

	next, ok := NextDue(seq, 6)
	assert.True(t, ok)
	assert.Equal(t, "day7", next.Subject)
	_, ok = NextDue(seq, 14)
	assert.False(t, ok)
}

func TestPhaseOf(t *testing.T) {
	e := inline(0, PhaseReengage, "x")
	assert.Equal(t, PhaseReengage, PhaseOf(e))
	assert.True(t, PhaseOf(e).IsKnown())
	assert.False(t, Phase("custom").IsKnown())
}

func TestSequence_Validate(t *testing.T) {
	tests := []struct {
		name    string
		seqName string
		entries []Entry
		wantErr bool
	}{
		{name: "ok inline", seqName: "onboarding", entries: []Entry{inline(0, PhaseValue, "x")}},
		{name: "ok reference", seqName: "onboarding", entries: []Entry{{DayOffset: 1, Phase: "custom", TemplateSlug: "welcome"}}},
		{name: "bad name", seqName: "on boarding", entries: []Entry{inline(0, PhaseValue, "x")}, wantErr: true},
		{name: "no entries", seqName: "onboarding", wantErr: true},
		{name: "negative offset", seqName: "onboarding", entries: []Entry{inline(-1, PhaseValue, "x")}, wantErr: true},
		{name: "blank phase", seqName: "onboarding", entries: []Entry{inline(0, " ", "x")}, wantErr: true},
		{name: "both contents", seqName: "onboarding", entries: []Entry{{Phase: PhaseValue, TemplateSlug: "welcome", Subject: "x"}}, wantErr: true},
		{name: "no content", seqName: "onboarding", entries: []Entry{{Phase: PhaseValue}}, wantErr: true},
		{name: "subject only", seqName: "onboarding", entries: []Entry{{Phase: PhaseValue, Subject: "x"}}, wantErr: true},
		{name: "bad slug", seqName: "onboarding", entries: []Entry{{Phase: PhaseValue, TemplateSlug: "Not a slug"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.seqName, "", tt.entries)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	onboarding := Sequence{Name: "onboarding", Entries: []Entry{
		{DayOffset: 0, Phase: PhaseValue, TemplateSlug: "welcome"},
		{DayOffset: 2, Phase: PhaseValue, TemplateSlug: "day-2"},
	}}
	reengage := Sequence{Name: "reengage", Entries: []Entry{
		{DayOffset: 30, Phase: PhaseReengage, TemplateSlug: "welcome"},
	}}
	reg, err := NewRegistry(reengage, onboarding)
	require.NoError(t, err)

	assert.Equal(t, []string{"onboarding", "reengage"}, reg.Names())
	assert.Len(t, reg.All(), 2)
	assert.Equal(t, []string{"onboarding", "reengage"}, reg.References("welcome"))
	assert.Equal(t, []string{"onboarding"}, reg.References("day-2"))
	assert.Empty(t, reg.References("receipt"))

	got, err := reg.Get(" Onboarding ")
	require.NoError(t, err)
	assert.Equal(t, []string{"welcome", "day-2"}, got.Slugs())

	_, err = reg.Get("nope")
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	err = reg.Register(onboarding)
	assert.Equal(t, ErrDuplicateName, errors.Cause(err))
}

type templatesMock map[string]template.Template

func (m templatesMock) GetBySlug(_ context.Context, slug string) (template.Template, error) {
	tmpl, ok := m[slug]
	if !ok {
		return template.Template{}, template.ErrNotFound
	}
	return tmpl, nil
}

func TestRenderer(t *testing.T) {
	templates := templatesMock{
		"welcome": {Slug: "welcome", Subject: "Welcome {{firstName}}!", Body: "Hi {{firstName}}, login at {{loginUrl}}"},
	}
	seq, err := New("onboarding", "", []Entry{
		{DayOffset: 3, Phase: PhaseValue, Subject: "Tip for {{firstName}}", Body: "Try {{feature}}"},
		{DayOffset: 0, Phase: PhaseValue, TemplateSlug: "welcome"},
		{DayOffset: 9, Phase: PhaseDecision, TemplateSlug: "missing"},
	})
	require.NoError(t, err)

	r := NewRenderer(templates)
	mctx := template.Context{"firstName": "Maria", "loginUrl": "https://x/y"}

	rendered, err := r.RenderDue(context.Background(), seq, 3, mctx)
	require.NoError(t, err)
	require.Len(t, rendered, 2)
	assert.Equal(t, "Welcome Maria!", rendered[0].Content.Subject)
	assert.Equal(t, "Hi Maria, login at https://x/y", rendered[0].Content.Body)
	assert.True(t, rendered[0].Diagnostics.OK())
	assert.Equal(t, "Tip for Maria", rendered[1].Content.Subject)
	assert.Equal(t, "Try {{feature}}", rendered[1].Content.Body)
	assert.Equal(t, []string{"feature"}, rendered[1].Diagnostics.Missing)

	_, err = r.RenderDue(context.Background(), seq, 9, mctx)
	assert.Equal(t, template.ErrNotFound, errors.Cause(err))
}
