package sequence

import (
	"sort"

	"github.com/trezcool/mailroom/core"
	"github.com/trezcool/mailroom/core/template"
)

// Phase labels a logical stage of a sequence. It is purely descriptive.
type Phase string

const (
	PhaseValue    Phase = "value"
	PhaseDesire   Phase = "desire"
	PhaseDecision Phase = "decision"
	PhaseReengage Phase = "reengage"
)

var KnownPhases = []Phase{PhaseValue, PhaseDesire, PhaseDecision, PhaseReengage}

func (p Phase) IsKnown() bool {
	for _, known := range KnownPhases {
		if p == known {
			return true
		}
	}
	return false
}

type (
	// Entry is one message of a Sequence: either a reference to a catalog template
	// or inline subject/body copy.
	Entry struct {
		DayOffset    int    `json:"day_offset" yaml:"day" validate:"min=0"`
		Phase        Phase  `json:"phase" yaml:"phase" validate:"required,notblank"`
		TemplateSlug string `json:"template_slug,omitempty" yaml:"template" validate:"omitempty,slug"`
		Subject      string `json:"subject,omitempty" yaml:"subject"`
		Preheader    string `json:"preheader,omitempty" yaml:"preheader"`
		Body         string `json:"body,omitempty" yaml:"body"`

		index int // declaration order
	}

	// Sequence is an ordered set of day-offset entries (a drip campaign).
	// There is no per-recipient state: whether an entry was already sent is tracked elsewhere.
	Sequence struct {
		Name        string  `json:"name" yaml:"name" validate:"required,slug"`
		Description string  `json:"description" yaml:"description"`
		Entries     []Entry `json:"entries" yaml:"entries" validate:"required,min=1,dive"`
	}
)

// IsReference reports whether the entry points at a catalog template.
func (e Entry) IsReference() bool { return e.TemplateSlug != "" }

// Content returns the inline copy of the entry; empty for references.
func (e Entry) Content() template.Content {
	return template.Content{Subject: e.Subject, Preheader: e.Preheader, Body: e.Body}
}

// New builds and validates a Sequence.
func New(name, description string, entries []Entry) (Sequence, error) {
	seq := Sequence{
		Name:        core.CleanString(name, true /* lower */),
		Description: core.CleanString(description),
		Entries:     Build(entries),
	}
	if err := seq.Validate(); err != nil {
		return Sequence{}, err
	}
	return seq, nil
}

func (s Sequence) Validate() error {
	return core.Validate.Struct(s)
}

// Slugs returns the distinct template slugs the sequence references, in entry order.
func (s Sequence) Slugs() []string {
	slugs := make([]string, 0)
	seen := make(map[string]struct{})
	for _, e := range s.Entries {
		if !e.IsReference() {
			continue
		}
		if _, ok := seen[e.TemplateSlug]; ok {
			continue
		}
		seen[e.TemplateSlug] = struct{}{}
		slugs = append(slugs, e.TemplateSlug)
	}
	return slugs
}

// Build returns a copy of entries sorted by day offset; ties keep their declaration order.
func Build(entries []Entry) []Entry {
	res := make([]Entry, len(entries))
	copy(res, entries)
	for i := range res {
		res[i].index = i
		res[i].Phase = Phase(core.CleanString(string(res[i].Phase), true))
		res[i].TemplateSlug = core.CleanString(res[i].TemplateSlug, true)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].DayOffset != res[j].DayOffset {
			return res[i].DayOffset < res[j].DayOffset
		}
		return res[i].index < res[j].index
	})
	return res
}

// EntriesDueBy returns the entries whose day offset is <= elapsedDays, in sequence order.
func EntriesDueBy(seq Sequence, elapsedDays int) []Entry {
	due := make([]Entry, 0)
	for _, e := range Build(seq.Entries) {
		if e.DayOffset > elapsedDays {
			break
		}
		due = append(due, e)
	}
	return due
}

// NextDue returns the first entry not yet due after elapsedDays.
func NextDue(seq Sequence, elapsedDays int) (Entry, bool) {
	for _, e := range Build(seq.Entries) {
		if e.DayOffset > elapsedDays {
			return e, true
		}
	}
	return Entry{}, false
}

func PhaseOf(e Entry) Phase {
	return e.Phase
}
