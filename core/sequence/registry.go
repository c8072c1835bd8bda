package sequence

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/mailroom/core"
	"github.com/trezcool/mailroom/core/template"
)

var _ template.ReferenceChecker = (*Registry)(nil)

// Registry holds the named sequences of the platform.
type Registry struct {
	mu   sync.RWMutex
	seqs map[string]Sequence
}

func NewRegistry(seqs ...Sequence) (*Registry, error) {
	reg := &Registry{seqs: make(map[string]Sequence, len(seqs))}
	for _, seq := range seqs {
		if err := reg.Register(seq); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Register validates and adds seq. Names are unique.
func (reg *Registry) Register(seq Sequence) error {
	seq.Entries = Build(seq.Entries)
	if err := seq.Validate(); err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.seqs[seq.Name]; ok {
		return errors.Wrapf(ErrDuplicateName, "name %q", seq.Name)
	}
	reg.seqs[seq.Name] = seq
	return nil
}

func (reg *Registry) Get(name string) (Sequence, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	seq, ok := reg.seqs[core.CleanString(name, true)]
	if !ok {
		return Sequence{}, errors.Wrapf(ErrNotFound, "name %q", name)
	}
	return seq, nil
}

// Names returns the registered sequence names, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.seqs))
	for name := range reg.seqs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered sequences, sorted by name.
func (reg *Registry) All() []Sequence {
	names := reg.Names()
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	res := make([]Sequence, 0, len(names))
	for _, name := range names {
		if seq, ok := reg.seqs[name]; ok {
			res = append(res, seq)
		}
	}
	return res
}

// References returns the sorted names of the sequences with an entry pointing at slug.
func (reg *Registry) References(slug string) []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	var names []string
	for name, seq := range reg.seqs {
		for _, e := range seq.Entries {
			if e.TemplateSlug == slug {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}
