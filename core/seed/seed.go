// Package seed reads the versioned seed catalog (YAML) and applies it to the template catalog.
package seed

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/mailroom/core/layout"
	"github.com/trezcool/mailroom/core/sequence"
	"github.com/trezcool/mailroom/core/template"
)

const (
	TemplatesFile = "templates.yaml"
	SequencesFile = "sequences.yaml"
)

type (
	templateDef struct {
		template.NewTemplate `yaml:",inline"`
		Title                string         `yaml:"title"`
		Blocks               []layout.Block `yaml:"blocks"`
	}

	templatesFile struct {
		Templates []templateDef `yaml:"templates"`
	}

	sequencesFile struct {
		Sequences []sequence.Sequence `yaml:"sequences"`
	}

	// Catalog is the parsed content of a seed directory.
	Catalog struct {
		Templates []template.NewTemplate
		Sequences []sequence.Sequence
	}
)

// Load parses the seed files found at the root of fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	tf, err := fsys.Open(TemplatesFile)
	if err != nil {
		return nil, errors.Wrap(err, "opening templates")
	}
	defer func() { _ = tf.Close() }()
	tmpls, err := LoadTemplates(tf)
	if err != nil {
		return nil, err
	}

	sf, err := fsys.Open(SequencesFile)
	if err != nil {
		return nil, errors.Wrap(err, "opening sequences")
	}
	defer func() { _ = sf.Close() }()
	seqs, err := LoadSequences(sf)
	if err != nil {
		return nil, err
	}

	return &Catalog{Templates: tmpls, Sequences: seqs}, nil
}

// LoadTemplates decodes template definitions. Block lists are compiled and wrapped in the document shell.
func LoadTemplates(r io.Reader) ([]template.NewTemplate, error) {
	var file templatesFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decoding templates")
	}

	res := make([]template.NewTemplate, 0, len(file.Templates))
	for i, def := range file.Templates {
		nt := def.NewTemplate
		if len(def.Blocks) > 0 {
			if nt.Body != "" {
				return nil, errors.Errorf("template %d (%s): body and blocks are exclusive", i, nt.Slug)
			}
			content, err := layout.Build(def.Blocks)
			if err != nil {
				return nil, errors.Wrapf(err, "template %d (%s)", i, nt.Slug)
			}
			title := def.Title
			if title == "" {
				title = nt.Subject
			}
			nt.Body = layout.Wrap(title, content)
		}
		if err := nt.Validate(); err != nil {
			return nil, errors.Wrapf(err, "template %d (%s)", i, nt.Slug)
		}
		res = append(res, nt)
	}
	return res, nil
}

// LoadSequences decodes sequences. Inline copy is normalized and laid out as paragraphs.
func LoadSequences(r io.Reader) ([]sequence.Sequence, error) {
	var file sequencesFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decoding sequences")
	}

	res := make([]sequence.Sequence, 0, len(file.Sequences))
	for _, seq := range file.Sequences {
		entries := make([]sequence.Entry, len(seq.Entries))
		for i, e := range seq.Entries {
			if !e.IsReference() {
				e.Subject = template.CleanContent(e.Subject)
				e.Preheader = template.CleanContent(e.Preheader)
				if body := template.CleanContent(e.Body); body != "" {
					e.Body = layout.Wrap(e.Subject, paragraphs(body))
				} else {
					e.Body = ""
				}
			}
			entries[i] = e
		}

		built, err := sequence.New(seq.Name, seq.Description, entries)
		if err != nil {
			return nil, errors.Wrapf(err, "sequence %q", seq.Name)
		}
		res = append(res, built)
	}
	return res, nil
}

// paragraphs turns blank-line separated text into paragraph blocks; single newlines become <br>.
func paragraphs(text string) string {
	chunks := strings.Split(text, "\n\n")
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		parts = append(parts, layout.Paragraph(strings.ReplaceAll(chunk, "\n", "<br>\n")))
	}
	return strings.Join(parts, "\n")
}

// Lint checks every seed template's declared placeholders against its content.
// It returns the reports that are not clean, keyed by slug.
func (c *Catalog) Lint() map[string]template.LintReport {
	res := make(map[string]template.LintReport)
	for _, nt := range c.Templates {
		report := template.Lint(template.Template{
			Subject:      nt.Subject,
			Preheader:    nt.Preheader,
			Body:         nt.Body,
			Placeholders: nt.Placeholders,
		})
		if !report.OK() {
			res[nt.Slug] = report
		}
	}
	return res
}

// CheckReferences returns an error naming the sequence entries that point at slugs absent from the seed templates.
func (c *Catalog) CheckReferences() error {
	known := make(map[string]struct{}, len(c.Templates))
	for _, nt := range c.Templates {
		known[nt.Slug] = struct{}{}
	}
	var missing []string
	for _, seq := range c.Sequences {
		for _, slug := range seq.Slugs() {
			if _, ok := known[slug]; !ok {
				missing = append(missing, fmt.Sprintf("%s -> %s", seq.Name, slug))
			}
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("unknown templates referenced: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Upserter is the part of the catalog the seeder needs.
type Upserter interface {
	Upsert(ctx context.Context, nt template.NewTemplate) (template.Template, error)
}

// Result reports the outcome of a seeding run.
type Result struct {
	Succeeded int
	Failed    int
	Errors    map[string]error // by slug
}

func (r Result) OK() bool { return r.Failed == 0 }

// Run upserts every template, going on after failures.
func Run(ctx context.Context, catalog Upserter, tmpls []template.NewTemplate) Result {
	res := Result{Errors: make(map[string]error)}
	for _, nt := range tmpls {
		if _, err := catalog.Upsert(ctx, nt); err != nil {
			res.Failed++
			res.Errors[nt.Slug] = err
			continue
		}
		res.Succeeded++
	}
	return res
}
