package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/mailroom/core/seed"
)

var errSeedFailed = errors.New("seeding failed")

func (cli *commandLine) loadCatalog(dir string) (*seed.Catalog, error) {
	fsys := cli.seeds
	if dir != "" {
		fsys = os.DirFS(dir)
	}
	catalog, err := seed.Load(fsys)
	if err != nil {
		return nil, errors.Wrap(err, "loading seed")
	}
	if err = catalog.CheckReferences(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// seed upserts every seed template; with dryRun, it prints the planned changes instead.
func (cli *commandLine) seed(dir string, dryRun bool) error {
	ctx := context.Background()
	catalog, err := cli.loadCatalog(dir)
	if err != nil {
		return err
	}

	lint := catalog.Lint()
	for _, slug := range sortedKeys(lint) {
		report := lint[slug]
		_, _ = fmt.Fprintf(cli.out, "WARN %s: undeclared [%s] unreferenced [%s]\n",
			slug, strings.Join(report.Undeclared, ", "), strings.Join(report.Unreferenced, ", "))
	}

	if dryRun {
		changes, err := seed.Plan(ctx, cli.svc, catalog.Templates)
		if err != nil {
			return err
		}
		for _, c := range changes {
			_, _ = fmt.Fprintf(cli.out, "%-9s %s\n", c.Action, c.Slug)
			if c.Diff != "" {
				_, _ = fmt.Fprintln(cli.out, c.Diff)
			}
		}
		return nil
	}

	res := seed.Run(ctx, cli.svc, catalog.Templates)
	for _, slug := range sortedKeys(res.Errors) {
		_, _ = fmt.Fprintf(cli.out, "FAILED %s: %v\n", slug, res.Errors[slug])
	}
	_, _ = fmt.Fprintf(cli.out, "seeded %d templates: %d succeeded, %d failed\n",
		len(catalog.Templates), res.Succeeded, res.Failed)
	if !res.OK() {
		return errSeedFailed
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
