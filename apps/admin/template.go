package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/trezcool/mailroom/core"
	"github.com/trezcool/mailroom/core/sequence"
	"github.com/trezcool/mailroom/core/template"
)

func (cli *commandLine) list(filter template.QueryFilter) error {
	tmpls, err := cli.svc.List(context.Background(), filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SLUG\tCATEGORY\tACTIVE\tSYSTEM\tNAME")
	for _, t := range tmpls {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\n", t.Slug, t.Category, t.IsActive, t.IsSystem, t.Name)
	}
	return w.Flush()
}

func (cli *commandLine) render(slug string, mctx template.Context) error {
	content, diag, err := cli.svc.Preview(context.Background(), slug, mctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "Subject: %s\nPreheader: %s\n\n%s\n", content.Subject, content.Preheader, content.Body)
	cli.printDiagnostics(diag)
	return nil
}

func (cli *commandLine) testSend(slug, rawTo string, mctx template.Context, yes bool) error {
	to, err := core.ParseAddressList(rawTo)
	if err != nil {
		return err
	}

	if !yes {
		if !isTerminalFunc(int(os.Stdin.Fd())) {
			return errConfirmRequired
		}
		ok, err := readConfirmFunc(fmt.Sprintf("Send a test of %q to %s? [y/N] ", slug, core.JoinAddresses(to)))
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	diag, err := cli.svc.TestSend(context.Background(), slug, to, mctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "sent %q to %s\n", slug, core.JoinAddresses(to))
	cli.printDiagnostics(diag)
	return nil
}

func (cli *commandLine) deactivate(slug string) error {
	tmpl, err := cli.svc.Deactivate(context.Background(), slug)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "deactivated %q\n", tmpl.Slug)
	return nil
}

func (cli *commandLine) delete(slug string) error {
	if err := cli.svc.Delete(context.Background(), slug); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "deleted %q\n", slug)
	return nil
}

func (cli *commandLine) due(name string, days int) error {
	seq, err := cli.registry.Get(name)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DAY\tPHASE\tCONTENT")
	for _, e := range sequence.EntriesDueBy(seq, days) {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", e.DayOffset, e.Phase, entryLabel(e))
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if next, ok := sequence.NextDue(seq, days); ok {
		_, _ = fmt.Fprintf(cli.out, "next: day %d (%s) %s\n", next.DayOffset, next.Phase, entryLabel(next))
	}
	return nil
}

func entryLabel(e sequence.Entry) string {
	if e.IsReference() {
		return "template " + e.TemplateSlug
	}
	return fmt.Sprintf("%q", e.Subject)
}

func (cli *commandLine) printDiagnostics(diag template.Diagnostics) {
	if len(diag.Missing) > 0 {
		_, _ = fmt.Fprintf(cli.out, "missing: %s\n", strings.Join(diag.Missing, ", "))
	}
	if len(diag.Unused) > 0 {
		_, _ = fmt.Fprintf(cli.out, "unused: %s\n", strings.Join(diag.Unused, ", "))
	}
}
