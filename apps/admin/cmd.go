package main

import (
	"bufio"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/mailroom/core/sequence"
	"github.com/trezcool/mailroom/core/template"
)

var (
	isTerminalFunc  = term.IsTerminal // mockable
	readConfirmFunc = readConfirm     // mockable

	errHelp            = errors.New("help provided")
	errAborted         = errors.New("aborted")
	errConfirmRequired = errors.New("stdin is not a terminal: pass -yes to confirm")
)

type commandLine struct {
	db       *sql.DB
	svc      *template.Service
	registry *sequence.Registry
	seeds    fs.FS // used when seed is run without -dir
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprint(cli.out, `Usage:
  seed [-dry-run] [-dir DIR]                   - upsert the seed templates (exits 1 if any fails)
  migrate COMMAND [ARGS]                       - run a goose migration command (up, down, status, ...)
  list [-category C] [-active] [-search S]     - list catalog templates
  render -slug S [-var k=v ...]                - render a template to stdout
  testsend -slug S -to EMAILS [-var k=v ...]   - send a [TEST] copy of a template
  deactivate -slug S                           - deactivate a template
  delete -slug S                               - delete a template
  due -sequence NAME -days N                   - list the sequence entries due after N days
`)
}

// contextVars collects repeated -var name=value flags.
type contextVars template.Context

func (v contextVars) String() string {
	pairs := make([]string, 0, len(v))
	for k, val := range v {
		pairs = append(pairs, k+"="+val)
	}
	return strings.Join(pairs, ",")
}

func (v contextVars) Set(s string) error {
	name, val, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || !template.IsPlaceholderName(name) {
		return errors.Errorf("invalid var %q: expected name=value", s)
	}
	v[name] = val
	return nil
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	fset.SetOutput(cli.out)
	return fset
}

func parse(fset *flag.FlagSet, args []string) error {
	if err := fset.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "seed":
		seedCmd := cli.newFlagSet("seed")
		dryRun := seedCmd.Bool("dry-run", false, "Print what would change without writing anything.")
		dir := seedCmd.String("dir", "", "Seed directory holding templates.yaml and sequences.yaml (default: embedded seed).")
		if err := parse(seedCmd, args[2:]); err != nil {
			return err
		}
		return cli.seed(*dir, *dryRun)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "list":
		listCmd := cli.newFlagSet("list")
		category := listCmd.String("category", "", "Only templates of this category.")
		active := listCmd.Bool("active", false, "Only active templates.")
		search := listCmd.String("search", "", "Case-insensitive match on slug or name.")
		if err := parse(listCmd, args[2:]); err != nil {
			return err
		}
		return cli.list(template.QueryFilter{Category: template.Category(strings.ToUpper(*category)), ActiveOnly: *active, Search: *search})

	case "render":
		renderCmd := cli.newFlagSet("render")
		slug := renderCmd.String("slug", "", "The template slug.")
		vars := make(contextVars)
		renderCmd.Var(vars, "var", "A merge value as name=value; repeatable.")
		if err := parse(renderCmd, args[2:]); err != nil {
			return err
		}
		if *slug == "" {
			renderCmd.Usage()
			return errHelp
		}
		return cli.render(*slug, template.Context(vars))

	case "testsend":
		sendCmd := cli.newFlagSet("testsend")
		slug := sendCmd.String("slug", "", "The template slug.")
		to := sendCmd.String("to", "", "Comma separated recipients.")
		yes := sendCmd.Bool("yes", false, "Do not ask for confirmation.")
		vars := make(contextVars)
		sendCmd.Var(vars, "var", "A merge value as name=value; repeatable.")
		if err := parse(sendCmd, args[2:]); err != nil {
			return err
		}
		if *slug == "" || *to == "" {
			sendCmd.Usage()
			return errHelp
		}
		return cli.testSend(*slug, *to, template.Context(vars), *yes)

	case "deactivate", "delete":
		cmd := cli.newFlagSet(args[1])
		slug := cmd.String("slug", "", "The template slug.")
		if err := parse(cmd, args[2:]); err != nil {
			return err
		}
		if *slug == "" {
			cmd.Usage()
			return errHelp
		}
		if args[1] == "delete" {
			return cli.delete(*slug)
		}
		return cli.deactivate(*slug)

	case "due":
		dueCmd := cli.newFlagSet("due")
		name := dueCmd.String("sequence", "", "The sequence name.")
		days := dueCmd.Int("days", 0, "Days elapsed since the sequence started.")
		if err := parse(dueCmd, args[2:]); err != nil {
			return err
		}
		if *name == "" || *days < 0 {
			dueCmd.Usage()
			return errHelp
		}
		return cli.due(*name, *days)

	default:
		cli.printUsage()
		return errHelp
	}
}

func readConfirm(prompt string) (bool, error) {
	fmt.Print(prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
