package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/trezcool/lessondesk/apps/shared"
	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/lesson"
	"github.com/trezcool/lessondesk/core/sheet"
	xlsxsheet "github.com/trezcool/lessondesk/storage/sheets/xlsx"
)

var (
	errHelp  = errors.New("help provided")
	errNoDB  = errors.New("no database with the memory backend")
	propKeys = []string{lesson.PropActiveSession, lesson.PropLedgerRef}
)

type commandLine struct {
	app   *shared.App
	out   io.Writer
	actor core.Actor
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  open                                        - prepare the class view and its selector")
	fmt.Fprintln(cli.out, "  classes                                     - list the classes of the roster")
	fmt.Fprintln(cli.out, "  taxonomy                                    - list the skills of the ledger")
	fmt.Fprintln(cli.out, "  select -class SELECTOR                      - build the class view and pull its marks")
	fmt.Fprintln(cli.out, "  view [-json]                                - print the class view")
	fmt.Fprintln(cli.out, "  mark -first F -last L -skill S [-end] -value X|/|\"\" - set a mark in the class view")
	fmt.Fprintln(cli.out, "  push                                        - write the class view marks into the ledger")
	fmt.Fprintln(cli.out, "  import -file PATH [-table T] [-yes]         - replace the roster (or ledger) with a .xlsx, .xls or .csv file")
	fmt.Fprintln(cli.out, "  history [-class C] [-kind K] [-limit N]     - list past sync operations")
	fmt.Fprintln(cli.out, "  config [-get KEY] [-set KEY=VALUE]          - read or write the persisted settings")
	fmt.Fprintln(cli.out, "  token -id ID [-name N] [-email E]           - print an API token for an instructor")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]                   - run database migrations")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "open":
		return cli.open(ctx)
	case "classes":
		return cli.classes(ctx)
	case "taxonomy":
		return cli.taxonomy(ctx)
	case "select":
		selectCmd := flag.NewFlagSet("select", flag.ContinueOnError)
		class := selectCmd.String("class", "", "The class selector, e.g. \"Level 2 Monday 4:00\".")
		if err := selectCmd.Parse(args[2:]); err != nil {
			return err
		}
		if strings.TrimSpace(*class) == "" {
			selectCmd.Usage()
			return errHelp
		}
		return cli.selectClass(ctx, *class)
	case "view":
		viewCmd := flag.NewFlagSet("view", flag.ContinueOnError)
		asJSON := viewCmd.Bool("json", false, "Print the view as JSON.")
		if err := viewCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.view(ctx, *asJSON)
	case "mark":
		markCmd := flag.NewFlagSet("mark", flag.ContinueOnError)
		var edit lesson.MarkEdit
		markCmd.StringVar(&edit.First, "first", "", "The student's first name.")
		markCmd.StringVar(&edit.Last, "last", "", "The student's last name.")
		markCmd.StringVar(&edit.Skill, "skill", "", "The skill header, e.g. \"S1-Float\".")
		markCmd.BoolVar(&edit.End, "end", false, "Set the skill's End column.")
		markCmd.StringVar(&edit.Value, "value", "", "The mark: X (completed), / (introduced) or empty to clear.")
		if err := markCmd.Parse(args[2:]); err != nil {
			return err
		}
		if edit.Skill == "" || (edit.First == "" && edit.Last == "") {
			markCmd.Usage()
			return errHelp
		}
		return cli.mark(ctx, edit)
	case "push":
		return cli.push(ctx)
	case "import":
		importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
		file := importCmd.String("file", "", "The .xlsx, .xls or .csv file to import.")
		table := importCmd.String("table", "", "The table to replace; the roster by default.")
		yes := importCmd.Bool("yes", false, "Do not ask for confirmation.")
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *file == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importFile(ctx, *file, *table, *yes)
	case "history":
		historyCmd := flag.NewFlagSet("history", flag.ContinueOnError)
		var filter lesson.HistoryFilter
		historyCmd.StringVar(&filter.Class, "class", "", "Only the operations on this class.")
		kind := historyCmd.String("kind", "", "Only the operations of this kind: open, select, push or import.")
		historyCmd.IntVar(&filter.Limit, "limit", 20, "The maximum number of operations listed.")
		if err := historyCmd.Parse(args[2:]); err != nil {
			return err
		}
		filter.Kind = lesson.HistoryKind(*kind)
		return cli.history(ctx, filter)
	case "config":
		configCmd := flag.NewFlagSet("config", flag.ContinueOnError)
		get := configCmd.String("get", "", "The setting to print.")
		set := configCmd.String("set", "", "The setting to write, as KEY=VALUE.")
		if err := configCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.config(ctx, *get, *set)
	case "token":
		tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
		var actor core.Actor
		tokenCmd.StringVar(&actor.ID, "id", "", "The instructor's ID.")
		tokenCmd.StringVar(&actor.Name, "name", "", "The instructor's name.")
		tokenCmd.StringVar(&actor.Email, "email", "", "The instructor's email.")
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if strings.TrimSpace(actor.ID) == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(actor)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) open(ctx context.Context) error {
	if err := cli.app.Service.Open(ctx, cli.actor); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%q is ready\n", cli.app.Settings.ViewTable)
	return nil
}

func (cli *commandLine) classes(ctx context.Context) error {
	classes, err := cli.app.Service.Classes(ctx)
	if err != nil {
		return err
	}
	for _, c := range classes {
		fmt.Fprintln(cli.out, c)
	}
	return nil
}

func (cli *commandLine) taxonomy(ctx context.Context) error {
	tax, err := cli.app.Service.Taxonomy(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	for _, sk := range tax.All() {
		fmt.Fprintf(w, "%s\t%s\n", sk.Header, sk.Category)
	}
	return w.Flush()
}

func (cli *commandLine) selectClass(ctx context.Context, selector string) error {
	_, sum, err := cli.app.Service.SelectClass(ctx, selector, cli.actor)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, sum)
	if len(sum.Unmatched) > 0 {
		fmt.Fprintf(cli.out, "not in ledger yet: %s\n", strings.Join(sum.Unmatched, ", "))
	}
	return nil
}

func (cli *commandLine) view(ctx context.Context, asJSON bool) error {
	snap, err := cli.app.Service.View(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return printGrid(cli.out, snap.Grid)
}

func printGrid(out io.Writer, grid sheet.Grid) error {
	w := tabwriter.NewWriter(out, 0, 4, 1, ' ', tabwriter.Debug)
	for _, row := range grid {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func (cli *commandLine) mark(ctx context.Context, edit lesson.MarkEdit) error {
	n, err := cli.app.Service.EditMarks(ctx, []lesson.MarkEdit{edit})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d mark set\n", n)
	return nil
}

func (cli *commandLine) push(ctx context.Context) error {
	sum, err := cli.app.Service.Push(ctx, cli.actor)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, sum)
	if len(sum.NotFound) > 0 {
		fmt.Fprintf(cli.out, "not in ledger: %s\n", strings.Join(sum.NotFound, ", "))
	}
	if len(sum.MissingHeaders) > 0 {
		fmt.Fprintf(cli.out, "columns not in ledger: %s\n", strings.Join(sum.MissingHeaders, ", "))
	}
	return nil
}

func (cli *commandLine) importFile(ctx context.Context, path, table string, yes bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	src, err := xlsxsheet.ReadSource(f, path)
	if err != nil {
		return err
	}
	report, err := cli.app.Service.Import(ctx, lesson.ImportRequest{
		Table:     table,
		Source:    src,
		Confirmed: yes,
		Actor:     cli.actor,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, report)
	return nil
}

func (cli *commandLine) history(ctx context.Context, filter lesson.HistoryFilter) error {
	entries, err := cli.app.Service.History(ctx, filter)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tKIND\tCLASS\tBY\tNEW\tUPDATED\tSKIPPED\tCONFLICTS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Kind, e.Class, e.Actor, e.New, e.Updated, e.Skipped, e.Conflicts)
	}
	return w.Flush()
}

func (cli *commandLine) config(ctx context.Context, get, set string) error {
	switch {
	case set != "":
		kv := strings.SplitN(set, "=", 2)
		if len(kv) != 2 || !knownProperty(kv[0]) {
			return fmt.Errorf("-set must be of form KEY=VALUE, KEY one of %s", strings.Join(propKeys, ", "))
		}
		if err := cli.app.Props.SetProperty(ctx, kv[0], strings.TrimSpace(kv[1])); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s set, restart to apply\n", kv[0])
		return nil
	case get != "":
		if !knownProperty(get) {
			return fmt.Errorf("%q: no such setting", get)
		}
		val, _, err := cli.app.Props.GetProperty(ctx, get)
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, val)
		return nil
	default:
		for _, key := range propKeys {
			val, _, err := cli.app.Props.GetProperty(ctx, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%s=%s\n", key, val)
		}
		return nil
	}
}

func knownProperty(key string) bool {
	for _, k := range propKeys {
		if k == key {
			return true
		}
	}
	return false
}
