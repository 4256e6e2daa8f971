package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dshills/mathboard/internal/board"
	"github.com/dshills/mathboard/internal/config"
)

// command is one top-level subcommand.
type command struct {
	name    string
	usage   string
	summary string
	run     func(a *App, ctx context.Context, args []string) error
}

var commands = []command{
	{"show", "show", "print the stored board", (*App).cmdShow},
	{"export", "export [-o file]", "write the stored board in the export format", (*App).cmdExport},
	{"import", "import <file>", "replace the stored board with an exported file", (*App).cmdImport},
	{"add-math", "add-math [-left L] [-top T] latex...", "add a math group", (*App).cmdAddMath},
	{"add-text", "add-text [-left L] [-top T] text...", "add a text group", (*App).cmdAddText},
	{"clear", "clear", "delete the stored board", (*App).cmdClear},
	{"status", "status", "show the storage backend and when the board was saved", (*App).cmdStatus},
	{"shell", "shell", "edit the board interactively, with undo and redo", (*App).cmdShell},
}

// Usage writes the command summary to w.
func Usage(w io.Writer) {
	fmt.Fprintf(w, "Commands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-40s %s\n", c.usage, c.summary)
	}
}

// Run executes the subcommand named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageErrorf("no command given")
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(a, ctx, args[1:])
		}
	}
	return usageErrorf("unknown command %q", args[0])
}

func (a *App) cmdShow(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usageErrorf("show takes no arguments")
	}
	if err := a.load(ctx); err != nil {
		return err
	}
	return a.show()
}

func (a *App) cmdExport(ctx context.Context, args []string) error {
	fs := newFlagSet("export")
	out := fs.String("o", "", "write to `file` instead of standard output")
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if fs.NArg() != 0 {
		return usageErrorf("export takes no positional arguments")
	}

	if err := a.load(ctx); err != nil {
		return err
	}
	return a.export(ctx, *out)
}

func (a *App) cmdImport(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageErrorf("import needs exactly one file")
	}
	if err := a.load(ctx); err != nil {
		return err
	}
	if err := a.engine.ImportFile(ctx, args[0]); err != nil {
		return NewOperationError("import", args[0], err)
	}
	if err := a.engine.Save(ctx); err != nil {
		return NewOperationError("save", "", err)
	}

	snap, err := a.engine.Snapshot()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "imported %d groups from %s\n", snap.Len(), args[0])
	return nil
}

func (a *App) cmdAddMath(ctx context.Context, args []string) error {
	pos, fields, err := parseGroupArgs("add-math", args)
	if err != nil {
		return err
	}
	return a.editAndSave(ctx, func() error {
		a.doc.AddMath(pos, fields...)
		return nil
	})
}

func (a *App) cmdAddText(ctx context.Context, args []string) error {
	pos, fields, err := parseGroupArgs("add-text", args)
	if err != nil {
		return err
	}
	return a.editAndSave(ctx, func() error {
		a.doc.AddText(pos, plainFields(fields)...)
		return nil
	})
}

func (a *App) cmdClear(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usageErrorf("clear takes no arguments")
	}
	if err := a.engine.Discard(ctx); err != nil {
		return NewOperationError("clear", "", err)
	}
	fmt.Fprintln(a.stdout, "stored board deleted")
	return nil
}

func (a *App) cmdStatus(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usageErrorf("status takes no arguments")
	}
	return a.status(ctx)
}

// editAndSave loads the stored board, applies fn and saves the result.
func (a *App) editAndSave(ctx context.Context, fn func() error) error {
	if err := a.load(ctx); err != nil {
		return err
	}
	if err := a.engine.Edit(fn); err != nil {
		return err
	}
	if err := a.engine.Save(ctx); err != nil {
		return NewOperationError("save", "", err)
	}
	return a.show()
}

func (a *App) show() error {
	snap, err := a.engine.Snapshot()
	if err != nil {
		return err
	}
	Describe(a.stdout, snap)
	return nil
}

func (a *App) status(ctx context.Context) error {
	sc := a.cfg.Storage
	fmt.Fprintf(a.stdout, "storage: %s", sc.Backend)
	if sc.Backend != config.BackendMemory {
		fmt.Fprintf(a.stdout, " at %s", sc.Path)
	}
	fmt.Fprintf(a.stdout, ", key %s\n", sc.Key)

	at, ok, err := a.engine.SavedAt(ctx)
	switch {
	case err != nil:
		return NewOperationError("status", sc.Key, err)
	case ok:
		fmt.Fprintf(a.stdout, "saved: %s\n", at.Format(time.RFC3339))
	default:
		fmt.Fprintln(a.stdout, "saved: never")
	}

	h := a.engine.History()
	fmt.Fprintf(a.stdout, "history: %d undo, %d redo, max %d\n", h.UndoCount(), h.RedoCount(), h.MaxEntries())
	return nil
}

func (a *App) export(ctx context.Context, path string) error {
	if path == "" {
		return a.engine.Export(ctx, a.stdout)
	}
	if err := a.engine.ExportFile(ctx, path); err != nil {
		return NewOperationError("export", path, err)
	}
	fmt.Fprintf(a.stdout, "exported to %s\n", path)
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseGroupArgs(name string, args []string) (board.Position, []string, error) {
	fs := newFlagSet(name)
	left := fs.String("left", "0px", "horizontal offset")
	top := fs.String("top", "0px", "vertical offset")
	if err := fs.Parse(args); err != nil {
		return board.Position{}, nil, usageErrorf("%v", err)
	}
	if fs.NArg() == 0 {
		return board.Position{}, nil, usageErrorf("%s needs at least one field", name)
	}
	return board.Pos(*left, *top), fs.Args(), nil
}

func plainFields(texts []string) []board.TextField {
	fields := make([]board.TextField, len(texts))
	for i, t := range texts {
		fields[i] = board.PlainText(t)
	}
	return fields
}

// Describe writes a human-readable listing of snap to w.
func Describe(w io.Writer, snap *board.Snapshot) {
	fmt.Fprintf(w, "board v%s, %d groups\n", snap.Version, snap.Len())
	for i, g := range snap.Groups {
		pos := g.GroupPosition()
		fmt.Fprintf(w, "  [%d] %s @ %s,%s", i, g.Kind(), pos.Left, pos.Top)

		switch g := g.(type) {
		case *board.MathGroup:
			fmt.Fprintf(w, ": %s", strings.Join(quoteAll(g.Fields), " "))
		case *board.TextGroup:
			parts := make([]string, len(g.Fields))
			for j, f := range g.Fields {
				parts[j] = fmt.Sprintf("%q", f.Text)
				if len(f.MathFields) > 0 {
					parts[j] += fmt.Sprintf(" (+%d math)", len(f.MathFields))
				}
			}
			fmt.Fprintf(w, ": %s", strings.Join(parts, " "))
		case *board.OpaqueGroup:
			fmt.Fprintf(w, " (unsupported, kept as is)")
		}
		fmt.Fprintln(w)
	}
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
