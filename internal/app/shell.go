package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/mathboard/internal/board"
	"github.com/dshills/mathboard/internal/config"
)

const shellPrompt = "mathboard> "

const shellHelp = `Commands:
  add-math <left> <top> <latex>...   add a math group
  add-text <left> <top> <text>...    add a text group
  remove <index>                     remove a group
  move <index> <left> <top>          move a group
  undo                               undo the last change
  redo                               redo the last undone change
  show                               list the groups on the board
  revert                             undo every change made in this session
  reapply                            redo what the last revert undid
  history                            list the undo and redo entries
  status                             show storage and last save time
  max-history <n>                    change the history bound
  save                               save now and wait for the result
  export [file]                      export the board
  import <file>                      import a board (undoable)
  help                               show this help
  quit                               save and leave
Arguments containing spaces can be enclosed in double quotes.
`

// cmdShell runs an interactive session on the app's input. Every change is
// saved in the background; history lives for the session.
func (a *App) cmdShell(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return usageErrorf("shell takes no arguments")
	}
	if err := a.load(ctx); err != nil {
		return err
	}
	a.sessionStart = a.engine.Checkpoint()

	if a.configPath != "" {
		stop := a.watchConfig()
		defer stop()
	}

	scanner := bufio.NewScanner(a.stdin)
	for {
		fmt.Fprint(a.stdout, shellPrompt)
		if !scanner.Scan() {
			break
		}

		fields, err := splitArgs(scanner.Text())
		if err != nil {
			fmt.Fprintf(a.stdout, "error: %v\n", err)
			continue
		}
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		err = a.exec(ctx, fields)
		if errors.Is(err, ErrQuit) {
			break
		}
		if err != nil {
			fmt.Fprintf(a.stdout, "error: %v\n", err)
		}
	}
	fmt.Fprintln(a.stdout)

	if err := scanner.Err(); err != nil {
		return err
	}
	return a.engine.Flush(ctx)
}

// exec runs one shell line.
func (a *App) exec(ctx context.Context, fields []string) error {
	name, args := fields[0], fields[1:]

	switch name {
	case "quit", "exit":
		return ErrQuit

	case "help":
		fmt.Fprint(a.stdout, shellHelp)
		return nil

	case "show":
		return a.show()

	case "add-math":
		if len(args) < 3 {
			return usageErrorf("add-math <left> <top> <latex>...")
		}
		pos := board.Pos(args[0], args[1])
		return a.change(func() error {
			a.doc.AddMath(pos, args[2:]...)
			return nil
		})

	case "add-text":
		if len(args) < 3 {
			return usageErrorf("add-text <left> <top> <text>...")
		}
		pos := board.Pos(args[0], args[1])
		return a.change(func() error {
			a.doc.AddText(pos, plainFields(args[2:])...)
			return nil
		})

	case "remove":
		if len(args) != 1 {
			return usageErrorf("remove <index>")
		}
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return usageErrorf("invalid index %q", args[0])
		}
		return a.change(func() error { return a.doc.Remove(i) })

	case "move":
		if len(args) != 3 {
			return usageErrorf("move <index> <left> <top>")
		}
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return usageErrorf("invalid index %q", args[0])
		}
		pos := board.Pos(args[1], args[2])
		return a.change(func() error { return a.doc.Move(i, pos) })

	case "undo":
		if !a.engine.Undo() {
			return ErrNothingToUndo
		}
		a.engine.SaveAsync()
		return a.show()

	case "redo":
		if !a.engine.Redo() {
			return ErrNothingToRedo
		}
		a.engine.SaveAsync()
		return a.show()

	case "revert":
		top := a.engine.Checkpoint()
		n := a.engine.UndoTo(a.sessionStart)
		if n == 0 {
			return ErrNothingToUndo
		}
		a.revertedFrom = top
		a.engine.SaveAsync()
		fmt.Fprintf(a.stdout, "reverted %d changes\n", n)
		return a.show()

	case "reapply":
		n := a.engine.RedoTo(a.revertedFrom)
		if n == 0 {
			return ErrNothingToRedo
		}
		a.engine.SaveAsync()
		fmt.Fprintf(a.stdout, "reapplied %d changes\n", n)
		return a.show()

	case "history":
		a.printHistory()
		return nil

	case "status":
		return a.status(ctx)

	case "max-history":
		if len(args) != 1 {
			return usageErrorf("max-history <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return usageErrorf("invalid bound %q", args[0])
		}
		a.engine.SetMaxHistory(n)
		return nil

	case "save":
		if err := a.engine.Save(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "saved")
		return nil

	case "export":
		if len(args) > 1 {
			return usageErrorf("export [file]")
		}
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return a.export(ctx, path)

	case "import":
		if len(args) != 1 {
			return usageErrorf("import <file>")
		}
		if err := a.engine.ImportFile(ctx, args[0]); err != nil {
			return err
		}
		a.engine.SaveAsync()
		return a.show()

	default:
		return usageErrorf("unknown command %q (try help)", name)
	}
}

// change applies fn as one undoable edit and saves in the background.
func (a *App) change(fn func() error) error {
	if err := a.engine.Edit(fn); err != nil {
		return err
	}
	a.engine.SaveAsync()
	return a.show()
}

func (a *App) printHistory() {
	h := a.engine.History()
	undo, redo := h.UndoInfo(), h.RedoInfo()

	fmt.Fprintf(a.stdout, "undo (%d/%d):\n", len(undo), h.MaxEntries())
	for i := len(undo) - 1; i >= 0; i-- {
		e := undo[i]
		fmt.Fprintf(a.stdout, "  %s  %s  %d groups\n", e.Timestamp.Format("15:04:05"), e.ID[:8], e.Groups)
	}
	fmt.Fprintf(a.stdout, "redo (%d/%d):\n", len(redo), h.MaxEntries())
	for i := len(redo) - 1; i >= 0; i-- {
		e := redo[i]
		fmt.Fprintf(a.stdout, "  %s  %s  %d groups\n", e.Timestamp.Format("15:04:05"), e.ID[:8], e.Groups)
	}
}

// watchConfig applies history settings from the config file while the
// shell runs. The returned func stops watching.
func (a *App) watchConfig() func() {
	w, err := config.NewWatcher(a.configPath, config.WithWatchLogger(a.logger))
	if err != nil {
		a.logger.Warn("config watch unavailable", "error", err)
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case cfg, ok := <-w.Changes():
				if !ok {
					return
				}
				if err := a.reload(cfg); err != nil {
					a.logger.Warn("config reload rejected", "error", err)
				}
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				a.logger.Warn("config reload rejected", "error", err)
			}
		}
	}()

	return func() {
		_ = w.Close()
		<-done
	}
}

// reload applies a configuration read from the config file. Settings
// given on the command line keep their value.
func (a *App) reload(cfg *config.Config) error {
	if err := a.opts.apply(cfg); err != nil {
		return err
	}
	if cfg.History.MaxEntries != a.engine.MaxHistory() {
		a.engine.SetMaxHistory(cfg.History.MaxEntries)
		a.logger.Info("history bound updated", "max_entries", cfg.History.MaxEntries)
	}
	return nil
}

// splitArgs splits a shell line on whitespace. Double quotes group words;
// inside them \" stands for a literal quote. Other backslashes are kept so
// LaTeX passes through unchanged.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		inArg   bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(line) && line[i+1] == '"':
			i++
			cur.WriteByte('"')
		case c == '"':
			inQuote = !inQuote
			inArg = true
		case !inQuote && (c == ' ' || c == '\t'):
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteByte(c)
			inArg = true
		}
	}

	if inQuote {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
