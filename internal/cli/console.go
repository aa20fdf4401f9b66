package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/roach88/schedmap/internal/mapping"
	"github.com/roach88/schedmap/internal/store"
)

// ANSI colours used on terminals.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// Answer policies for the import command's --on-unknown and --override flags.
const (
	PolicyAsk    = "ask"
	PolicySkip   = "skip"
	PolicyAbort  = "abort"
	PolicyAlways = "always"
	PolicyNever  = "never"
)

// quitAnswer ends the document chooser.
const quitAnswer = "q"

// ConsoleOptions configures a Console.
type ConsoleOptions struct {
	OnUnknown string // ask | skip | abort
	Override  string // ask | always | never
	AssumeYes bool   // do not wait for Enter after notices
}

// Console is the interactive operator: it asks on the terminal and waits
// for answers. It implements mapping.Operator.
//
// Input is read by a single goroutine, started on the first question, so a
// pending question can be abandoned when the context is cancelled.
type Console struct {
	in    *bufio.Reader
	out   io.Writer
	color bool
	opts  ConsoleOptions

	startReader sync.Once
	lines       chan inputLine

	// readErr is the error that ended the input; every later question fails
	// with it.
	readErr error
}

// inputLine is one line read from the input, or the error that ended it.
type inputLine struct {
	text string
	err  error
}

// NewConsole creates a Console reading answers from in and writing prompts
// to out. Colours are used only when out is a terminal.
func NewConsole(in io.Reader, out io.Writer, opts ConsoleOptions) *Console {
	c := &Console{in: bufio.NewReader(in), out: out, opts: opts, lines: make(chan inputLine, 1)}
	if f, ok := out.(*os.File); ok {
		fd := f.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			c.color = true
			c.out = colorable.NewColorable(f)
		}
	}
	return c
}

var _ mapping.Operator = (*Console)(nil)

// errNoAnswer is returned when input ends while a question is open.
var errNoAnswer = errors.New("no answer: input closed")

func (c *Console) paint(color, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if c.color {
		msg = color + msg + colorReset
	}
	fmt.Fprintln(c.out, msg)
}

// Info prints a plain line.
func (c *Console) Info(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Success prints a green line.
func (c *Console) Success(format string, args ...any) {
	c.paint(colorGreen, format, args...)
}

// Warn prints a yellow line.
func (c *Console) Warn(format string, args ...any) {
	c.paint(colorYellow, format, args...)
}

// Error prints a red line.
func (c *Console) Error(format string, args ...any) {
	c.paint(colorRed, format, args...)
}

// readLines feeds c.lines until the input ends.
func (c *Console) readLines() {
	for {
		text, err := c.in.ReadString('\n')
		c.lines <- inputLine{text: text, err: err}
		if err != nil {
			return
		}
	}
}

// ask prints prompt and returns the trimmed answer line. It returns
// ctx.Err() as soon as ctx is done, even while waiting for input.
func (c *Console) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.readErr != nil {
		return "", c.inputError(c.readErr)
	}
	c.startReader.Do(func() { go c.readLines() })

	fmt.Fprint(c.out, prompt)
	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", ctx.Err()
	case line := <-c.lines:
		if line.err != nil {
			c.readErr = line.err
			if errors.Is(line.err, io.EOF) && line.text != "" {
				return strings.TrimSpace(line.text), nil
			}
			fmt.Fprintln(c.out)
			return "", c.inputError(line.err)
		}
		return strings.TrimSpace(line.text), nil
	}
}

func (c *Console) inputError(err error) error {
	if errors.Is(err, io.EOF) {
		return errNoAnswer
	}
	return err
}

// SelectDatabase asks for a database file name until one ends in .db.
func (c *Console) SelectDatabase(ctx context.Context) (string, error) {
	for {
		name, err := c.ask(ctx, "Database file (.db): ")
		if err != nil {
			return "", err
		}
		if err := store.ValidateDatabasePath(name); err != nil {
			c.Warn("%v", err)
			continue
		}
		return name, nil
	}
}

// SelectDocument asks for the next document until the answer names an
// existing, well-formed .xml file. ok is false when the operator quits.
func (c *Console) SelectDocument(ctx context.Context) (path string, ok bool, err error) {
	for {
		answer, err := c.ask(ctx, "XML document to import ('q' to quit): ")
		if errors.Is(err, errNoAnswer) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		if strings.EqualFold(answer, quitAnswer) {
			return "", false, nil
		}
		if answer == "" {
			continue
		}

		if err := mapping.ValidateDocumentPath(answer); err != nil {
			c.Warn("%v", err)
			continue
		}
		if err := checkWellFormed(answer); err != nil {
			c.Error("%v", err)
			continue
		}
		return answer, true, nil
	}
}

func checkWellFormed(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return mapping.CheckWellFormed(f)
}

// ConfirmOverride implements mapping.Operator.
func (c *Console) ConfirmOverride(ctx context.Context, table string) (bool, error) {
	switch c.opts.Override {
	case PolicyAlways:
		c.Warn("Table %q already exists; overriding it.", table)
		return true, nil
	case PolicyNever:
		c.Warn("Table %q already exists; keeping it.", table)
		return false, nil
	}

	c.Warn("Table %q already exists.", table)
	for {
		answer, err := c.ask(ctx, "Override it? (y/n): ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// ResolveUnknownField implements mapping.Operator.
func (c *Console) ResolveUnknownField(ctx context.Context, me *mapping.MappingError) (mapping.Decision, error) {
	c.Error("%s", describe(me))

	switch c.opts.OnUnknown {
	case PolicySkip:
		c.Warn("Skipping <%s>.", me.Tag)
		return mapping.DecisionSkip, nil
	case PolicyAbort:
		return mapping.DecisionAbort, nil
	}

	answer, err := c.ask(ctx, "Enter 'c' to skip this field and continue, anything else to stop: ")
	if errors.Is(err, errNoAnswer) {
		return mapping.DecisionAbort, nil
	}
	if err != nil {
		return 0, err
	}
	if strings.EqualFold(answer, "c") {
		return mapping.DecisionSkip, nil
	}
	return mapping.DecisionAbort, nil
}

// Acknowledge implements mapping.Operator.
func (c *Console) Acknowledge(ctx context.Context, me *mapping.MappingError) error {
	c.Warn("%s", describe(me))
	if c.opts.AssumeYes {
		return nil
	}
	_, err := c.ask(ctx, "Press Enter to continue...")
	if errors.Is(err, errNoAnswer) {
		return nil
	}
	return err
}

// describe renders a mapping error for the operator.
func describe(me *mapping.MappingError) string {
	var b strings.Builder
	switch me.Code {
	case mapping.ErrCodeUnknownField:
		fmt.Fprintf(&b, "Unknown field <%s>", me.Tag)
	case mapping.ErrCodeDuplicateOrInvalidID:
		fmt.Fprintf(&b, "Placeholder ID %d assigned", me.Placeholder)
	default:
		fmt.Fprintf(&b, "%s in <%s>", me.Code, me.Tag)
	}
	if me.Record != "" {
		fmt.Fprintf(&b, " in %s", me.Record)
	}
	if me.Line > 0 {
		fmt.Fprintf(&b, " (table %s, entry %d, line %d)", me.Table, me.Entry, me.Line)
	} else {
		fmt.Fprintf(&b, " (table %s, entry %d)", me.Table, me.Entry)
	}
	if me.Message != "" {
		fmt.Fprintf(&b, ": %s", me.Message)
	}
	return b.String()
}
