// Package prompt implements the notifier and confirmer used by the
// non-interactive commands, reading answers from a line-oriented input.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdxmph/agenda-contatos/internal/ui"
)

// Console prints notices to out and reads yes/no answers from in
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a console over in and out
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Notify prints a notice on its own line
func (c *Console) Notify(n ui.Notice) {
	switch n.Level {
	case ui.LevelError:
		fmt.Fprintf(c.out, "erro: %s\n", n.Message)
	default:
		fmt.Fprintln(c.out, n.Message)
	}
}

// Confirm asks message and waits for a line. Only s/sim/y/yes confirm; end of
// input or ctx ending counts as no.
func (c *Console) Confirm(ctx context.Context, message string) bool {
	fmt.Fprintf(c.out, "%s [s/N]: ", message)

	answer := make(chan string, 1)
	go func() {
		line, _ := c.in.ReadString('\n')
		answer <- line
	}()

	select {
	case line := <-answer:
		return IsYes(line)
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return false
	}
}

// IsYes reports whether an answer confirms
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "s", "sim", "y", "yes":
		return true
	}
	return false
}

// Always answers yes without asking
var Always = ui.ConfirmerFunc(func(context.Context, string) bool { return true })
