package tui

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pdxmph/agenda-contatos/internal/birthday"
	"github.com/pdxmph/agenda-contatos/internal/contacts"
	"github.com/pdxmph/agenda-contatos/internal/files"
	"github.com/pdxmph/agenda-contatos/internal/ui"
)

// Messages sent by the bridge into the program
type (
	contactsMsg  struct{ list []contacts.Contact }
	birthdaysMsg struct{ matches []birthday.Match }
	noticeMsg    struct{ notice ui.Notice }

	confirmRequestMsg struct {
		message string
		reply   chan bool
	}

	pathRequestMsg struct {
		title   string
		initial string
		filters []files.Filter
		reply   chan pathReply
	}
)

type pathReply struct {
	path string
	ok   bool
}

// Bridge lets the engine talk to the running program. It implements the
// contact list view, ui.Notifier, ui.Confirmer and files.Dialog by sending
// messages to the program and, where an answer is needed, waiting for the
// user's reply.
type Bridge struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewBridge creates a bridge with no program attached
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach connects the bridge to p. Call it before p.Run.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.program = p
}

func (b *Bridge) send(msg tea.Msg) bool {
	b.mu.Lock()
	p := b.program
	b.mu.Unlock()
	if p == nil {
		return false
	}
	p.Send(msg)
	return true
}

// ShowContacts replaces the displayed list
func (b *Bridge) ShowContacts(list []contacts.Contact) {
	b.send(contactsMsg{list: list})
}

// ShowBirthdays replaces the birthday banner
func (b *Bridge) ShowBirthdays(matches []birthday.Match) {
	b.send(birthdaysMsg{matches: matches})
}

// Notify shows a notice on the status line
func (b *Bridge) Notify(n ui.Notice) {
	b.send(noticeMsg{notice: n})
}

// Confirm asks a yes/no question and waits for the answer
func (b *Bridge) Confirm(ctx context.Context, message string) bool {
	reply := make(chan bool, 1)
	if !b.send(confirmRequestMsg{message: message, reply: reply}) {
		return false
	}
	select {
	case answer := <-reply:
		return answer
	case <-ctx.Done():
		return false
	}
}

// SavePath asks where to write a file
func (b *Bridge) SavePath(ctx context.Context, defaultPath string, filters []files.Filter) (string, error) {
	return b.askPath(ctx, "Salvar backup em:", defaultPath, filters)
}

// OpenPath asks which file to read
func (b *Bridge) OpenPath(ctx context.Context, defaultDir string, filters []files.Filter) (string, error) {
	initial := defaultDir
	if initial != "" && !strings.HasSuffix(initial, string(filepath.Separator)) {
		initial += string(filepath.Separator)
	}
	return b.askPath(ctx, "Importar arquivo:", initial, filters)
}

func (b *Bridge) askPath(ctx context.Context, title, initial string, filters []files.Filter) (string, error) {
	reply := make(chan pathReply, 1)
	if !b.send(pathRequestMsg{title: title, initial: initial, filters: filters, reply: reply}) {
		return "", files.ErrCancelled
	}
	select {
	case r := <-reply:
		if !r.ok || strings.TrimSpace(r.path) == "" {
			return "", files.ErrCancelled
		}
		return r.path, nil
	case <-ctx.Done():
		return "", files.ErrCancelled
	}
}
