// Package session manages the single contact being created or edited.
//
// A Session moves between three states. StartNew and StartEdit leave Idle,
// Submit (on success) and Cancel return to it. The draft is only reachable
// through the session's methods, which serialize on an internal mutex so that
// host shells may call them from background commands.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pdxmph/agenda-contatos/internal/cep"
	"github.com/pdxmph/agenda-contatos/internal/contacts"
	"github.com/pdxmph/agenda-contatos/internal/ui"
)

// Transition errors
var (
	ErrIdle           = errors.New("no contact is being edited")
	ErrActive         = errors.New("a contact is already being edited")
	ErrBusy           = errors.New("edit session is waiting for the service")
	ErrSubmitInFlight = errors.New("submit already in progress")
	ErrDiscarded      = errors.New("edit session was cancelled")
	ErrNameRequired   = errors.New("nome is required")
)

const (
	msgLoadFailed = "Erro ao carregar contato."
	msgSaveFailed = "Erro ao salvar contato."
	msgCreated    = "Contato criado com sucesso!"
	msgUpdated    = "Contato atualizado com sucesso!"
	msgNameEmpty  = "O nome é obrigatório."
)

// State of the session
type State int

const (
	Idle State = iota
	Creating
	Editing
)

func (s State) String() string {
	switch s {
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	default:
		return "idle"
	}
}

// Gateway is the part of the remote service the session needs
type Gateway interface {
	Get(ctx context.Context, id contacts.ID) (*contacts.Contact, error)
	Create(ctx context.Context, draft contacts.Contact) (*contacts.Contact, error)
	Update(ctx context.Context, id contacts.ID, draft contacts.Contact) (*contacts.Contact, error)
}

// AddressLookup resolves postal codes
type AddressLookup interface {
	Lookup(ctx context.Context, code string) (cep.Address, error)
}

// Reloader brings the displayed collection back in line with the service
type Reloader interface {
	Reconcile(ctx context.Context) error
}

// Draft is the editable form content
type Draft struct {
	Nome           string
	DataNascimento *contacts.Date
	Telefones      []string
	Emails         []string
	Endereco       contacts.Address
}

// Clone returns a deep copy of the draft
func (d Draft) Clone() Draft {
	out := d
	if d.DataNascimento != nil {
		date := *d.DataNascimento
		out.DataNascimento = &date
	}
	out.Telefones = append([]string(nil), d.Telefones...)
	out.Emails = append([]string(nil), d.Emails...)
	return out
}

// Contact builds the outbound record: blank entries removed, address always complete
func (d Draft) Contact() contacts.Contact {
	addr := d.Endereco
	c := contacts.Contact{
		Nome:      strings.TrimSpace(d.Nome),
		Telefones: contacts.CleanEntries(d.Telefones),
		Emails:    contacts.CleanEntries(d.Emails),
		Endereco:  &addr,
	}
	if d.DataNascimento != nil {
		date := *d.DataNascimento
		c.DataNascimento = &date
	}
	return c
}

func draftFrom(c *contacts.Contact) Draft {
	d := Draft{
		Nome:      c.Nome,
		Telefones: append([]string(nil), c.Telefones...),
		Emails:    append([]string(nil), c.Emails...),
	}
	if len(d.Telefones) == 0 {
		d.Telefones = []string{""}
	}
	if len(d.Emails) == 0 {
		d.Emails = []string{""}
	}
	if c.DataNascimento != nil {
		date := *c.DataNascimento
		d.DataNascimento = &date
	}
	if c.Endereco != nil {
		d.Endereco = *c.Endereco
	}
	return d
}

// Snapshot is a consistent copy of the session for rendering
type Snapshot struct {
	State      State
	ID         contacts.ID
	Draft      Draft
	Loading    bool
	Submitting bool
	Postal     PostalMark
	PostalBusy bool
}

// Session is the edit session state machine. Notifications are always sent
// after the internal lock is released.
type Session struct {
	gateway  Gateway
	postal   AddressLookup
	notifier ui.Notifier
	logger   *zap.Logger

	mu         sync.Mutex
	reloader   Reloader
	state      State
	id         contacts.ID
	draft      Draft
	epoch      uint64
	loading    bool
	submitting bool
	postalMark PostalMark
	postalBusy bool
}

// New creates an idle session. postal may be nil to disable the address assist.
func New(gateway Gateway, postal AddressLookup, notifier ui.Notifier, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = ui.NotifierFunc(func(ui.Notice) {})
	}
	return &Session{
		gateway:  gateway,
		postal:   postal,
		notifier: notifier,
		logger:   logger.Named("session"),
	}
}

// SetReloader sets what runs after a successful submit
func (s *Session) SetReloader(r Reloader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloader = r
}

// Snapshot returns a copy of the current state and draft
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:      s.state,
		ID:         s.id,
		Draft:      s.draft.Clone(),
		Loading:    s.loading,
		Submitting: s.submitting,
		Postal:     s.postalMark,
		PostalBusy: s.postalBusy,
	}
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartNew opens a blank draft
func (s *Session) StartNew() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIdleLocked(); err != nil {
		return err
	}
	s.resetLocked(Creating, "", Draft{Telefones: []string{}, Emails: []string{}})
	s.logger.Debug("creating contact")
	return nil
}

// StartEdit loads id into the draft. On failure the session stays idle.
func (s *Session) StartEdit(ctx context.Context, id contacts.ID) error {
	s.mu.Lock()
	if err := s.requireIdleLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.loading = true
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	c, err := s.gateway.Get(ctx, id)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Debug("discarding contact load", zap.String("id", string(id)))
		return ErrDiscarded
	}
	s.loading = false

	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("loading contact failed", zap.String("id", string(id)), zap.Error(err))
		s.notifier.Notify(ui.Error(msgLoadFailed))
		return fmt.Errorf("loading contact %s: %w", id, err)
	}

	s.resetLocked(Editing, id, draftFrom(c))
	s.mu.Unlock()
	s.logger.Debug("editing contact", zap.String("id", string(id)))
	return nil
}

// AddPhoneField appends one empty phone entry
func (s *Session) AddPhoneField() error {
	return s.Edit(func(d *Draft) { d.Telefones = append(d.Telefones, "") })
}

// AddEmailField appends one empty email entry
func (s *Session) AddEmailField() error {
	return s.Edit(func(d *Draft) { d.Emails = append(d.Emails, "") })
}

// Edit applies fn to the draft
func (s *Session) Edit(fn func(*Draft)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return ErrIdle
	}
	fn(&s.draft)
	return nil
}

// Cancel discards the draft, or abandons a contact that is still loading
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.submitting:
		return ErrSubmitInFlight
	case s.state == Idle && !s.loading:
		return ErrIdle
	}
	s.resetLocked(Idle, "", Draft{})
	s.logger.Debug("edit cancelled")
	return nil
}

// Forget ends the session when it is editing id, which no longer exists on
// the service. A submit already in flight is left to fail on its own.
func (s *Session) Forget(id contacts.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Editing || s.id != id || s.submitting {
		return false
	}
	s.resetLocked(Idle, "", Draft{})
	s.logger.Debug("edited contact was deleted", zap.String("id", string(id)))
	return true
}

// Submit sends the draft to the service: Create when creating, Update when editing
func (s *Session) Submit(ctx context.Context) (*contacts.Contact, error) {
	s.mu.Lock()
	switch {
	case s.state == Idle:
		s.mu.Unlock()
		return nil, ErrIdle
	case s.submitting:
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}

	out := s.draft.Contact()
	if out.Nome == "" {
		s.mu.Unlock()
		s.notifier.Notify(ui.Error(msgNameEmpty))
		return nil, ErrNameRequired
	}

	state, id := s.state, s.id
	s.submitting = true
	s.mu.Unlock()

	var (
		saved *contacts.Contact
		err   error
	)
	if state == Creating {
		saved, err = s.gateway.Create(ctx, out)
	} else {
		saved, err = s.gateway.Update(ctx, id, out)
	}

	s.mu.Lock()
	s.submitting = false
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("saving contact failed", zap.Stringer("state", state), zap.String("id", string(id)), zap.Error(err))
		s.notifier.Notify(ui.Error(msgSaveFailed))
		return nil, fmt.Errorf("saving contact: %w", err)
	}
	s.resetLocked(Idle, "", Draft{})
	reloader := s.reloader
	s.mu.Unlock()

	if state == Creating {
		s.notifier.Notify(ui.Success(msgCreated))
	} else {
		s.notifier.Notify(ui.Success(msgUpdated))
	}

	if reloader != nil {
		if err := reloader.Reconcile(ctx); err != nil {
			s.logger.Debug("reconcile after submit failed", zap.Error(err))
		}
	}
	return saved, nil
}

func (s *Session) requireIdleLocked() error {
	switch {
	case s.loading:
		return ErrBusy
	case s.state != Idle:
		return ErrActive
	}
	return nil
}

func (s *Session) resetLocked(state State, id contacts.ID, draft Draft) {
	s.state = state
	s.id = id
	s.draft = draft
	s.loading = false
	s.postalMark = MarkNone
	s.postalBusy = false
	s.epoch++
}
