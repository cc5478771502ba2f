// Package contactlist keeps the displayed contact collection in line with the
// remote service.
//
// Every request that can replace the collection takes a generation stamp.
// A response is applied only while its stamp is still the newest one issued,
// so a slow answer to an old search can never overwrite a newer one.
package contactlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pdxmph/agenda-contatos/internal/birthday"
	"github.com/pdxmph/agenda-contatos/internal/contacts"
	"github.com/pdxmph/agenda-contatos/internal/ui"
)

const (
	msgLoadFailed    = "Erro ao carregar contatos."
	msgSearchFailed  = "Erro ao buscar contatos."
	msgConfirmDelete = "Tem certeza que deseja deletar este contato?"
	msgDeleted       = "Contato deletado com sucesso!"
	msgDeleteFailed  = "Erro ao deletar contato."
)

// ErrNoEditor is returned by RequestEdit before SetEditor is called
var ErrNoEditor = errors.New("no edit session attached")

// Gateway is the part of the remote service the controller needs
type Gateway interface {
	List(ctx context.Context) ([]contacts.Contact, error)
	Search(ctx context.Context, term string) ([]contacts.Contact, error)
	Delete(ctx context.Context, id contacts.ID) error
}

// View receives collection and birthday updates. Implementations must not
// call back into the Controller.
type View interface {
	ShowContacts([]contacts.Contact)
	ShowBirthdays([]birthday.Match)
}

// Editor opens a persisted contact for editing
type Editor interface {
	StartEdit(ctx context.Context, id contacts.ID) error
	// Forget ends the edit of id after it was deleted
	Forget(id contacts.ID) bool
}

// Options configure a Controller
type Options struct {
	Gateway   Gateway
	View      View
	Notifier  ui.Notifier
	Confirmer ui.Confirmer
	Logger    *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// Controller owns the contact collection
type Controller struct {
	gateway   Gateway
	view      View
	notifier  ui.Notifier
	confirmer ui.Confirmer
	logger    *zap.Logger
	now       func() time.Time

	generation atomic.Uint64

	mu         sync.Mutex
	editor     Editor
	collection []contacts.Contact
}

// New creates a controller with an empty collection
func New(opts Options) *Controller {
	c := &Controller{
		gateway:    opts.Gateway,
		view:       opts.View,
		notifier:   opts.Notifier,
		confirmer:  opts.Confirmer,
		logger:     opts.Logger,
		now:        opts.Now,
		collection: []contacts.Contact{},
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("contactlist")
	if c.now == nil {
		c.now = time.Now
	}
	if c.notifier == nil {
		c.notifier = ui.NotifierFunc(func(ui.Notice) {})
	}
	if c.confirmer == nil {
		c.confirmer = ui.ConfirmerFunc(func(context.Context, string) bool { return false })
	}
	return c
}

// SetEditor attaches the edit session
func (c *Controller) SetEditor(e Editor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editor = e
}

// Contacts returns a copy of the displayed collection
func (c *Controller) Contacts() []contacts.Contact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return contacts.CloneAll(c.collection)
}

// Refresh replaces the collection with the full list
func (c *Controller) Refresh(ctx context.Context) error {
	gen := c.generation.Add(1)
	list, err := c.gateway.List(ctx)
	return c.apply(gen, "list", list, err, msgLoadFailed)
}

// OnSearchInput shows the contacts matching term, or all of them when term is
// blank. A non-blank term is sent as typed; matching belongs to the service.
func (c *Controller) OnSearchInput(ctx context.Context, term string) error {
	if strings.TrimSpace(term) == "" {
		return c.Refresh(ctx)
	}
	gen := c.generation.Add(1)
	list, err := c.gateway.Search(ctx, term)
	return c.apply(gen, "search:"+term, list, err, msgSearchFailed)
}

func (c *Controller) apply(gen uint64, what string, list []contacts.Contact, err error, failMsg string) error {
	c.mu.Lock()

	if latest := c.generation.Load(); gen != latest {
		c.mu.Unlock()
		c.logger.Debug("discarding superseded response",
			zap.String("request", what),
			zap.Uint64("generation", gen),
			zap.Uint64("latest", latest),
			zap.Bool("failed", err != nil))
		return nil
	}

	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("loading contacts failed", zap.String("request", what), zap.Error(err))
		c.notifier.Notify(ui.Error(failMsg))
		return fmt.Errorf("%s: %w", what, err)
	}

	if list == nil {
		list = []contacts.Contact{}
	}
	c.collection = contacts.CloneAll(list)
	// The view is updated under the lock so renders happen in stamp order.
	if c.view != nil {
		c.view.ShowContacts(contacts.CloneAll(list))
	}
	c.mu.Unlock()
	return nil
}

// RequestEdit opens id in the edit session
func (c *Controller) RequestEdit(ctx context.Context, id contacts.ID) error {
	c.mu.Lock()
	editor := c.editor
	c.mu.Unlock()

	if editor == nil {
		return ErrNoEditor
	}
	return editor.StartEdit(ctx, id)
}

// RequestDelete asks for confirmation and deletes id. It reports whether the
// contact was deleted; declining is not an error.
func (c *Controller) RequestDelete(ctx context.Context, id contacts.ID) (bool, error) {
	if !c.confirmer.Confirm(ctx, msgConfirmDelete) {
		c.logger.Debug("delete declined", zap.String("id", string(id)))
		return false, nil
	}

	if err := c.gateway.Delete(ctx, id); err != nil {
		c.logger.Warn("deleting contact failed", zap.String("id", string(id)), zap.Error(err))
		c.notifier.Notify(ui.Error(msgDeleteFailed))
		return false, fmt.Errorf("deleting contact %s: %w", id, err)
	}

	c.mu.Lock()
	editor := c.editor
	c.mu.Unlock()
	if editor != nil && editor.Forget(id) {
		c.logger.Debug("closed edit of deleted contact", zap.String("id", string(id)))
	}

	c.notifier.Notify(ui.Success(msgDeleted))
	if err := c.Reconcile(ctx); err != nil {
		c.logger.Debug("reconcile after delete failed", zap.Error(err))
	}
	return true, nil
}

// Reconcile reloads the collection and rescans birthdays
func (c *Controller) Reconcile(ctx context.Context) error {
	err := c.Refresh(ctx)
	c.ScanBirthdays()
	return err
}

// ScanBirthdays runs the birthday scan over the displayed collection
func (c *Controller) ScanBirthdays() []birthday.Match {
	c.mu.Lock()
	defer c.mu.Unlock()

	matches := birthday.Scan(c.collection, c.now())
	if c.view != nil {
		c.view.ShowBirthdays(matches)
	}
	return matches
}
