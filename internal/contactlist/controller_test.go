package contactlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdxmph/agenda-contatos/internal/api"
	"github.com/pdxmph/agenda-contatos/internal/birthday"
	"github.com/pdxmph/agenda-contatos/internal/contacts"
	"github.com/pdxmph/agenda-contatos/internal/ui"
)

type reply struct {
	list []contacts.Contact
	err  error
}

// gatedGateway blocks each search until the test releases a reply for its term
type gatedGateway struct {
	mu       sync.Mutex
	all      []contacts.Contact
	listErr  error
	gates    map[string]chan reply
	deleted  []contacts.ID
	deleteFn func(contacts.ID) error
}

func newGatedGateway(all ...contacts.Contact) *gatedGateway {
	return &gatedGateway{all: all, gates: map[string]chan reply{}}
}

func (g *gatedGateway) gate(term string) chan reply {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[term]
	if !ok {
		ch = make(chan reply, 1)
		g.gates[term] = ch
	}
	return ch
}

func (g *gatedGateway) List(context.Context) ([]contacts.Contact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	return contacts.CloneAll(g.all), nil
}

func (g *gatedGateway) Search(_ context.Context, term string) ([]contacts.Contact, error) {
	r := <-g.gate(term)
	return r.list, r.err
}

func (g *gatedGateway) Delete(_ context.Context, id contacts.ID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, id)
	if g.deleteFn != nil {
		return g.deleteFn(id)
	}
	kept := g.all[:0]
	for _, c := range g.all {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	g.all = kept
	return nil
}

type recordingView struct {
	mu        sync.Mutex
	shown     [][]contacts.Contact
	birthdays [][]birthday.Match
}

func (v *recordingView) ShowContacts(list []contacts.Contact) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shown = append(v.shown, list)
}

func (v *recordingView) ShowBirthdays(m []birthday.Match) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.birthdays = append(v.birthdays, m)
}

func (v *recordingView) renders() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.shown)
}

type notices struct {
	mu   sync.Mutex
	list []ui.Notice
}

func (n *notices) Notify(notice ui.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, notice)
}

func (n *notices) all() []ui.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ui.Notice(nil), n.list...)
}

func named(names ...string) []contacts.Contact {
	out := make([]contacts.Contact, len(names))
	for i, n := range names {
		out[i] = contacts.Contact{ID: contacts.ID(n), Nome: n}
	}
	return out
}

func nomes(list []contacts.Contact) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Nome
	}
	return out
}

func newController(gw Gateway, view View, n ui.Notifier, confirm bool) *Controller {
	return New(Options{
		Gateway:   gw,
		View:      view,
		Notifier:  n,
		Confirmer: ui.ConfirmerFunc(func(context.Context, string) bool { return confirm }),
		Now:       func() time.Time { return time.Date(2024, time.May, 12, 10, 0, 0, 0, time.UTC) },
	})
}

func TestOnSearchInput_LastIssuedWins(t *testing.T) {
	tests := []struct {
		name  string
		order []string
	}{
		{name: "older response arrives last", order: []string{"Joa", "Jo"}},
		{name: "older response arrives first", order: []string{"Jo", "Joa"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newGatedGateway()
			view := &recordingView{}
			c := newController(gw, view, &notices{}, true)
			ctx := context.Background()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = c.OnSearchInput(ctx, "Jo")
			}()
			require.Eventually(t, func() bool { return c.generation.Load() == 1 }, time.Second, time.Millisecond)

			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = c.OnSearchInput(ctx, "Joa")
			}()
			require.Eventually(t, func() bool { return c.generation.Load() == 2 }, time.Second, time.Millisecond)

			results := map[string][]contacts.Contact{
				"Jo":  named("João", "Jonas", "Joana"),
				"Joa": named("João", "Joana"),
			}
			for _, term := range tt.order {
				gw.gate(term) <- reply{list: results[term]}
				if term == "Joa" {
					require.Eventually(t, func() bool { return view.renders() == 1 }, time.Second, time.Millisecond)
				}
			}
			wg.Wait()

			assert.Equal(t, []string{"João", "Joana"}, nomes(c.Contacts()))
			require.Equal(t, 1, view.renders())
			assert.Equal(t, []string{"João", "Joana"}, nomes(view.shown[0]))
		})
	}
}

func TestOnSearchInput_StaleFailureIsDiscarded(t *testing.T) {
	gw := newGatedGateway()
	view := &recordingView{}
	n := &notices{}
	c := newController(gw, view, n, true)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.OnSearchInput(ctx, "Jo") }()
	require.Eventually(t, func() bool { return c.generation.Load() == 1 }, time.Second, time.Millisecond)

	gw.gate("Joa") <- reply{list: named("Joana")}
	require.NoError(t, c.OnSearchInput(ctx, "Joa"))

	gw.gate("Jo") <- reply{err: api.ErrNetwork}
	require.NoError(t, <-done)

	assert.Empty(t, n.all())
	assert.Equal(t, []string{"Joana"}, nomes(c.Contacts()))
}

func TestOnSearchInput_EmptyTermLists(t *testing.T) {
	gw := newGatedGateway(named("Ana", "Bruno")...)
	view := &recordingView{}
	c := newController(gw, view, &notices{}, true)

	require.NoError(t, c.OnSearchInput(context.Background(), "   "))
	assert.Equal(t, []string{"Ana", "Bruno"}, nomes(c.Contacts()))
}

func TestOnSearchInput_SendsTermAsTyped(t *testing.T) {
	gw := newGatedGateway()
	c := newController(gw, &recordingView{}, &notices{}, true)

	gw.gate("Ana ") <- reply{list: named("Ana Paula")}
	require.NoError(t, c.OnSearchInput(context.Background(), "Ana "))
	assert.Equal(t, []string{"Ana Paula"}, nomes(c.Contacts()))
}

func TestRefresh_FailureKeepsCollection(t *testing.T) {
	gw := newGatedGateway(named("Ana")...)
	view := &recordingView{}
	n := &notices{}
	c := newController(gw, view, n, true)
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))
	gw.listErr = api.ErrNetwork

	err := c.Refresh(ctx)
	assert.ErrorIs(t, err, api.ErrNetwork)
	assert.Equal(t, []string{"Ana"}, nomes(c.Contacts()))
	assert.Equal(t, 1, view.renders())
	require.Len(t, n.all(), 1)
	assert.Equal(t, ui.Error("Erro ao carregar contatos."), n.all()[0])
}

func TestSearch_FailureMessage(t *testing.T) {
	gw := newGatedGateway()
	n := &notices{}
	c := newController(gw, &recordingView{}, n, true)

	gw.gate("x") <- reply{err: api.ErrNetwork}
	err := c.OnSearchInput(context.Background(), "x")
	assert.ErrorIs(t, err, api.ErrNetwork)
	assert.Equal(t, []ui.Notice{ui.Error("Erro ao buscar contatos.")}, n.all())
}

func TestRequestDelete_Declined(t *testing.T) {
	gw := newGatedGateway(named("Ana")...)
	view := &recordingView{}
	c := newController(gw, view, &notices{}, false)

	deleted, err := c.RequestDelete(context.Background(), "Ana")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, gw.deleted)
	assert.Zero(t, view.renders())
}

func TestRequestDelete_Confirmed(t *testing.T) {
	ana := named("Ana")[0]
	birth := contacts.Date{Year: 1990, Month: time.May, Day: 12}
	bruno := contacts.Contact{ID: "Bruno", Nome: "Bruno", DataNascimento: &birth}
	gw := newGatedGateway(ana, bruno)
	view := &recordingView{}
	n := &notices{}

	var asked string
	c := New(Options{
		Gateway:  gw,
		View:     view,
		Notifier: n,
		Confirmer: ui.ConfirmerFunc(func(_ context.Context, msg string) bool {
			asked = msg
			return true
		}),
		Now: func() time.Time { return time.Date(2024, time.May, 12, 10, 0, 0, 0, time.UTC) },
	})

	deleted, err := c.RequestDelete(context.Background(), "Ana")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, "Tem certeza que deseja deletar este contato?", asked)
	assert.Equal(t, []contacts.ID{"Ana"}, gw.deleted)
	assert.Equal(t, []string{"Bruno"}, nomes(c.Contacts()))
	assert.Equal(t, []ui.Notice{ui.Success("Contato deletado com sucesso!")}, n.all())

	require.Len(t, view.birthdays, 1)
	require.Len(t, view.birthdays[0], 1)
	assert.Equal(t, 34, view.birthdays[0][0].Age)
}

func TestRequestDelete_Failure(t *testing.T) {
	gw := newGatedGateway(named("Ana")...)
	gw.deleteFn = func(contacts.ID) error { return api.ErrNotFound }
	view := &recordingView{}
	n := &notices{}
	c := newController(gw, view, n, true)

	deleted, err := c.RequestDelete(context.Background(), "Ana")
	assert.False(t, deleted)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Zero(t, view.renders())
	assert.Equal(t, []ui.Notice{ui.Error("Erro ao deletar contato.")}, n.all())
}

type stubEditor struct {
	ids       []contacts.ID
	forgotten []contacts.ID
	err       error
}

func (s *stubEditor) StartEdit(_ context.Context, id contacts.ID) error {
	s.ids = append(s.ids, id)
	return s.err
}

func (s *stubEditor) Forget(id contacts.ID) bool {
	s.forgotten = append(s.forgotten, id)
	return true
}

func TestRequestDelete_ClosesEditOfDeletedContact(t *testing.T) {
	gw := newGatedGateway(named("Ana", "Bia")...)
	c := newController(gw, &recordingView{}, &notices{}, true)
	editor := &stubEditor{}
	c.SetEditor(editor)

	_, err := c.RequestDelete(context.Background(), "Ana")
	require.NoError(t, err)
	assert.Equal(t, []contacts.ID{"Ana"}, editor.forgotten)

	gw.deleteFn = func(contacts.ID) error { return api.ErrNetwork }
	_, err = c.RequestDelete(context.Background(), "Bia")
	require.Error(t, err)
	assert.Equal(t, []contacts.ID{"Ana"}, editor.forgotten, "a failed delete keeps the edit open")
}

func TestRequestEdit(t *testing.T) {
	c := newController(newGatedGateway(), &recordingView{}, &notices{}, true)
	assert.ErrorIs(t, c.RequestEdit(context.Background(), "1"), ErrNoEditor)

	editor := &stubEditor{err: errors.New("boom")}
	c.SetEditor(editor)
	assert.Error(t, c.RequestEdit(context.Background(), "1"))
	assert.Equal(t, []contacts.ID{"1"}, editor.ids)
}
