package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdxmph/agenda-contatos/internal/api"
	"github.com/pdxmph/agenda-contatos/internal/contacts"
	"github.com/pdxmph/agenda-contatos/internal/files"
	"github.com/pdxmph/agenda-contatos/internal/server"
	"github.com/pdxmph/agenda-contatos/internal/ui"
)

type fakeGateway struct {
	list      []contacts.Contact
	exportErr error
	importErr error
	imported  [][]contacts.Contact
}

func (f *fakeGateway) ExportAll(context.Context) ([]contacts.Contact, error) {
	return f.list, f.exportErr
}

func (f *fakeGateway) ImportReplace(_ context.Context, list []contacts.Contact) error {
	f.imported = append(f.imported, list)
	return f.importErr
}

type fakeFiles struct {
	saves    int
	saved    []byte
	savePath string
	saveErr  error
	openPath string
	openData []byte
	openErr  error
}

func (f *fakeFiles) Save(_ context.Context, _ time.Time, data []byte) (string, error) {
	f.saves++
	f.saved = data
	return f.savePath, f.saveErr
}

func (f *fakeFiles) Open(context.Context) (string, []byte, error) {
	return f.openPath, f.openData, f.openErr
}

type countingReconciler struct{ calls int }

func (c *countingReconciler) Reconcile(context.Context) error {
	c.calls++
	return nil
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

type fixture struct {
	gateway    *fakeGateway
	files      *fakeFiles
	reconciler *countingReconciler
	notices    *notices
	asked      []string
	answer     bool
}

func (f *fixture) orchestrator() *Orchestrator {
	return New(Options{
		Gateway:    f.gateway,
		Files:      f.files,
		Reconciler: f.reconciler,
		Notifier:   f.notices,
		Confirmer: ui.ConfirmerFunc(func(_ context.Context, msg string) bool {
			f.asked = append(f.asked, msg)
			return f.answer
		}),
	})
}

func newFixture() *fixture {
	return &fixture{
		gateway:    &fakeGateway{},
		files:      &fakeFiles{},
		reconciler: &countingReconciler{},
		notices:    &notices{},
	}
}

func TestExport_EmptyNeverOpensDialog(t *testing.T) {
	f := newFixture()
	f.gateway.list = []contacts.Contact{}

	res, err := f.orchestrator().Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NothingToExport, res.Outcome)
	assert.Zero(t, f.files.saves)
	assert.Equal(t, []ui.Notice{ui.Info("Não há contatos para exportar.")}, f.notices.list)
}

func TestExport_Success(t *testing.T) {
	f := newFixture()
	f.gateway.list = []contacts.Contact{{ID: "1", Nome: "Ana", Telefones: []string{}, Emails: []string{}}}
	f.files.savePath = "/tmp/backup.json"

	res, err := f.orchestrator().Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Outcome: Exported, Path: "/tmp/backup.json", Count: 1}, res)
	assert.Contains(t, string(f.files.saved), "\n  {\n    \"id\": \"1\"")
	assert.Equal(t, []ui.Notice{ui.Success("1 contato(s) exportado(s) com sucesso! Arquivo salvo em: /tmp/backup.json")}, f.notices.list)
}

func TestExport_Failures(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		f := newFixture()
		f.gateway.exportErr = api.ErrNetwork

		_, err := f.orchestrator().Export(context.Background())
		assert.ErrorIs(t, err, api.ErrNetwork)
		assert.Zero(t, f.files.saves)
		assert.Equal(t, []ui.Notice{ui.Error("Erro ao buscar contatos para exportação.")}, f.notices.list)
	})

	t.Run("cancelled", func(t *testing.T) {
		f := newFixture()
		f.gateway.list = []contacts.Contact{{ID: "1", Nome: "Ana"}}
		f.files.saveErr = files.ErrCancelled

		res, err := f.orchestrator().Export(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Cancelled, res.Outcome)
		assert.Empty(t, f.notices.list)
	})

	t.Run("write", func(t *testing.T) {
		f := newFixture()
		f.gateway.list = []contacts.Contact{{ID: "1", Nome: "Ana"}}
		f.files.saveErr = errors.New("disk full")

		_, err := f.orchestrator().Export(context.Background())
		require.Error(t, err)
		require.Len(t, f.notices.list, 1)
		assert.Equal(t, ui.Error("Erro ao salvar arquivo: disk full"), f.notices.list[0])
	})
}

func TestImport_NonArrayNeverImports(t *testing.T) {
	for _, payload := range []string{`{"nome":"Ana"}`, `"texto"`, `42`, `null`, `[1, 2]`} {
		t.Run(payload, func(t *testing.T) {
			f := newFixture()
			f.answer = true
			f.files.openPath = "backup.json"
			f.files.openData = []byte(payload)

			_, err := f.orchestrator().Import(context.Background())
			assert.ErrorIs(t, err, ErrLocalShape)
			assert.Empty(t, f.gateway.imported)
			assert.Empty(t, f.asked)
			assert.Equal(t, []ui.Notice{ui.Error("Arquivo JSON inválido. Deve conter um array de contatos.")}, f.notices.list)
		})
	}
}

func TestImport_InvalidJSONIsReadFailure(t *testing.T) {
	f := newFixture()
	f.files.openPath = "backup.json"
	f.files.openData = []byte(`[{"nome":`)

	_, err := f.orchestrator().Import(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocalShape)
	assert.Empty(t, f.gateway.imported)
	require.Len(t, f.notices.list, 1)
	assert.True(t, strings.HasPrefix(f.notices.list[0].Message, "Erro ao ler arquivo: "))
}

func TestImport_Declined(t *testing.T) {
	f := newFixture()
	f.answer = false
	f.files.openPath = "backup.json"
	f.files.openData = []byte(`[{"nome":"Ana"},{"nome":"Bruno"}]`)

	res, err := f.orchestrator().Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Declined, res.Outcome)
	assert.Empty(t, f.gateway.imported)
	assert.Zero(t, f.reconciler.calls)
	assert.Empty(t, f.notices.list)
	require.Len(t, f.asked, 1)
	assert.Equal(t, "Você está prestes a importar 2 contato(s). ATENÇÃO: Isso irá SUBSTITUIR todos os contatos atuais! Deseja continuar?", f.asked[0])
}

func TestImport_Accepted(t *testing.T) {
	f := newFixture()
	f.answer = true
	f.files.openPath = "backup.json"
	f.files.openData = []byte(`[{"nome":"Ana"}]`)

	res, err := f.orchestrator().Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Outcome: Imported, Path: "backup.json", Count: 1}, res)
	require.Len(t, f.gateway.imported, 1)
	assert.Equal(t, 1, f.reconciler.calls)
	assert.Equal(t, []ui.Notice{ui.Success("1 contato(s) importado(s) com sucesso!")}, f.notices.list)
}

func TestImport_ServerRejects(t *testing.T) {
	f := newFixture()
	f.answer = true
	f.files.openPath = "backup.json"
	f.files.openData = []byte(`[]`)
	f.gateway.importErr = api.ErrValidation

	_, err := f.orchestrator().Import(context.Background())
	assert.ErrorIs(t, err, api.ErrValidation)
	assert.Len(t, f.gateway.imported, 1, "no retry")
	assert.Zero(t, f.reconciler.calls)
	assert.Equal(t, []ui.Notice{ui.Error("Erro ao importar contatos no servidor.")}, f.notices.list)
}

func TestImport_CancelledAndUnreadable(t *testing.T) {
	f := newFixture()
	f.files.openErr = files.ErrCancelled
	res, err := f.orchestrator().Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Cancelled, res.Outcome)
	assert.Empty(t, f.notices.list)

	f = newFixture()
	f.files.openPath = "/nope.json"
	f.files.openErr = os.ErrNotExist
	_, err = f.orchestrator().Import(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.Len(t, f.notices.list, 1)
	assert.Equal(t, "Erro ao ler arquivo: file does not exist", f.notices.list[0].Message)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	birth := contacts.Date{Year: 1990, Month: time.May, Day: 12}
	original := []contacts.Contact{
		{ID: "a", Nome: "Ana", DataNascimento: &birth, Telefones: []string{"11999999999"}, Emails: []string{}, Endereco: &contacts.Address{Cidade: "São Paulo"}},
		{ID: "b", Nome: "Bruno", Telefones: []string{}, Emails: []string{"b@x.com"}},
	}
	store := server.NewMemoryStore(original...)
	srv := httptest.NewServer(server.NewHandler(store, nil).Router())
	defer srv.Close()

	client := api.NewClient(srv.URL+server.BasePath, 5*time.Second, nil)
	path := filepath.Join(t.TempDir(), "backup.json")
	backups := files.NewExchange(filepath.Join(t.TempDir(), "backups"), files.FixedDialog{Path: path})

	o := New(Options{
		Gateway:   client,
		Files:     backups,
		Confirmer: ui.ConfirmerFunc(func(context.Context, string) bool { return true }),
	})

	res, err := o.Export(ctx)
	require.NoError(t, err)
	require.Equal(t, Exported, res.Outcome)

	// Something changes on the service between export and import.
	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Create(ctx, contacts.Contact{ID: "c", Nome: "Carla"})
	require.NoError(t, err)

	res, err = o.Import(ctx)
	require.NoError(t, err)
	require.Equal(t, Imported, res.Outcome)
	assert.Equal(t, 2, res.Count)

	stored, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, withoutIDs(original), withoutIDs(stored))
}

func withoutIDs(list []contacts.Contact) []string {
	out := make([]string, len(list))
	for i, c := range list {
		c = c.Clone()
		c.ID = ""
		data, _ := json.Marshal(c)
		out[i] = string(data)
	}
	sort.Strings(out)
	return out
}

func TestParsePayload(t *testing.T) {
	list, err := ParsePayload([]byte(" [ ] "))
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	list, err = ParsePayload([]byte(`[{"id":7,"nome":"Ana","dataNascimento":null}]`))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, contacts.ID("7"), list[0].ID)
}
