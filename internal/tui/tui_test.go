package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdxmph/agenda-contatos/internal/birthday"
	"github.com/pdxmph/agenda-contatos/internal/contacts"
	"github.com/pdxmph/agenda-contatos/internal/files"
	"github.com/pdxmph/agenda-contatos/internal/session"
	"github.com/pdxmph/agenda-contatos/internal/ui"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "11987654321", want: "(11) 98765-4321"},
		{raw: " 11987654321 ", want: "(11) 98765-4321"},
		{raw: "+16502530000", want: "+1 650-253-0000"},
		{raw: "ramal 12", want: "ramal 12"},
		{raw: "123", want: "123"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPhone(tt.raw))
		})
	}
}

func TestCardLines_Placeholders(t *testing.T) {
	lines := cardLines(contacts.Contact{Nome: "Ana", Telefones: []string{""}}, 40)

	assert.Equal(t, "Ana", lines[0])
	assert.Contains(t, lines, "Data de Nascimento: Não informada")
	assert.Contains(t, lines, "  Sem telefone")
	assert.Contains(t, lines, "  Sem email")
	assert.Contains(t, lines, "  Sem endereço")
}

func TestCardLines_FullContact(t *testing.T) {
	d := contacts.Date{Year: 1990, Month: time.May, Day: 12}
	c := contacts.Contact{
		Nome:           "Ana",
		DataNascimento: &d,
		Telefones:      []string{"11987654321"},
		Emails:         []string{"ana@exemplo.com.br"},
		Endereco:       &contacts.Address{Logradouro: "Rua A", Numero: "10", Cidade: "Rio"},
	}

	lines := cardLines(c, 80)
	assert.Contains(t, lines, "Data de Nascimento: 12/05/1990")
	assert.Contains(t, lines, "  (11) 98765-4321")
	assert.Contains(t, lines, "  ana@exemplo.com.br")
	assert.Contains(t, lines, "  Rua A, 10, Rio")
}

func TestBirthdayLine(t *testing.T) {
	m := birthday.Match{Contact: contacts.Contact{Nome: "Bruno"}, Age: 34}
	assert.Equal(t, "🎂 Bruno: Fazendo 34 anos hoje!", birthdayLine(m))
}

func TestParseBirthDate(t *testing.T) {
	d, err := parseBirthDate("12/05/1990")
	require.NoError(t, err)
	assert.Equal(t, "1990-05-12", d.String())

	d, err = parseBirthDate("1990-05-12")
	require.NoError(t, err)
	assert.Equal(t, 12, d.Day)

	d, err = parseBirthDate("  ")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = parseBirthDate("31/02/1990")
	assert.Error(t, err)
}

func TestForm_RoundTripsDraft(t *testing.T) {
	draft := session.Draft{
		Nome:      "Ana",
		Telefones: []string{"1", "2"},
		Emails:    []string{""},
		Endereco:  contacts.Address{CEP: "01001-000", Numero: "10"},
	}

	f := newForm("Editar contato", draft)
	assert.Equal(t, []string{"1", "2"}, f.values(fieldTelefone))
	assert.Equal(t, fieldNome, f.focused())

	var out session.Draft
	f.applyTo(&out)
	assert.Equal(t, "Ana", out.Nome)
	assert.Equal(t, []string{"1", "2"}, out.Telefones)
	assert.Equal(t, []string{""}, out.Emails)
	assert.Equal(t, "01001-000", out.Endereco.CEP)
	assert.Equal(t, "10", out.Endereco.Numero)
}

func TestForm_InsertAfterLast(t *testing.T) {
	f := newForm("Novo contato", session.Draft{})
	require.Len(t, f.values(fieldTelefone), 1)

	f.insertAfterLast(fieldTelefone)

	assert.Len(t, f.values(fieldTelefone), 2)
	assert.Equal(t, fieldTelefone, f.focused())
	assert.Equal(t, fieldEmail, f.fields[f.focus+1].kind)
}

func TestForm_SetFocusReportsLeavingField(t *testing.T) {
	f := newForm("Novo contato", session.Draft{})
	f.focusKind(fieldCEP)
	cepIdx := f.focus

	left := f.setFocus(cepIdx + 1)
	assert.Equal(t, fieldCEP, left)
	assert.Equal(t, fieldEstado, f.focused())

	// out of range keeps focus
	f.setFocus(len(f.fields))
	assert.Equal(t, fieldEstado, f.focused())
}

func TestForm_MaskCEP(t *testing.T) {
	f := newForm("Novo contato", session.Draft{})
	f.set(fieldCEP, "01001000")
	f.maskCEP()
	assert.Equal(t, "01001-000", f.value(fieldCEP))
}

func TestBridge_WithoutProgram(t *testing.T) {
	b := NewBridge()
	ctx := context.Background()

	assert.False(t, b.Confirm(ctx, "?"))

	_, err := b.SavePath(ctx, "/tmp/x.json", files.JSONFilters)
	assert.ErrorIs(t, err, files.ErrCancelled)

	_, err = b.OpenPath(ctx, "/tmp", files.JSONFilters)
	assert.ErrorIs(t, err, files.ErrCancelled)

	// no panic
	b.Notify(ui.Info("oi"))
	b.ShowContacts(nil)
}

func TestModel_ConfirmOverlay(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{key: "y", want: true},
		{key: "s", want: true},
		{key: "n", want: false},
		{key: "q", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			reply := make(chan bool, 1)
			var model tea.Model = New(Deps{})

			model, _ = model.Update(confirmRequestMsg{message: "Tem certeza?", reply: reply})
			require.NotNil(t, model.(Model).confirm)

			model, _ = model.Update(key(tt.key))
			assert.Nil(t, model.(Model).confirm)
			assert.Equal(t, tt.want, <-reply)
		})
	}
}

func TestModel_SecondConfirmIsDeclined(t *testing.T) {
	first := make(chan bool, 1)
	second := make(chan bool, 1)
	var model tea.Model = New(Deps{})

	model, _ = model.Update(confirmRequestMsg{message: "a", reply: first})
	model, _ = model.Update(confirmRequestMsg{message: "b", reply: second})

	assert.False(t, <-second)
	assert.Equal(t, "a", model.(Model).confirm.message)
}

func TestModel_PathPrompt(t *testing.T) {
	reply := make(chan pathReply, 1)
	var model tea.Model = New(Deps{})

	model, _ = model.Update(pathRequestMsg{title: "Salvar backup em:", initial: "/tmp/b.json", reply: reply})
	require.NotNil(t, model.(Model).prompt)

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, model.(Model).prompt)

	got := <-reply
	assert.True(t, got.ok)
	assert.Equal(t, "/tmp/b.json", got.path)
}

func TestModel_PathPromptEscCancels(t *testing.T) {
	reply := make(chan pathReply, 1)
	var model tea.Model = New(Deps{})

	model, _ = model.Update(pathRequestMsg{title: "Importar arquivo:", initial: "/tmp/", reply: reply})
	_, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, (<-reply).ok)
}

func TestModel_NoticeExpiresBySequence(t *testing.T) {
	var model tea.Model = New(Deps{})

	model, cmd := model.Update(noticeMsg{notice: ui.Success("Contato deletado com sucesso!")})
	require.NotNil(t, cmd)
	model, _ = model.Update(noticeMsg{notice: ui.Error("Erro ao deletar contato.")})

	// the first notice's timer fires after a newer notice arrived
	model, _ = model.Update(clearNoticeMsg{seq: 1})
	require.NotNil(t, model.(Model).notice)
	assert.Equal(t, "Erro ao deletar contato.", model.(Model).notice.Message)

	model, _ = model.Update(clearNoticeMsg{seq: 2})
	assert.Nil(t, model.(Model).notice)
}

func TestModel_ContactsMessageClampsSelection(t *testing.T) {
	m := New(Deps{})
	m.contacts = []contacts.Contact{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	m.selected = 2

	model, _ := m.Update(contactsMsg{list: []contacts.Contact{{ID: "1", Nome: "Ana"}}})
	assert.Equal(t, 0, model.(Model).selected)
	assert.Len(t, model.(Model).contacts, 1)
}

func TestModel_ViewShowsBirthdays(t *testing.T) {
	var model tea.Model = New(Deps{})
	model, _ = model.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	model, _ = model.Update(contactsMsg{list: []contacts.Contact{{ID: "b", Nome: "Bruno"}}})
	model, _ = model.Update(birthdaysMsg{matches: []birthday.Match{{Contact: contacts.Contact{ID: "b", Nome: "Bruno"}, Age: 34}}})

	view := model.View()
	assert.Contains(t, view, "Fazendo 34 anos hoje!")
	assert.Contains(t, view, "Contatos (1)")
}
