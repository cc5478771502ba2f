package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/pdxmph/agenda-contatos/internal/cep"
	"github.com/pdxmph/agenda-contatos/internal/contacts"
	"github.com/pdxmph/agenda-contatos/internal/session"
)

// fieldKind identifies what a form input edits
type fieldKind int

const (
	fieldNome fieldKind = iota
	fieldNascimento
	fieldTelefone
	fieldEmail
	fieldCEP
	fieldEstado
	fieldCidade
	fieldBairro
	fieldLogradouro
	fieldNumero
)

var fieldLabels = map[fieldKind]string{
	fieldNome:       "Nome:",
	fieldNascimento: "Nascimento:",
	fieldTelefone:   "Telefone:",
	fieldEmail:      "Email:",
	fieldCEP:        "CEP:",
	fieldEstado:     "Estado:",
	fieldCidade:     "Cidade:",
	fieldBairro:     "Bairro:",
	fieldLogradouro: "Logradouro:",
	fieldNumero:     "Número:",
}

type formField struct {
	kind  fieldKind
	input textinput.Model
}

// form mirrors the edit session draft as a list of text inputs. Phones and
// emails get one input per entry.
type form struct {
	title  string
	fields []formField
	focus  int
}

func newInput(kind fieldKind, value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Width = 40
	ti.CharLimit = 200
	switch kind {
	case fieldNascimento:
		ti.Placeholder = "DD/MM/AAAA"
		ti.CharLimit = 10
	case fieldCEP:
		ti.Placeholder = "00000-000"
		ti.CharLimit = 9
	case fieldEstado:
		ti.CharLimit = 2
	}
	ti.SetValue(value)
	return ti
}

func newForm(title string, d session.Draft) *form {
	f := &form{title: title}
	add := func(kind fieldKind, value string) {
		f.fields = append(f.fields, formField{kind: kind, input: newInput(kind, value)})
	}

	add(fieldNome, d.Nome)
	nascimento := ""
	if d.DataNascimento != nil {
		nascimento = d.DataNascimento.Display()
	}
	add(fieldNascimento, nascimento)

	phones := d.Telefones
	if len(phones) == 0 {
		phones = []string{""}
	}
	for _, p := range phones {
		add(fieldTelefone, p)
	}

	emails := d.Emails
	if len(emails) == 0 {
		emails = []string{""}
	}
	for _, e := range emails {
		add(fieldEmail, e)
	}

	add(fieldCEP, d.Endereco.CEP)
	add(fieldEstado, d.Endereco.Estado)
	add(fieldCidade, d.Endereco.Cidade)
	add(fieldBairro, d.Endereco.Bairro)
	add(fieldLogradouro, d.Endereco.Logradouro)
	add(fieldNumero, d.Endereco.Numero)

	f.fields[0].input.Focus()
	return f
}

func (f *form) focused() fieldKind {
	return f.fields[f.focus].kind
}

// setFocus moves focus to index i and returns the kind of the field that lost it
func (f *form) setFocus(i int) fieldKind {
	prev := f.focused()
	if i < 0 || i >= len(f.fields) || i == f.focus {
		return prev
	}
	f.fields[f.focus].input.Blur()
	f.focus = i
	f.fields[f.focus].input.Focus()
	return prev
}

func (f *form) focusKind(kind fieldKind) {
	for i, field := range f.fields {
		if field.kind == kind {
			f.setFocus(i)
			return
		}
	}
}

// insertAfterLast adds an empty input after the last input of kind and focuses it
func (f *form) insertAfterLast(kind fieldKind) {
	at := -1
	for i, field := range f.fields {
		if field.kind == kind {
			at = i
		}
	}
	field := formField{kind: kind, input: newInput(kind, "")}
	f.fields = append(f.fields[:at+1], append([]formField{field}, f.fields[at+1:]...)...)
	if f.focus > at {
		f.focus++
	}
	f.setFocus(at + 1)
}

func (f *form) value(kind fieldKind) string {
	for _, field := range f.fields {
		if field.kind == kind {
			return field.input.Value()
		}
	}
	return ""
}

func (f *form) values(kind fieldKind) []string {
	var out []string
	for _, field := range f.fields {
		if field.kind == kind {
			out = append(out, field.input.Value())
		}
	}
	return out
}

func (f *form) set(kind fieldKind, value string) {
	for i := range f.fields {
		if f.fields[i].kind == kind {
			f.fields[i].input.SetValue(value)
			return
		}
	}
}

// maskCEP keeps the postal code input in 00000-000 shape while typing
func (f *form) maskCEP() {
	for i := range f.fields {
		if f.fields[i].kind == fieldCEP {
			v := f.fields[i].input.Value()
			if masked := cep.Format(v); masked != v {
				f.fields[i].input.SetValue(masked)
				f.fields[i].input.CursorEnd()
			}
			return
		}
	}
}

// loadAddress refreshes the address inputs from the draft
func (f *form) loadAddress(a contacts.Address) {
	f.set(fieldCEP, a.CEP)
	f.set(fieldEstado, a.Estado)
	f.set(fieldCidade, a.Cidade)
	f.set(fieldBairro, a.Bairro)
	f.set(fieldLogradouro, a.Logradouro)
	f.set(fieldNumero, a.Numero)
}

// applyTo copies every input except the birth date into d
func (f *form) applyTo(d *session.Draft) {
	d.Nome = f.value(fieldNome)
	d.Telefones = f.values(fieldTelefone)
	d.Emails = f.values(fieldEmail)
	d.Endereco = contacts.Address{
		CEP:        f.value(fieldCEP),
		Estado:     f.value(fieldEstado),
		Cidade:     f.value(fieldCidade),
		Bairro:     f.value(fieldBairro),
		Logradouro: f.value(fieldLogradouro),
		Numero:     f.value(fieldNumero),
	}
}

// parseBirthDate accepts DD/MM/AAAA or AAAA-MM-DD. Blank means unknown.
func parseBirthDate(s string) (*contacts.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"02/01/2006", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			d := contacts.DateOf(t)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("invalid birth date %q", s)
}
