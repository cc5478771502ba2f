package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/pdxmph/agenda-contatos/internal/birthday"
	"github.com/pdxmph/agenda-contatos/internal/cep"
	"github.com/pdxmph/agenda-contatos/internal/contactlist"
	"github.com/pdxmph/agenda-contatos/internal/contacts"
	"github.com/pdxmph/agenda-contatos/internal/exchange"
	"github.com/pdxmph/agenda-contatos/internal/session"
	"github.com/pdxmph/agenda-contatos/internal/ui"
)

const noticeTTL = 4 * time.Second

const msgBadBirthDate = "Data de nascimento inválida. Use DD/MM/AAAA."

// Deps are the engine components driven by the UI
type Deps struct {
	Controller *contactlist.Controller
	Session    *session.Session
	Exchange   *exchange.Orchestrator
	Logger     *zap.Logger
}

// Model represents the main application state
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	deps   Deps
	logger *zap.Logger

	contacts  []contacts.Contact
	birthdays []birthday.Match
	selected  int
	width     int
	height    int

	// Search mode
	searchMode bool
	search     textinput.Model

	// Edit form
	form        *form
	loadingEdit bool
	submitting  bool
	postal      session.PostalMark
	postalBusy  bool

	// Overlays answering a blocked engine flow
	confirm *confirmRequestMsg
	prompt  *pathPrompt

	notice    *ui.Notice
	noticeSeq int
}

type pathPrompt struct {
	req   pathRequestMsg
	input textinput.Model
}

// Messages produced by commands
type (
	editLoadedMsg   struct{ err error }
	submitDoneMsg   struct{ err error }
	postalDoneMsg   struct {
		res session.PostalResult
		err error
	}
	focusFieldMsg   struct{ kind fieldKind }
	settlePostalMsg struct{}
	clearNoticeMsg  struct{ seq int }
	flowDoneMsg     struct {
		what string
		err  error
	}
)

// Styles
var (
	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	birthdayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Bold(true)

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// New creates a new application model
func New(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	ti := textinput.New()
	ti.Placeholder = "Buscar por nome..."
	ti.Width = 30
	ti.CharLimit = 50
	ti.Prompt = "> "
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		ctx:    ctx,
		cancel: cancel,
		deps:   deps,
		logger: deps.Logger.Named("tui"),
		search: ti,
	}
}

// Init loads the contacts and scans birthdays
func (m Model) Init() tea.Cmd {
	return m.run("load", m.deps.Controller.Reconcile)
}

// run executes fn off the event loop
func (m Model) run(what string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return flowDoneMsg{what: what, err: fn(ctx)}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.width > 0 {
			m.search.Width = m.width/3 - 6
		}
		return m, nil

	case contactsMsg:
		m.contacts = msg.list
		m.selected = m.ensureValidSelection()
		return m, nil

	case birthdaysMsg:
		m.birthdays = msg.matches
		return m, nil

	case noticeMsg:
		return m, m.showNotice(msg.notice)

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case confirmRequestMsg:
		if m.confirm != nil {
			// One question at a time
			msg.reply <- false
			return m, nil
		}
		m.confirm = &msg
		return m, nil

	case pathRequestMsg:
		if m.prompt != nil {
			msg.reply <- pathReply{}
			return m, nil
		}
		input := textinput.New()
		input.Prompt = "> "
		input.Width = 50
		input.CharLimit = 400
		input.SetValue(msg.initial)
		input.CursorEnd()
		input.Focus()
		m.prompt = &pathPrompt{req: msg, input: input}
		return m, textinput.Blink

	case editLoadedMsg:
		m.loadingEdit = false
		if msg.err != nil {
			return m, nil
		}
		snap := m.deps.Session.Snapshot()
		if snap.State == session.Editing {
			m.form = newForm("Editar contato", snap.Draft)
			m.syncPostal(snap)
		}
		return m, textinput.Blink

	case submitDoneMsg:
		m.submitting = false
		if msg.err == nil {
			m.form = nil
		}
		return m, nil

	case postalDoneMsg:
		snap := m.deps.Session.Snapshot()
		m.syncPostal(snap)
		if m.form == nil || msg.res.Outcome != session.PostalFilled {
			return m, nil
		}
		m.form.loadAddress(snap.Draft.Endereco)
		return m, tea.Batch(
			tea.Tick(msg.res.FocusDelay, func(time.Time) tea.Msg { return focusFieldMsg{kind: fieldNumero} }),
			tea.Tick(msg.res.SettleDelay, func(time.Time) tea.Msg { return settlePostalMsg{} }),
		)

	case focusFieldMsg:
		if m.form != nil {
			m.form.focusKind(msg.kind)
		}
		return m, textinput.Blink

	case settlePostalMsg:
		m.deps.Session.SettlePostalCode()
		m.syncPostal(m.deps.Session.Snapshot())
		return m, nil

	case flowDoneMsg:
		if msg.err != nil {
			m.logger.Debug("flow finished with error", zap.String("flow", msg.what), zap.Error(msg.err))
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch {
		case m.confirm != nil:
			return m.updateConfirm(msg)
		case m.prompt != nil:
			return m.updatePrompt(msg)
		case m.form != nil:
			return m.updateForm(msg)
		case m.loadingEdit:
			if msg.String() == "esc" {
				_ = m.deps.Session.Cancel()
				m.loadingEdit = false
			}
			return m, nil
		case m.searchMode:
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		m.confirm.reply <- false
		m.confirm = nil
	}
	if m.prompt != nil {
		m.prompt.req.reply <- pathReply{}
		m.prompt = nil
	}
	m.cancel()
	return m, tea.Quit
}

func (m *Model) showNotice(n ui.Notice) tea.Cmd {
	m.noticeSeq++
	m.notice = &n
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })
}

func (m *Model) syncPostal(snap session.Snapshot) {
	m.postal = snap.Postal
	m.postalBusy = snap.PostalBusy
}

// updateConfirm answers a pending confirmation: y confirms, any other key declines
func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "s", "S":
		m.confirm.reply <- true
	default:
		m.confirm.reply <- false
	}
	m.confirm = nil
	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompt.req.reply <- pathReply{}
		m.prompt = nil
		return m, nil
	case "enter":
		m.prompt.req.reply <- pathReply{path: m.prompt.input.Value(), ok: true}
		m.prompt = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt.input, cmd = m.prompt.input.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchMode = false
		m.search.Blur()
		if m.search.Value() == "" {
			return m, nil
		}
		m.search.Reset()
		return m, m.searchCmd("")
	case "enter":
		m.searchMode = false
		m.search.Blur()
		return m, nil
	case "up":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down":
		if m.selected < len(m.contacts)-1 {
			m.selected++
		}
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if term := m.search.Value(); term != before {
		return m, tea.Batch(cmd, m.searchCmd(term))
	}
	return m, cmd
}

func (m Model) searchCmd(term string) tea.Cmd {
	return m.run("search", func(ctx context.Context) error {
		return m.deps.Controller.OnSearchInput(ctx, term)
	})
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()

	case "j", "down":
		if m.selected < len(m.contacts)-1 {
			m.selected++
		}

	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}

	case "/":
		m.searchMode = true
		m.search.Focus()
		return m, textinput.Blink

	case "esc":
		if m.search.Value() != "" {
			m.search.Reset()
			return m, m.searchCmd("")
		}

	case "r":
		return m, m.run("reload", m.deps.Controller.Reconcile)

	case "n":
		if err := m.deps.Session.StartNew(); err != nil {
			m.logger.Debug("cannot start new contact", zap.Error(err))
			return m, nil
		}
		snap := m.deps.Session.Snapshot()
		m.form = newForm("Novo contato", snap.Draft)
		m.syncPostal(snap)
		return m, textinput.Blink

	case "e", "enter":
		c, ok := m.current()
		if !ok {
			return m, nil
		}
		m.loadingEdit = true
		ctx, id := m.ctx, c.ID
		return m, func() tea.Msg {
			return editLoadedMsg{err: m.deps.Controller.RequestEdit(ctx, id)}
		}

	case "d":
		c, ok := m.current()
		if !ok {
			return m, nil
		}
		return m, m.run("delete", func(ctx context.Context) error {
			_, err := m.deps.Controller.RequestDelete(ctx, c.ID)
			return err
		})

	case "x":
		return m, m.run("export", func(ctx context.Context) error {
			_, err := m.deps.Exchange.Export(ctx)
			return err
		})

	case "i":
		return m, m.run("import", func(ctx context.Context) error {
			_, err := m.deps.Exchange.Import(ctx)
			return err
		})
	}

	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.submitting {
			return m, nil
		}
		if err := m.deps.Session.Cancel(); err != nil {
			m.logger.Debug("cancel edit", zap.Error(err))
		}
		m.form = nil
		return m, nil

	case "ctrl+s":
		if m.submitting {
			return m, nil
		}
		if err := m.syncDraft(); err != nil {
			return m, m.showNotice(ui.Error(msgBadBirthDate))
		}
		m.submitting = true
		ctx := m.ctx
		return m, func() tea.Msg {
			_, err := m.deps.Session.Submit(ctx)
			return submitDoneMsg{err: err}
		}

	case "ctrl+p":
		_ = m.syncDraft()
		if err := m.deps.Session.AddPhoneField(); err == nil {
			m.form.insertAfterLast(fieldTelefone)
		}
		return m, textinput.Blink

	case "ctrl+e":
		_ = m.syncDraft()
		if err := m.deps.Session.AddEmailField(); err == nil {
			m.form.insertAfterLast(fieldEmail)
		}
		return m, textinput.Blink

	case "tab", "down":
		return m.moveFocus(m.form.focus + 1)

	case "shift+tab", "up":
		return m.moveFocus(m.form.focus - 1)
	}

	if m.form.focused() == fieldCEP && m.postalBusy {
		return m, nil
	}

	i := m.form.focus
	var cmd tea.Cmd
	m.form.fields[i].input, cmd = m.form.fields[i].input.Update(msg)
	if m.form.focused() == fieldCEP {
		m.form.maskCEP()
	}
	return m, cmd
}

// moveFocus changes the focused input. Leaving the postal code field triggers the address lookup.
func (m Model) moveFocus(to int) (tea.Model, tea.Cmd) {
	prev := m.form.focus
	left := m.form.setFocus(to)
	if m.form.focus == prev || left != fieldCEP {
		return m, textinput.Blink
	}

	_ = m.syncDraft()
	if len(cep.Digits(m.form.value(fieldCEP))) == cep.Length && !m.postalBusy {
		m.postal = session.MarkPending
	}
	ctx := m.ctx
	return m, tea.Batch(textinput.Blink, func() tea.Msg {
		res, err := m.deps.Session.LookupPostalCode(ctx)
		return postalDoneMsg{res: res, err: err}
	})
}

// syncDraft copies the form into the session draft. It returns an error when
// the birth date cannot be parsed; the rest of the form is copied anyway.
func (m *Model) syncDraft() error {
	date, dateErr := parseBirthDate(m.form.value(fieldNascimento))
	err := m.deps.Session.Edit(func(d *session.Draft) {
		m.form.applyTo(d)
		if dateErr == nil {
			d.DataNascimento = date
		}
	})
	if err != nil {
		m.logger.Debug("syncing draft", zap.Error(err))
	}
	return dateErr
}

func (m Model) current() (contacts.Contact, bool) {
	if len(m.contacts) == 0 || m.selected >= len(m.contacts) {
		return contacts.Contact{}, false
	}
	return m.contacts[m.selected], true
}

func (m Model) ensureValidSelection() int {
	if len(m.contacts) == 0 {
		return 0
	}
	if m.selected >= len(m.contacts) {
		return len(m.contacts) - 1
	}
	if m.selected < 0 {
		return 0
	}
	return m.selected
}

func (m Model) hasBirthday(id contacts.ID) bool {
	for _, b := range m.birthdays {
		if b.Contact.ID == id {
			return true
		}
	}
	return false
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Carregando..."
	}

	switch {
	case m.confirm != nil:
		return m.renderConfirm()
	case m.prompt != nil:
		return m.renderPrompt()
	case m.form != nil:
		return m.renderForm()
	}

	var banner []string
	for _, b := range m.birthdays {
		banner = append(banner, birthdayStyle.Render(birthdayLine(b)))
	}

	paneHeight := m.height - 3 - len(banner)
	listWidth := m.width / 3
	detailWidth := m.width - listWidth - 3

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		borderStyle.Width(listWidth).Height(paneHeight).Render(m.renderList(listWidth, paneHeight)),
		borderStyle.Width(detailWidth).Height(paneHeight).Render(m.renderDetail(detailWidth)),
	)

	parts := append(banner, content, m.renderStatus())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderList renders the contact list
func (m Model) renderList(width, height int) string {
	var lines []string

	if m.searchMode || m.search.Value() != "" {
		lines = append(lines, m.search.View())
		lines = append(lines, "")
		height -= 2
	}

	visibleHeight := height - 2
	startIdx := 0
	if m.selected >= visibleHeight {
		startIdx = m.selected - visibleHeight + 1
	}

	lines = append(lines, fmt.Sprintf("Contatos (%d)", len(m.contacts)))
	lines = append(lines, strings.Repeat("─", max(width-2, 1)))

	if len(m.contacts) == 0 {
		lines = append(lines, labelStyle.Render("Nenhum contato encontrado"))
	}

	for i := startIdx; i < len(m.contacts) && i < startIdx+visibleHeight; i++ {
		c := m.contacts[i]
		line := "  " + c.Nome
		if m.hasBirthday(c.ID) {
			line += " 🎂"
		}
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// renderDetail renders the card of the selected contact
func (m Model) renderDetail(width int) string {
	c, ok := m.current()
	if !ok {
		return "Nenhum contato selecionado"
	}
	return strings.Join(cardLines(c, width), "\n")
}

// renderStatus renders the notice line, or the help line when there is no notice
func (m Model) renderStatus() string {
	if m.notice != nil {
		switch m.notice.Level {
		case ui.LevelSuccess:
			return " " + successStyle.Render(m.notice.Message)
		case ui.LevelError:
			return " " + errorStyle.Render(m.notice.Message)
		default:
			return " " + infoStyle.Render(m.notice.Message)
		}
	}
	if m.loadingEdit {
		return " Carregando contato... • Esc: cancelar"
	}
	if m.searchMode {
		return " Digite para buscar • ↑/↓: navegar • Enter: confirmar • Esc: limpar"
	}
	return " j/k: navegar • /: buscar • n: novo • e: editar • d: deletar • x: exportar • i: importar • r: recarregar • q: sair"
}

func (m Model) renderForm() string {
	var lines []string
	lines = append(lines, m.form.title)
	lines = append(lines, strings.Repeat("─", 50))
	lines = append(lines, "")

	for i, field := range m.form.fields {
		label := fmt.Sprintf("%-13s", fieldLabels[field.kind])
		var value string
		if i == m.form.focus {
			value = field.input.View()
		} else {
			value = field.input.Value()
			if value == "" {
				value = labelStyle.Render(field.input.Placeholder)
			}
		}
		line := label + value
		if field.kind == fieldCEP {
			line += " " + m.renderPostalMark()
		}
		lines = append(lines, line)
	}

	lines = append(lines, "")
	if m.submitting {
		lines = append(lines, pendingStyle.Render("Salvando..."))
	} else if m.notice != nil && m.notice.Level == ui.LevelError {
		lines = append(lines, errorStyle.Render(m.notice.Message))
	} else {
		lines = append(lines, "")
	}
	lines = append(lines, "Tab/↓: próximo • Shift+Tab/↑: anterior • Ctrl+P: +telefone • Ctrl+E: +email")
	lines = append(lines, "Ctrl+S: salvar • Esc: cancelar")

	box := borderStyle.
		Padding(1).
		Width(70).
		Render(strings.Join(lines, "\n"))

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(box)
}

func (m Model) renderPostalMark() string {
	switch m.postal {
	case session.MarkPending:
		return pendingStyle.Render("buscando...")
	case session.MarkValid:
		return successStyle.Render("✓")
	case session.MarkInvalid:
		return errorStyle.Render("✗")
	default:
		return ""
	}
}

// renderConfirm renders a yes/no question
func (m Model) renderConfirm() string {
	width := 60

	lines := wrapText(m.confirm.message, width-8)
	lines = append(lines, "", "(y/n)")

	content := lipgloss.NewStyle().
		Width(width-4).
		Align(lipgloss.Center, lipgloss.Center).
		Render(strings.Join(lines, "\n"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(1).
		Width(width).
		Render(content)

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(box)
}

// renderPrompt renders the file path prompt
func (m Model) renderPrompt() string {
	var filters []string
	for _, f := range m.prompt.req.filters {
		exts := make([]string, len(f.Extensions))
		for i, e := range f.Extensions {
			if e == "*" {
				exts[i] = "*"
			} else {
				exts[i] = "*." + e
			}
		}
		filters = append(filters, fmt.Sprintf("%s (%s)", f.Name, strings.Join(exts, ", ")))
	}

	var lines []string
	lines = append(lines, m.prompt.req.title)
	lines = append(lines, "")
	lines = append(lines, m.prompt.input.View())
	lines = append(lines, "")
	if len(filters) > 0 {
		lines = append(lines, labelStyle.Render(strings.Join(filters, " • ")))
	}
	lines = append(lines, "Enter: confirmar • Esc: cancelar")

	box := borderStyle.
		Padding(1).
		Width(70).
		Render(strings.Join(lines, "\n"))

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(box)
}
