package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/smileynet/addrbook/internal/contact"
)

// Defaults for the timing options.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultHighlight = 1500 * time.Millisecond
	DefaultNotice    = 4 * time.Second
)

// chromeHeight is the number of lines around the table: title, search line,
// blank line, notice and help bar.
const chromeHeight = 5

// Option configures a Model.
type Option func(*Model)

// WithTimeout bounds every backend call.
func WithTimeout(d time.Duration) Option {
	return func(m *Model) { m.timeout = d }
}

// WithHighlightDuration sets how long invalid fields stay highlighted.
func WithHighlightDuration(d time.Duration) Option {
	return func(m *Model) { m.highlightTTL = d }
}

// WithNoticeDuration sets how long a notice stays visible.
func WithNoticeDuration(d time.Duration) Option {
	return func(m *Model) { m.noticeTTL = d }
}

// WithLogger sets the logger. The terminal belongs to the TUI, so callers
// should pass a file-backed or no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Model) {
		if log != nil {
			m.log = log
		}
	}
}

// Model is the root Bubble Tea model of the address book browser.
type Model struct {
	book         AddressBook
	log          *zap.Logger
	timeout      time.Duration
	highlightTTL time.Duration
	noticeTTL    time.Duration

	width  int
	height int

	table     tableState
	search    textinput.Model
	searching bool
	modal     ModalState
	form      formState

	notice    string
	noticeErr bool
	noticeSeq int

	// pending is the sequence number of the save or delete in flight, or 0.
	// It outlives the dialog so a result that arrives after esc is still
	// reported.
	pending int
	opSeq   int

	spinner spinner.Model
	help    help.Model
}

// NewModel returns a Model that loads the contact list on start.
func NewModel(book AddressBook, opts ...Option) Model {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search by name"
	search.Cursor.SetMode(cursor.CursorStatic)

	m := Model{
		book:         book,
		log:          zap.NewNop(),
		timeout:      DefaultTimeout,
		highlightTTL: DefaultHighlight,
		noticeTTL:    DefaultNotice,
		table:        newTableState(),
		search:       search,
		form:         newFormState(),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:         help.New(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the spinner and the first list fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadContacts(m.book, m.timeout))
}

// Modal returns the dialog state and, in edit mode, the contact being edited.
func (m Model) Modal() (ModalState, contact.ID) {
	return m.modal, m.form.target
}

// Searching reports whether the search input has the keyboard.
func (m Model) Searching() bool { return m.searching }

// SearchTerm returns the active filter.
func (m Model) SearchTerm() string { return m.table.term }

// VisibleIDs returns the IDs of the rows shown in the table, in order.
func (m Model) VisibleIDs() []contact.ID { return m.table.VisibleIDs() }

// Notice returns the current notice text, or "".
func (m Model) Notice() string { return m.notice }

// Invalid reports whether field f is currently highlighted.
func (m Model) Invalid(f contact.Field) bool { return m.form.invalid[f] }

// FormValues returns the current contents of the dialog inputs.
func (m Model) FormValues() contact.Form { return m.form.values() }

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.table.SetWidth(msg.Width)
		m.table.table.SetHeight(m.tableHeight())
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ContactsLoadedMsg:
		if msg.Err != nil {
			m.log.Warn("list contacts failed", zap.Error(msg.Err))
			m.table = m.table.failed(msg.Err)
			return m, nil
		}
		m.log.Debug("contacts loaded", zap.Int("count", len(msg.Contacts)))
		m.table = m.table.render(msg.Contacts)
		return m, nil

	case ContactFoundMsg:
		return m.applyFound(msg)

	case SavedMsg:
		return m.applySaved(msg)

	case DeletedMsg:
		return m.applyDeleted(msg)

	case clearHighlightMsg:
		if msg.seq == m.form.highlightSeq {
			m.form.invalid = nil
		}
		return m, nil

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey routes keys to the dialog, the search input or the table.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	switch {
	case m.modal != ModalClosed:
		return m.handleModalKey(msg)
	case m.searching:
		return m.handleSearchKey(msg)
	default:
		return m.handleTableKey(msg)
	}
}

func (m Model) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := TableKeyMap()
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Add):
		return m.openCreate()

	case key.Matches(msg, keys.Edit):
		id, ok := m.table.SelectedID()
		if !ok {
			return m, nil
		}
		return m.openEdit(id)

	case key.Matches(msg, keys.Search):
		m.searching = true
		m.search.SetValue(m.table.term)
		m.search.CursorEnd()
		return m, m.search.Focus()

	case key.Matches(msg, keys.Refresh):
		return m.refresh()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := SearchKeyMap()
	switch {
	case key.Matches(msg, keys.Done):
		m.searching = false
		m.search.Blur()
		return m, nil

	case key.Matches(msg, keys.Clear):
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.table = m.table.filter("")
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.table.term {
		m.table = m.table.filter(m.search.Value())
	}
	return m, cmd
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := ModalKeyMap(m.modal)
	switch {
	case key.Matches(msg, keys.Close):
		return m.closeModal(), nil

	case key.Matches(msg, keys.Next):
		var cmd tea.Cmd
		m.form, cmd = m.form.focusField(m.form.focus + 1)
		return m, cmd

	case key.Matches(msg, keys.Prev):
		var cmd tea.Cmd
		m.form, cmd = m.form.focusField(m.form.focus - 1)
		return m, cmd

	case key.Matches(msg, keys.Save, keys.Update):
		return m.submit()

	case key.Matches(msg, keys.Delete):
		return m.remove()
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, cmd
}

// refresh marks the table as loading and fetches the whole collection again.
func (m Model) refresh() (Model, tea.Cmd) {
	m.table.loading = true
	m.table.err = nil
	return m, tea.Batch(m.spinner.Tick, loadContacts(m.book, m.timeout))
}

func (m Model) openCreate() (tea.Model, tea.Cmd) {
	m.log.Debug("open dialog", zap.Stringer("mode", ModalCreate))
	m.modal = ModalCreate
	m.form = m.form.reset()
	var cmd tea.Cmd
	m.form, cmd = m.form.focusField(0)
	return m, cmd
}

// openEdit opens the dialog in a loading state and fetches a fresh copy of
// the contact to pre-fill it.
func (m Model) openEdit(id contact.ID) (tea.Model, tea.Cmd) {
	m.log.Debug("open dialog", zap.Stringer("mode", ModalEdit), zap.Stringer("id", id))
	m.modal = ModalEdit
	m.form = m.form.reset()
	m.form.target = id
	m.form.loading = true
	return m, tea.Batch(m.spinner.Tick, findContact(m.book, id, m.timeout))
}

func (m Model) closeModal() Model {
	m.modal = ModalClosed
	m.form = m.form.reset()
	return m
}

// Pending reports whether a save or delete is in flight.
func (m Model) Pending() bool { return m.pending != 0 }

// submit validates the form and, when every field passes, sends it. A
// submit while another request is in flight is ignored.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.form.loading || m.pending != 0 {
		return m, nil
	}
	var id contact.ID
	if m.modal == ModalEdit {
		id = m.form.target
	}
	res := contact.Validate(m.form.values(), id)
	if !res.Valid() {
		m.log.Debug("form invalid", zap.Int("fields", len(res.Invalid)))
		m.form = m.form.highlight(res.Invalid)
		return m, clearHighlightAfter(m.highlightTTL, m.form.highlightSeq)
	}
	m.form.invalid = nil
	m = m.startOp()
	return m, tea.Batch(m.spinner.Tick, saveContact(m.book, res.Contact, m.pending, m.timeout))
}

func (m Model) remove() (tea.Model, tea.Cmd) {
	if m.modal != ModalEdit || m.form.loading || m.pending != 0 {
		return m, nil
	}
	m = m.startOp()
	return m, tea.Batch(m.spinner.Tick, deleteContact(m.book, m.form.target, m.pending, m.timeout))
}

// startOp marks a new request as in flight for the open dialog.
func (m Model) startOp() Model {
	m.opSeq++
	m.pending = m.opSeq
	m.form.submitting = true
	return m
}

// finishOp clears the in-flight request and reports whether the open dialog
// is the one that sent it. After esc, or once the dialog was reopened, it is
// not.
func (m Model) finishOp() (Model, bool) {
	owned := m.modal != ModalClosed && m.form.submitting
	m.pending = 0
	m.form.submitting = false
	return m, owned
}

func (m Model) applyFound(msg ContactFoundMsg) (tea.Model, tea.Cmd) {
	if m.modal != ModalEdit || !m.form.loading || msg.ID != m.form.target {
		return m, nil
	}
	switch {
	case msg.Err != nil:
		m.log.Warn("load contact failed", zap.Stringer("id", msg.ID), zap.Error(msg.Err))
		m = m.closeModal()
		return m.showNotice("Could not load contact: "+msg.Err.Error(), true)

	case !msg.Found:
		m = m.closeModal()
		var notice, refresh tea.Cmd
		m, notice = m.showNotice("That contact no longer exists.", true)
		m, refresh = m.refresh()
		return m, tea.Batch(notice, refresh)
	}
	m.form.loading = false
	m.form = m.form.fill(msg.Contact)
	var cmd tea.Cmd
	m.form, cmd = m.form.focusField(0)
	return m, cmd
}

func (m Model) applySaved(msg SavedMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.pending {
		return m, nil
	}
	m, owned := m.finishOp()
	if msg.Err != nil {
		m.log.Warn("save contact failed", zap.Bool("create", msg.Created), zap.Error(msg.Err))
		return m.showNotice("Save failed: "+msg.Err.Error(), true)
	}
	if owned {
		m = m.closeModal()
	}
	verb := "Updated"
	if msg.Created {
		verb = "Added"
	}
	m, notice := m.showNotice(fmt.Sprintf("%s %s.", verb, msg.Contact.FullName()), false)
	m, refresh := m.refresh()
	return m, tea.Batch(notice, refresh)
}

func (m Model) applyDeleted(msg DeletedMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.pending {
		return m, nil
	}
	m, owned := m.finishOp()
	if msg.Err != nil {
		m.log.Warn("delete contact failed", zap.Stringer("id", msg.ID), zap.Error(msg.Err))
		return m.showNotice("Delete failed: "+msg.Err.Error(), true)
	}
	if owned {
		m = m.closeModal()
	}
	m, notice := m.showNotice("Contact deleted.", false)
	m, refresh := m.refresh()
	return m, tea.Batch(notice, refresh)
}

// showNotice replaces the current notice and schedules its expiry.
func (m Model) showNotice(text string, isErr bool) (Model, tea.Cmd) {
	m.noticeSeq++
	m.notice = text
	m.noticeErr = isErr
	return m, clearNoticeAfter(m.noticeTTL, m.noticeSeq)
}

func (m Model) tableHeight() int {
	h := m.height - chromeHeight
	if h < 3 {
		return 3
	}
	return h
}

// View renders the title, search line, table or dialog, notice and help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Address Book"))
	if !m.table.loading && m.table.err == nil {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d of %d", len(m.table.visible), len(m.table.rows))))
	}
	b.WriteString("\n")

	switch {
	case m.searching:
		b.WriteString(m.search.View())
	case m.table.term != "":
		b.WriteString(mutedStyle.Render("filter: " + m.table.term))
	}
	b.WriteString("\n\n")

	if m.modal != ModalClosed {
		b.WriteString(m.form.View(m.modal, m.spinner.View()))
	} else {
		b.WriteString(m.table.View(m.spinner.View()))
	}
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(NoticeStyle(m.noticeErr).Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(HelpBindings(m.modal, m.searching)))
	return b.String()
}
