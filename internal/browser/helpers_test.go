package browser

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/addrbook/internal/contact"
)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

// cmdTimeout bounds how long execCmd waits for one command. Timed commands
// that outlive it (spinner frames, long highlight or notice timers) are
// dropped.
const cmdTimeout = 200 * time.Millisecond

// execCmd runs cmd, expanding batches, and returns the resulting messages.
// Spinner ticks are skipped to avoid recursion.
func execCmd(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(cmdTimeout):
		return nil
	}

	switch msg := msg.(type) {
	case nil, spinner.TickMsg:
		return nil
	case tea.BatchMsg:
		var msgs []tea.Msg
		for _, c := range msg {
			msgs = append(msgs, execCmd(t, c)...)
		}
		return msgs
	default:
		return []tea.Msg{msg}
	}
}

// update sends msg to m and returns the concrete model.
func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return updated, cmd
}

// settle runs cmd and feeds every resulting message back into m until no
// further messages are produced.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := execCmd(t, cmd)
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("settle: too many messages")
		}
		msg := queue[0]
		queue = queue[1:]
		var next tea.Cmd
		m, next = update(t, m, msg)
		queue = append(queue, execCmd(t, next)...)
	}
	return m
}

// press sends msg and settles the resulting commands.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	m, cmd := update(t, m, msg)
	return settle(t, m, cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyOf(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

// fillForm types values into the dialog inputs in tab order.
func fillForm(t *testing.T, m Model, values ...string) Model {
	t.Helper()
	for i, v := range values {
		if v != "" {
			m = press(t, m, runes(v))
		}
		if i < len(values)-1 {
			m = press(t, m, keyOf(tea.KeyTab))
		}
	}
	return m
}

// newTestModel returns a sized model over book with its first list applied.
func newTestModel(t *testing.T, book *fakeBook, opts ...Option) Model {
	t.Helper()
	m := NewModel(book, opts...)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return settle(t, m, m.Init())
}

// fakeBook is an in-memory AddressBook that counts calls.
type fakeBook struct {
	mu       sync.Mutex
	contacts []contact.Contact
	nextID   int

	listErr   error
	saveErr   error
	deleteErr error

	lists, adds, updates, deletes int
}

func newFakeBook(contacts ...contact.Contact) *fakeBook {
	return &fakeBook{contacts: contacts, nextID: 100}
}

func (b *fakeBook) Addresses(context.Context) ([]contact.Contact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists++
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]contact.Contact(nil), b.contacts...), nil
}

func (b *fakeBook) Add(_ context.Context, c contact.Contact) (contact.Contact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adds++
	if b.saveErr != nil {
		return contact.Contact{}, b.saveErr
	}
	b.nextID++
	c.ID = contact.ID(strconv.Itoa(b.nextID))
	b.contacts = append(b.contacts, c)
	return c, nil
}

func (b *fakeBook) Update(_ context.Context, c contact.Contact) (contact.Contact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates++
	if b.saveErr != nil {
		return contact.Contact{}, b.saveErr
	}
	for i := range b.contacts {
		if b.contacts[i].ID == c.ID {
			b.contacts[i] = c
			return c, nil
		}
	}
	b.contacts = append(b.contacts, c)
	return c, nil
}

func (b *fakeBook) Delete(_ context.Context, id contact.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes++
	if b.deleteErr != nil {
		return b.deleteErr
	}
	for i := range b.contacts {
		if b.contacts[i].ID == id {
			b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
			return nil
		}
	}
	return nil
}

func (b *fakeBook) Find(ctx context.Context, id contact.ID) (contact.Contact, bool, error) {
	all, err := b.Addresses(ctx)
	if err != nil {
		return contact.Contact{}, false, err
	}
	for _, c := range all {
		if c.ID == id {
			return c, true, nil
		}
	}
	return contact.Contact{}, false, nil
}

func (b *fakeBook) counts() (lists, adds, updates, deletes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lists, b.adds, b.updates, b.deletes
}

func (b *fakeBook) remove(id contact.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.contacts {
		if b.contacts[i].ID == id {
			b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
			return
		}
	}
}

var errBackend = errors.New("backend unavailable")

func sampleContacts() []contact.Contact {
	return []contact.Contact{
		{ID: "1", FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Phone: "555-123-4567", City: "Springfield", Labels: "work"},
		{ID: "2", FirstName: "John", LastName: "Smith", Email: "john@example.com", Phone: "(555) 987-6543", City: "Shelbyville"},
		{ID: "3", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "555.000.1815", City: "London", Labels: "math"},
	}
}
