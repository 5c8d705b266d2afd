package browser

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/smileynet/addrbook/internal/contact"
)

func TestModel_View_BeforeResize(t *testing.T) {
	m := NewModel(newFakeBook())

	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() = %q, want %q", got, "Initializing...")
	}
}

func TestModel_Init_RendersAllContacts(t *testing.T) {
	// Given: a backend with three contacts
	book := newFakeBook(sampleContacts()...)

	// When: the model starts
	m := newTestModel(t, book)

	// Then: every contact is rendered in backend order, numbered from 1
	want := []contact.ID{"1", "2", "3"}
	if got := m.VisibleIDs(); !slices.Equal(got, want) {
		t.Errorf("VisibleIDs() = %v, want %v", got, want)
	}
	view := m.View()
	for _, s := range []string{"Jane Doe", "John Smith", "Ada Lovelace", "Springfield", "3 of 3"} {
		if !containsPlainText(view, s) {
			t.Errorf("view missing %q", s)
		}
	}
}

func TestModel_Init_EmptyBook(t *testing.T) {
	m := newTestModel(t, newFakeBook())

	if !containsPlainText(m.View(), "No contacts yet") {
		t.Errorf("view should show the empty state, got:\n%s", stripANSI(m.View()))
	}
}

func TestModel_ListFailure_ShowsRetryHint(t *testing.T) {
	// Given: a backend whose list fails
	book := newFakeBook(sampleContacts()...)
	book.listErr = errBackend

	m := newTestModel(t, book)

	// Then: the error replaces the table with a retry hint
	view := m.View()
	if !containsPlainText(view, "backend unavailable") || !containsPlainText(view, "press r to retry") {
		t.Fatalf("view should show the error and retry hint, got:\n%s", stripANSI(view))
	}

	// When: the backend recovers and the user presses r
	book.mu.Lock()
	book.listErr = nil
	book.mu.Unlock()
	m = press(t, m, runes("r"))

	// Then: the rows appear
	if got := len(m.VisibleIDs()); got != 3 {
		t.Errorf("visible rows = %d, want 3", got)
	}
}

func TestModel_Create_InvalidFirstName_SendsNothing(t *testing.T) {
	// Given: the create dialog with "John1" as first name and every other field valid
	book := newFakeBook()
	m := newTestModel(t, book)
	m = press(t, m, runes("a"))
	m = fillForm(t, m, "John1", "Doe", "john@example.com", "555-123-4567", "Springfield", "")

	// When: the user saves
	m, cmd := update(t, m, keyOf(tea.KeyCtrlS))

	// Then: only the first name is highlighted and no request is made
	if !m.Invalid(contact.FieldFirstName) {
		t.Error("first name should be highlighted")
	}
	for _, f := range []contact.Field{contact.FieldLastName, contact.FieldEmail, contact.FieldPhone, contact.FieldCity} {
		if m.Invalid(f) {
			t.Errorf("%s should not be highlighted", f)
		}
	}
	if state, _ := m.Modal(); state != ModalCreate {
		t.Errorf("modal = %v, want create", state)
	}
	if _, adds, updates, _ := book.counts(); adds != 0 || updates != 0 {
		t.Errorf("adds=%d updates=%d, want no save calls", adds, updates)
	}
	if cmd == nil {
		t.Fatal("expected a highlight timer command")
	}
}

func TestModel_Create_HighlightClearsAfterTimer(t *testing.T) {
	// Given: an invalid form and a short highlight duration
	m := newTestModel(t, newFakeBook(), WithHighlightDuration(time.Millisecond))
	m = press(t, m, runes("a"))
	m, cmd := update(t, m, keyOf(tea.KeyCtrlS))
	if !m.Invalid(contact.FieldEmail) {
		t.Fatal("empty email should be highlighted")
	}

	// When: the timer fires
	m = settle(t, m, cmd)

	// Then: the highlight is gone but the dialog and its data stay
	for _, f := range contact.ValidatedFields {
		if m.Invalid(f) {
			t.Errorf("%s still highlighted", f)
		}
	}
	if state, _ := m.Modal(); state != ModalCreate {
		t.Errorf("modal = %v, want create", state)
	}
}

func TestModel_Create_StaleHighlightTimerIgnored(t *testing.T) {
	m := newTestModel(t, newFakeBook())
	m = press(t, m, runes("a"))
	m, _ = update(t, m, keyOf(tea.KeyCtrlS))
	first := m.form.highlightSeq
	m, _ = update(t, m, keyOf(tea.KeyCtrlS))

	// The first round's timer must not clear the second round's highlight.
	m, _ = update(t, m, clearHighlightMsg{seq: first})

	if !m.Invalid(contact.FieldFirstName) {
		t.Error("highlight from the latest round was cleared by a stale timer")
	}
}

func TestModel_Create_ValidForm_AddsAndCloses(t *testing.T) {
	// Given: the create dialog filled with a valid Jane Doe
	book := newFakeBook()
	m := newTestModel(t, book)
	m = press(t, m, runes("a"))
	m = fillForm(t, m, "Jane", "Doe", "jane@example.com", "555-123-4567", "Springfield", "friends")

	// When: the user saves
	m = press(t, m, keyOf(tea.KeyCtrlS))

	// Then: exactly one create call, the dialog closes and the table shows Jane
	if _, adds, updates, _ := book.counts(); adds != 1 || updates != 0 {
		t.Errorf("adds=%d updates=%d, want 1 and 0", adds, updates)
	}
	if state, _ := m.Modal(); state != ModalClosed {
		t.Errorf("modal = %v, want closed", state)
	}
	if got := len(m.VisibleIDs()); got != 1 {
		t.Fatalf("visible rows = %d, want 1", got)
	}
	view := m.View()
	for _, s := range []string{"Jane Doe", "555-123-4567", "friends", "Added Jane Doe."} {
		if !containsPlainText(view, s) {
			t.Errorf("view missing %q", s)
		}
	}
}

func TestModel_Create_SecondSubmitWhilePendingIgnored(t *testing.T) {
	book := newFakeBook()
	m := newTestModel(t, book)
	m = press(t, m, runes("a"))
	m = fillForm(t, m, "Jane", "Doe", "jane@example.com", "555-123-4567", "Springfield", "")

	// When: save is pressed twice before the first call returns
	m, first := update(t, m, keyOf(tea.KeyCtrlS))
	m, second := update(t, m, keyOf(tea.KeyCtrlS))

	// Then: only the first press produced a request
	if second != nil {
		t.Error("second submit should be ignored while the first is in flight")
	}
	m = settle(t, m, first)
	if _, adds, _, _ := book.counts(); adds != 1 {
		t.Errorf("adds = %d, want 1", adds)
	}
}

func TestModel_Create_SaveFailure_KeepsDialogOpen(t *testing.T) {
	// Given: a backend that rejects saves
	book := newFakeBook()
	book.saveErr = errBackend
	m := newTestModel(t, book)
	m = press(t, m, runes("a"))
	m = fillForm(t, m, "Jane", "Doe", "jane@example.com", "555-123-4567", "Springfield", "")

	// When: the user saves
	m = press(t, m, keyOf(tea.KeyCtrlS))

	// Then: the dialog stays open with the entered data and a notice is shown
	if state, _ := m.Modal(); state != ModalCreate {
		t.Errorf("modal = %v, want create", state)
	}
	if got := m.FormValues().FirstName; got != "Jane" {
		t.Errorf("first name = %q, want Jane", got)
	}
	if !strings.Contains(m.Notice(), "Save failed") {
		t.Errorf("notice = %q, want a save failure", m.Notice())
	}

	// And: the user can retry once the backend recovers
	book.mu.Lock()
	book.saveErr = nil
	book.mu.Unlock()
	m = press(t, m, keyOf(tea.KeyCtrlS))
	if state, _ := m.Modal(); state != ModalClosed {
		t.Errorf("modal = %v after retry, want closed", state)
	}
}

func TestModel_Esc_DuringFailingSave_StillReportsFailure(t *testing.T) {
	// Given: a save in flight against a failing backend
	book := newFakeBook()
	book.saveErr = errBackend
	m := newTestModel(t, book)
	m = press(t, m, runes("a"))
	m = fillForm(t, m, "Jane", "Doe", "jane@example.com", "555-123-4567", "Springfield", "")
	m, save := update(t, m, keyOf(tea.KeyCtrlS))

	// When: the dialog is closed before the result arrives
	m = press(t, m, keyOf(tea.KeyEsc))
	m = settle(t, m, save)

	// Then: the failure is still shown and nothing is left in flight
	if !strings.Contains(m.Notice(), "Save failed") {
		t.Errorf("notice = %q, want a save failure", m.Notice())
	}
	if m.Pending() {
		t.Error("no request should be pending after the result arrived")
	}
}

func TestModel_Esc_DuringSave_ResultReloadsTable(t *testing.T) {
	// Given: a create in flight and the dialog closed with esc
	book := newFakeBook()
	m := newTestModel(t, book)
	m = press(t, m, runes("a"))
	m = fillForm(t, m, "Jane", "Doe", "jane@example.com", "555-123-4567", "Springfield", "")
	m, save := update(t, m, keyOf(tea.KeyCtrlS))
	m = press(t, m, keyOf(tea.KeyEsc))

	// And: the dialog is reopened and submitted while the first save is pending
	m = press(t, m, runes("a"))
	m = fillForm(t, m, "Ada", "Lovelace", "ada@example.com", "555-000-1815", "London", "")
	m, second := update(t, m, keyOf(tea.KeyCtrlS))
	if second != nil {
		t.Error("submit should be ignored while another request is pending")
	}
	lists, _, _, _ := book.counts()

	// When: the first result arrives
	m = settle(t, m, save)

	// Then: the table is reloaded with the new contact
	if after, _, _, _ := book.counts(); after != lists+1 {
		t.Errorf("list calls = %d, want %d", after, lists+1)
	}
	if got := len(m.VisibleIDs()); got != 1 {
		t.Errorf("visible rows = %d, want 1", got)
	}
	if m.Notice() != "Added Jane Doe." {
		t.Errorf("notice = %q", m.Notice())
	}

	// And: the reopened dialog keeps its data and can now be submitted
	if state, _ := m.Modal(); state != ModalCreate {
		t.Fatalf("modal = %v, want the reopened create dialog", state)
	}
	if got := m.FormValues().FirstName; got != "Ada" {
		t.Errorf("first name = %q, want Ada", got)
	}
	m = press(t, m, keyOf(tea.KeyCtrlS))
	if _, adds, _, _ := book.counts(); adds != 2 {
		t.Errorf("adds = %d, want 2", adds)
	}
	if got := len(m.VisibleIDs()); got != 2 {
		t.Errorf("visible rows = %d, want 2", got)
	}
}

func TestModel_Esc_DuringDelete_ResultReloadsTable(t *testing.T) {
	book := newFakeBook(sampleContacts()...)
	m := newTestModel(t, book)
	m = press(t, m, keyOf(tea.KeyEnter))
	m, del := update(t, m, keyOf(tea.KeyCtrlD))
	m = press(t, m, keyOf(tea.KeyEsc))

	m = settle(t, m, del)

	want := []contact.ID{"2", "3"}
	if got := m.VisibleIDs(); !slices.Equal(got, want) {
		t.Errorf("VisibleIDs() = %v, want %v", got, want)
	}
	if m.Notice() != "Contact deleted." {
		t.Errorf("notice = %q", m.Notice())
	}
}

func TestModel_Esc_DiscardsDialog(t *testing.T) {
	book := newFakeBook()
	m := newTestModel(t, book)
	m = press(t, m, runes("a"))
	m = fillForm(t, m, "Jane")

	m = press(t, m, keyOf(tea.KeyEsc))

	if state, _ := m.Modal(); state != ModalClosed {
		t.Errorf("modal = %v, want closed", state)
	}
	m = press(t, m, runes("a"))
	if got := m.FormValues().FirstName; got != "" {
		t.Errorf("reopened dialog first name = %q, want empty", got)
	}
	if _, adds, _, _ := book.counts(); adds != 0 {
		t.Errorf("adds = %d, want 0", adds)
	}
}

func TestModel_Edit_PrefillsFromFreshList(t *testing.T) {
	// Given: the cursor on the second row
	book := newFakeBook(sampleContacts()...)
	m := newTestModel(t, book)
	m = press(t, m, keyOf(tea.KeyDown))

	// When: the user opens it
	m, cmd := update(t, m, keyOf(tea.KeyEnter))

	// Then: the dialog is loading until the fetch returns
	state, id := m.Modal()
	if state != ModalEdit || id != "2" {
		t.Fatalf("Modal() = %v, %q, want edit, 2", state, id)
	}
	if !containsPlainText(m.View(), "Loading contact") {
		t.Error("dialog should show a loading state before pre-fill")
	}
	m = settle(t, m, cmd)

	got := m.FormValues()
	if got.FirstName != "John" || got.LastName != "Smith" || got.City != "Shelbyville" {
		t.Errorf("form = %+v, want John Smith from Shelbyville", got)
	}
	view := m.View()
	if !containsPlainText(view, "Update") || !containsPlainText(view, "Delete") {
		t.Error("edit dialog should offer Update and Delete")
	}
}

func TestModel_Edit_UpdateSendsTargetID(t *testing.T) {
	book := newFakeBook(sampleContacts()...)
	m := newTestModel(t, book)
	m = press(t, m, keyOf(tea.KeyEnter))

	// When: the city is extended and saved
	for range 4 {
		m = press(t, m, keyOf(tea.KeyTab))
	}
	m = press(t, m, runes(" East"))
	m = press(t, m, keyOf(tea.KeyCtrlS))

	// Then: one update, no create, and the row shows the new city
	if _, adds, updates, _ := book.counts(); adds != 0 || updates != 1 {
		t.Errorf("adds=%d updates=%d, want 0 and 1", adds, updates)
	}
	if state, _ := m.Modal(); state != ModalClosed {
		t.Errorf("modal = %v, want closed", state)
	}
	book.mu.Lock()
	city := book.contacts[0].City
	book.mu.Unlock()
	if city != "Springfield East" {
		t.Errorf("saved city = %q, want %q", city, "Springfield East")
	}
	if got := len(m.VisibleIDs()); got != 3 {
		t.Errorf("visible rows = %d, want 3", got)
	}
}

func TestModel_Edit_VanishedContact(t *testing.T) {
	// Given: a row whose contact is deleted elsewhere before the dialog loads
	book := newFakeBook(sampleContacts()...)
	m := newTestModel(t, book)
	m, cmd := update(t, m, keyOf(tea.KeyEnter))
	book.remove("1")

	// When: the pre-fill fetch returns
	m = settle(t, m, cmd)

	// Then: a notice explains, the dialog closes and the table reloads
	if state, _ := m.Modal(); state != ModalClosed {
		t.Errorf("modal = %v, want closed", state)
	}
	if !strings.Contains(m.Notice(), "no longer exists") {
		t.Errorf("notice = %q", m.Notice())
	}
	if got := len(m.VisibleIDs()); got != 2 {
		t.Errorf("visible rows = %d, want 2", got)
	}
}

func TestModel_Edit_Delete(t *testing.T) {
	book := newFakeBook(sampleContacts()...)
	m := newTestModel(t, book)
	m = press(t, m, keyOf(tea.KeyEnter))

	m = press(t, m, keyOf(tea.KeyCtrlD))

	if _, _, _, deletes := book.counts(); deletes != 1 {
		t.Errorf("deletes = %d, want 1", deletes)
	}
	if state, _ := m.Modal(); state != ModalClosed {
		t.Errorf("modal = %v, want closed", state)
	}
	want := []contact.ID{"2", "3"}
	if got := m.VisibleIDs(); !slices.Equal(got, want) {
		t.Errorf("VisibleIDs() = %v, want %v", got, want)
	}
}

func TestModel_Edit_DeleteFailure_KeepsDialogOpen(t *testing.T) {
	book := newFakeBook(sampleContacts()...)
	book.deleteErr = errBackend
	m := newTestModel(t, book)
	m = press(t, m, keyOf(tea.KeyEnter))

	m = press(t, m, keyOf(tea.KeyCtrlD))

	if state, id := m.Modal(); state != ModalEdit || id != "1" {
		t.Errorf("Modal() = %v, %q, want edit, 1", state, id)
	}
	if !strings.Contains(m.Notice(), "Delete failed") {
		t.Errorf("notice = %q", m.Notice())
	}
	if got := m.FormValues().FirstName; got != "Jane" {
		t.Errorf("first name = %q, want Jane", got)
	}
}

func TestModel_Create_CtrlDDoesNotDelete(t *testing.T) {
	book := newFakeBook(sampleContacts()...)
	m := newTestModel(t, book)
	m = press(t, m, runes("a"))

	m = press(t, m, keyOf(tea.KeyCtrlD))

	if _, _, _, deletes := book.counts(); deletes != 0 {
		t.Errorf("deletes = %d, want 0", deletes)
	}
}

func TestModel_Search_FiltersRenderedRows(t *testing.T) {
	tests := []struct {
		name string
		term string
		want []contact.ID
	}{
		{"empty shows all", "", []contact.ID{"1", "2", "3"}},
		{"first name", "jane", []contact.ID{"1"}},
		{"upper case term", "DOE", []contact.ID{"1"}},
		{"spans first and last", "n s", []contact.ID{"2"}},
		{"shared substring", "a", []contact.ID{"1", "3"}},
		{"no match", "zz", []contact.ID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a loaded table with search focus
			book := newFakeBook(sampleContacts()...)
			m := newTestModel(t, book)
			m = press(t, m, runes("/"))
			if !m.Searching() {
				t.Fatal("/ should focus the search input")
			}
			lists, _, _, _ := book.counts()

			// When: the term is typed
			if tt.term != "" {
				m = press(t, m, runes(tt.term))
			}

			// Then: exactly the matching rows are visible and nothing is fetched
			if got := m.VisibleIDs(); !slices.Equal(got, tt.want) {
				t.Errorf("VisibleIDs() = %v, want %v", got, tt.want)
			}
			if after, _, _, _ := book.counts(); after != lists {
				t.Errorf("search issued %d list calls", after-lists)
			}
		})
	}
}

func TestModel_Search_EnterKeepsFilterEscClears(t *testing.T) {
	m := newTestModel(t, newFakeBook(sampleContacts()...))
	m = press(t, m, runes("/"))
	m = press(t, m, runes("ada"))

	m = press(t, m, keyOf(tea.KeyEnter))
	if m.Searching() || m.SearchTerm() != "ada" || len(m.VisibleIDs()) != 1 {
		t.Fatalf("after enter: searching=%v term=%q visible=%v", m.Searching(), m.SearchTerm(), m.VisibleIDs())
	}
	if !containsPlainText(m.View(), "filter: ada") {
		t.Error("kept filter should be shown")
	}

	// Keys typed in table focus are commands again, not search text.
	m = press(t, m, runes("/"))
	m = press(t, m, keyOf(tea.KeyEsc))
	if m.Searching() || m.SearchTerm() != "" || len(m.VisibleIDs()) != 3 {
		t.Errorf("after esc: searching=%v term=%q visible=%v", m.Searching(), m.SearchTerm(), m.VisibleIDs())
	}
}

func TestModel_Search_SurvivesReload(t *testing.T) {
	book := newFakeBook(sampleContacts()...)
	m := newTestModel(t, book)
	m = press(t, m, runes("/"))
	m = press(t, m, runes("smith"))
	m = press(t, m, keyOf(tea.KeyEnter))

	m = press(t, m, runes("r"))

	want := []contact.ID{"2"}
	if got := m.VisibleIDs(); !slices.Equal(got, want) {
		t.Errorf("VisibleIDs() = %v, want %v", got, want)
	}
	// Row numbers are positions in the full list.
	rows := m.table.table.Rows()
	if len(rows) != 1 || rows[0][0] != "2" {
		t.Errorf("rows = %v, want John Smith numbered 2", rows)
	}
}

func TestModel_Notice_ExpiresOnlyForLatest(t *testing.T) {
	m := newTestModel(t, newFakeBook())
	m, _ = m.showNotice("first", false)
	stale := m.noticeSeq
	m, _ = m.showNotice("second", false)

	m, _ = update(t, m, clearNoticeMsg{seq: stale})
	if m.Notice() != "second" {
		t.Errorf("Notice() = %q, want second", m.Notice())
	}
	m, _ = update(t, m, clearNoticeMsg{seq: m.noticeSeq})
	if m.Notice() != "" {
		t.Errorf("Notice() = %q, want empty", m.Notice())
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, newFakeBook())

	_, cmd := update(t, m, runes("q"))

	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestModel_QuitKeyTypedInDialog(t *testing.T) {
	m := newTestModel(t, newFakeBook())
	m = press(t, m, runes("a"))

	m, cmd := update(t, m, runes("q"))

	if cmd != nil {
		if _, ok := cmd().(tea.QuitMsg); ok {
			t.Fatal("q inside the dialog should be typed, not quit")
		}
	}
	if got := m.FormValues().FirstName; got != "q" {
		t.Errorf("first name = %q, want q", got)
	}
}

// TestModel_Teatest_CreateFlow drives the program end to end: add a contact
// through the dialog and quit.
func TestModel_Teatest_CreateFlow(t *testing.T) {
	book := newFakeBook()
	tm := teatest.NewTestModel(t, NewModel(book), teatest.WithInitialTermSize(100, 30))

	tm.Send(runes("a"))
	for i, v := range []string{"Jane", "Doe", "jane@example.com", "555-123-4567", "Springfield"} {
		if i > 0 {
			tm.Send(keyOf(tea.KeyTab))
		}
		tm.Send(runes(v))
	}
	tm.Send(keyOf(tea.KeyCtrlS))

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("1 of 1"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(runes("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final := tm.FinalModel(t).(Model)
	if state, _ := final.Modal(); state != ModalClosed {
		t.Errorf("modal = %v, want closed", state)
	}
	if got := len(final.VisibleIDs()); got != 1 {
		t.Errorf("visible rows = %d, want 1", got)
	}
	if _, adds, _, _ := book.counts(); adds != 1 {
		t.Errorf("adds = %d, want 1", adds)
	}
}
