package browser

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/addrbook/internal/contact"
)

// Each command runs one book call under its own timeout and reports back as a
// message. Nothing here touches model state.

func loadContacts(book AddressBook, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		contacts, err := book.Addresses(ctx)
		return ContactsLoadedMsg{Contacts: contacts, Err: err}
	}
}

func findContact(book AddressBook, id contact.ID, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		c, found, err := book.Find(ctx, id)
		return ContactFoundMsg{ID: id, Contact: c, Found: found, Err: err}
	}
}

func saveContact(book AddressBook, c contact.Contact, seq int, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if c.ID.IsZero() {
			saved, err := book.Add(ctx, c)
			return SavedMsg{Contact: saved, Created: true, Err: err, seq: seq}
		}
		saved, err := book.Update(ctx, c)
		return SavedMsg{Contact: saved, Err: err, seq: seq}
	}
}

func deleteContact(book AddressBook, id contact.ID, seq int, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return DeletedMsg{ID: id, Err: book.Delete(ctx, id), seq: seq}
	}
}

func clearHighlightAfter(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearHighlightMsg{seq: seq} })
}

func clearNoticeAfter(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })
}
