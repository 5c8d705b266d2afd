// Package browser implements the address book TUI: a contact table with live
// search and a modal form for creating and editing contacts.
package browser

import (
	"context"

	"github.com/smileynet/addrbook/internal/contact"
)

// ModalState is the state of the create/edit dialog.
type ModalState int

const (
	ModalClosed ModalState = iota // Table (or search) has the keyboard.
	ModalCreate                   // Empty form, footer offers Save.
	ModalEdit                     // Pre-filled form, footer offers Update and Delete.
)

// String returns a short name for logs.
func (s ModalState) String() string {
	switch s {
	case ModalCreate:
		return "create"
	case ModalEdit:
		return "edit"
	default:
		return "closed"
	}
}

// --- Consumer-side interfaces ---

// AddressBook is the entity service the view drives.
type AddressBook interface {
	Addresses(ctx context.Context) ([]contact.Contact, error)
	Add(ctx context.Context, c contact.Contact) (contact.Contact, error)
	Update(ctx context.Context, c contact.Contact) (contact.Contact, error)
	Delete(ctx context.Context, id contact.ID) error
	Find(ctx context.Context, id contact.ID) (contact.Contact, bool, error)
}

// --- tea.Msg types ---

// ContactsLoadedMsg carries the result of a full collection fetch.
type ContactsLoadedMsg struct {
	Contacts []contact.Contact
	Err      error
}

// ContactFoundMsg carries the record used to pre-fill the edit form.
type ContactFoundMsg struct {
	ID      contact.ID
	Contact contact.Contact
	Found   bool
	Err     error
}

// SavedMsg reports the outcome of a create or update.
type SavedMsg struct {
	Contact contact.Contact
	Created bool
	Err     error
	seq     int
}

// DeletedMsg reports the outcome of a delete.
type DeletedMsg struct {
	ID  contact.ID
	Err error
	seq int
}

// clearHighlightMsg removes field highlights set by validation round seq.
type clearHighlightMsg struct{ seq int }

// clearNoticeMsg hides notice number seq.
type clearNoticeMsg struct{ seq int }
