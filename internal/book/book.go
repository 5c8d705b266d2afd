// Package book is the address book service used by the views. Each method
// maps to one backend call; none of them refresh a view, callers decide when
// to re-fetch.
package book

import (
	"context"
	"errors"
	"fmt"

	"github.com/smileynet/addrbook/internal/contact"
)

var (
	// ErrHasID is returned by Add for a contact that is already persisted.
	ErrHasID = errors.New("book: new contact must not have an id")
	// ErrMissingID is returned by Update and Delete without an id.
	ErrMissingID = errors.New("book: contact id is required")
)

// Store is the data access layer the book delegates to.
type Store interface {
	List(ctx context.Context) ([]contact.Contact, error)
	Save(ctx context.Context, c contact.Contact) (contact.Contact, error)
	Remove(ctx context.Context, id contact.ID) error
}

// Book is a stateless facade over a Store.
type Book struct {
	store Store
}

// New creates a Book backed by store.
func New(store Store) *Book {
	return &Book{store: store}
}

// Addresses returns the full collection as currently stored.
func (b *Book) Addresses(ctx context.Context) ([]contact.Contact, error) {
	contacts, err := b.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("book: listing contacts: %w", err)
	}
	return contacts, nil
}

// Add creates c and returns the stored record.
func (b *Book) Add(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	if !c.ID.IsZero() {
		return contact.Contact{}, fmt.Errorf("%w: %q", ErrHasID, c.ID)
	}
	saved, err := b.store.Save(ctx, c)
	if err != nil {
		return contact.Contact{}, fmt.Errorf("book: adding contact: %w", err)
	}
	return saved, nil
}

// Update replaces the stored record with the same ID as c.
func (b *Book) Update(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	if c.ID.IsZero() {
		return contact.Contact{}, ErrMissingID
	}
	saved, err := b.store.Save(ctx, c)
	if err != nil {
		return contact.Contact{}, fmt.Errorf("book: updating contact %s: %w", c.ID, err)
	}
	return saved, nil
}

// Delete removes the contact with the given ID.
func (b *Book) Delete(ctx context.Context, id contact.ID) error {
	if id.IsZero() {
		return ErrMissingID
	}
	if err := b.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("book: deleting contact %s: %w", id, err)
	}
	return nil
}

// Find fetches a fresh collection and returns the contact with the given ID.
// found is false when no record matches.
func (b *Book) Find(ctx context.Context, id contact.ID) (c contact.Contact, found bool, err error) {
	contacts, err := b.Addresses(ctx)
	if err != nil {
		return contact.Contact{}, false, err
	}
	for _, ct := range contacts {
		if ct.ID == id {
			return ct, true, nil
		}
	}
	return contact.Contact{}, false, nil
}
