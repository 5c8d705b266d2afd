// Package contact defines the address book record, its canonical identifier,
// and the form validation rules applied before a record is sent to the backend.
package contact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID identifies a persisted contact. The empty ID marks a contact that has not
// been saved yet.
//
// Backends may send identifiers as JSON strings or numbers; both decode to the
// same textual ID so that comparisons never depend on the wire type. Integral
// numbers are normalized, so 5, 5.0 and 5e0 all decode to "5". Strings are
// kept verbatim.
type ID string

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool { return id == "" }

// String returns the ID text.
func (id ID) String() string { return string(id) }

// MarshalJSON encodes an empty ID as null and any other ID as a JSON string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a string, a number, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("contact: decoding id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("contact: id must be a string, number or null, got %s", data)
	}
	*id = normalizeNumber(n.String())
	return nil
}

// maxExactFloat is the largest magnitude below which every integral float64
// maps to exactly one int64.
const maxExactFloat = 1 << 53

func normalizeNumber(s string) ID {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID(strconv.FormatInt(i, 10))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err == nil && f == math.Trunc(f) && math.Abs(f) < maxExactFloat {
		return ID(strconv.FormatInt(int64(f), 10))
	}
	return ID(s)
}

// Contact is one address book record.
type Contact struct {
	ID        ID     `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	Labels    string `json:"labels"`
}

// FullName returns "first last".
func (c Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}

// SearchKey returns the lower-cased full name used for search filtering.
func (c Contact) SearchKey() string {
	return strings.ToLower(c.FullName())
}

// Form returns the form values for c, used to pre-fill an edit form.
func (c Contact) Form() Form {
	return Form{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		City:      c.City,
		Labels:    c.Labels,
	}
}

// Matches reports whether key contains term, ignoring case.
// An empty term matches everything.
func Matches(key, term string) bool {
	return strings.Contains(strings.ToLower(key), strings.ToLower(term))
}

// Filter returns the contacts whose full name contains term, ignoring case.
func Filter(contacts []Contact, term string) []Contact {
	var out []Contact
	for _, c := range contacts {
		if Matches(c.SearchKey(), term) {
			out = append(out, c)
		}
	}
	return out
}
