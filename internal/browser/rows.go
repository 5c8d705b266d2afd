package browser

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/addrbook/internal/contact"
)

// Columns returns the contact table columns.
func Columns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "City", Width: 14},
		{Title: "Labels", Width: 14},
		{Title: "Name", Width: 24},
		{Title: "Phone", Width: 16},
	}
}

// row is one rendered contact. The number is its position in the full
// snapshot and does not change while filtering.
type row struct {
	id    contact.ID
	key   string // lower-cased full name
	cells table.Row
}

// tableState owns the rendered rows, the search filter and the bubbles table.
type tableState struct {
	rows    []row
	visible []int // indexes into rows
	term    string
	table   table.Model
	loading bool
	err     error
}

func newTableState() tableState {
	t := table.New(
		table.WithColumns(Columns()),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(TableStyles()),
	)
	return tableState{table: t, loading: true}
}

// render clears all rows and rebuilds them from the snapshot, then reapplies
// the current search term.
func (ts tableState) render(contacts []contact.Contact) tableState {
	ts.loading = false
	ts.err = nil
	ts.rows = make([]row, 0, len(contacts))
	for i, c := range contacts {
		ts.rows = append(ts.rows, row{
			id:  c.ID,
			key: c.SearchKey(),
			cells: table.Row{
				strconv.Itoa(i + 1),
				c.City,
				c.Labels,
				c.FullName(),
				c.Phone,
			},
		})
	}
	return ts.filter(ts.term)
}

// failed records a list failure. Rows from the previous snapshot are dropped.
func (ts tableState) failed(err error) tableState {
	ts.loading = false
	ts.err = err
	ts.rows = nil
	return ts.filter(ts.term)
}

// filter recomputes which rendered rows are visible for term. No fetch.
func (ts tableState) filter(term string) tableState {
	ts.term = term
	ts.visible = make([]int, 0, len(ts.rows))
	shown := make([]table.Row, 0, len(ts.rows))
	for i, r := range ts.rows {
		if contact.Matches(r.key, term) {
			ts.visible = append(ts.visible, i)
			shown = append(shown, r.cells)
		}
	}
	ts.table.SetRows(shown)
	switch {
	case len(shown) == 0:
		ts.table.SetCursor(0)
	case ts.table.Cursor() >= len(shown):
		ts.table.SetCursor(len(shown) - 1)
	case ts.table.Cursor() < 0:
		ts.table.SetCursor(0)
	}
	return ts
}

// VisibleIDs returns the IDs of the rows currently shown, in display order.
func (ts tableState) VisibleIDs() []contact.ID {
	ids := make([]contact.ID, 0, len(ts.visible))
	for _, i := range ts.visible {
		ids = append(ids, ts.rows[i].id)
	}
	return ids
}

// SelectedID returns the contact ID under the cursor, or false when no row
// is visible.
func (ts tableState) SelectedID() (contact.ID, bool) {
	cur := ts.table.Cursor()
	if cur < 0 || cur >= len(ts.visible) {
		return "", false
	}
	return ts.rows[ts.visible[cur]].id, true
}

// Update forwards navigation keys to the table.
func (ts tableState) Update(msg tea.Msg) (tableState, tea.Cmd) {
	var cmd tea.Cmd
	ts.table, cmd = ts.table.Update(msg)
	return ts, cmd
}

// View renders the table area, including the loading, error and empty states.
func (ts tableState) View(spin string) string {
	switch {
	case ts.loading:
		return spin + " Loading contacts..."
	case ts.err != nil:
		return errorStyle.Render("Error: "+ts.err.Error()) + "\n\n" +
			mutedStyle.Render("press r to retry")
	case len(ts.rows) == 0:
		return mutedStyle.Render("No contacts yet. Press a to add one.")
	case len(ts.visible) == 0:
		return mutedStyle.Render(fmt.Sprintf("No contacts match %q.", ts.term))
	}
	return ts.table.View()
}
