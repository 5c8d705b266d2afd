package browser

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/addrbook/internal/contact"
)

// formFields lists the inputs of the dialog in tab order.
var formFields = []contact.Field{
	contact.FieldFirstName,
	contact.FieldLastName,
	contact.FieldEmail,
	contact.FieldPhone,
	contact.FieldCity,
	contact.FieldLabels,
}

var fieldLabels = map[contact.Field]string{
	contact.FieldFirstName: "First name",
	contact.FieldLastName:  "Last name",
	contact.FieldEmail:     "Email",
	contact.FieldPhone:     "Phone",
	contact.FieldCity:      "City",
	contact.FieldLabels:    "Labels",
}

var fieldPlaceholders = map[contact.Field]string{
	contact.FieldEmail: "name@example.com",
	contact.FieldPhone: "555-123-4567",
}

// formState is the modal dialog: one text input per field, the focused
// input, and the fields highlighted by the last failed validation.
type formState struct {
	inputs       []textinput.Model
	focus        int
	invalid      map[contact.Field]bool
	highlightSeq int
	target       contact.ID // set in edit mode
	loading      bool       // waiting for the edit pre-fill
	submitting   bool       // this dialog's save, update or delete is in flight
}

func newFormState() formState {
	inputs := make([]textinput.Model, len(formFields))
	for i, f := range formFields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = fieldPlaceholders[f]
		ti.CharLimit = 128
		ti.Width = ModalWidth - 18
		ti.Cursor.SetMode(cursor.CursorStatic)
		inputs[i] = ti
	}
	return formState{inputs: inputs}
}

// reset clears every input and all per-dialog state. The highlight sequence
// keeps counting so stale clear messages stay ignored.
func (f formState) reset() formState {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
		f.inputs[i].Blur()
	}
	f.focus = 0
	f.invalid = nil
	f.target = ""
	f.loading = false
	f.submitting = false
	return f
}

// fill copies the fields of c into the inputs.
func (f formState) fill(c contact.Contact) formState {
	values := c.Form()
	for i, field := range formFields {
		f.inputs[i].SetValue(values.Value(field))
		f.inputs[i].CursorEnd()
	}
	return f
}

// values returns the raw text of every input.
func (f formState) values() contact.Form {
	get := func(field contact.Field) string {
		for i, ff := range formFields {
			if ff == field {
				return f.inputs[i].Value()
			}
		}
		return ""
	}
	return contact.Form{
		FirstName: get(contact.FieldFirstName),
		LastName:  get(contact.FieldLastName),
		Email:     get(contact.FieldEmail),
		Phone:     get(contact.FieldPhone),
		City:      get(contact.FieldCity),
		Labels:    get(contact.FieldLabels),
	}
}

// highlight marks the failed fields and starts a new highlight round.
func (f formState) highlight(fields []contact.Field) formState {
	f.invalid = make(map[contact.Field]bool, len(fields))
	for _, field := range fields {
		f.invalid[field] = true
	}
	f.highlightSeq++
	return f
}

// focusField moves keyboard focus to input i, wrapping around.
func (f formState) focusField(i int) (formState, tea.Cmd) {
	n := len(f.inputs)
	i = ((i % n) + n) % n
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	f.focus = i
	return f, f.inputs[i].Focus()
}

// Update routes typing to the focused input. Field navigation is handled by
// the model so it can share the modal key map.
func (f formState) Update(msg tea.Msg) (formState, tea.Cmd) {
	if f.loading {
		return f, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

// View renders the dialog body for the given modal state.
func (f formState) View(state ModalState, spin string) string {
	var b strings.Builder
	title := "New contact"
	if state == ModalEdit {
		title = "Edit contact"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	if f.loading {
		b.WriteString(spin + " Loading contact...")
		return ModalBorder().Render(b.String())
	}

	for i, field := range formFields {
		label := labelStyle.Render(fieldLabels[field])
		if f.invalid[field] {
			label = invalidStyle.Render(fieldLabels[field])
		}
		marker := "  "
		if i == f.focus {
			marker = "▸ "
		}
		b.WriteString(marker + label + f.inputs[i].View() + "\n")
	}
	b.WriteString("\n")

	var buttons []string
	if state == ModalEdit {
		buttons = append(buttons, buttonStyle.Render("[ctrl+s] Update"), dangerStyle.Render("[ctrl+d] Delete"))
	} else {
		buttons = append(buttons, buttonStyle.Render("[ctrl+s] Save"))
	}
	buttons = append(buttons, mutedStyle.Render("[esc] Close"))
	if f.submitting {
		buttons = append(buttons, spin)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))

	return ModalBorder().Render(b.String())
}
