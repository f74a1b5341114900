package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskman/internal/service"
)

// Form fields in focus order.
const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldStatus
	fieldCount
)

// taskForm is the create and inline-edit form. It holds only the values
// being typed; nothing is sent until the model submits it.
type taskForm struct {
	id          service.TaskID // 0 when creating
	title       textinput.Model
	description textinput.Model
	priority    service.Priority
	status      service.Status
	focus       int
	err         string
	keys        formKeyMap
}

func newTextInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// newCreateForm opens an empty form with the LOW / PENDING defaults.
func newCreateForm() taskForm {
	f := taskForm{
		title:       newTextInput("What needs doing?", 255),
		description: newTextInput("Details", 1000),
		priority:    service.PriorityLow,
		status:      service.StatusPending,
		keys:        defaultFormKeyMap(),
	}
	f.setFocus(fieldTitle)
	return f
}

// newEditForm opens a form holding every field of t.
func newEditForm(t service.Task) taskForm {
	f := newCreateForm()
	f.id = t.ID
	f.title.SetValue(t.Title)
	f.description.SetValue(t.Description)
	if t.Priority.Valid() {
		f.priority = t.Priority
	}
	if t.Status.Valid() {
		f.status = t.Status
	}
	return f
}

func (f *taskForm) editing() bool {
	return f.id != 0
}

func (f *taskForm) setFocus(i int) {
	f.focus = (i + fieldCount) % fieldCount
	f.title.Blur()
	f.description.Blur()
	switch f.focus {
	case fieldTitle:
		f.title.Focus()
	case fieldDescription:
		f.description.Focus()
	}
}

// task returns the form contents as a task.
func (f *taskForm) task() service.Task {
	return service.Task{
		ID:          f.id,
		Title:       strings.TrimSpace(f.title.Value()),
		Description: strings.TrimSpace(f.description.Value()),
		Priority:    f.priority,
		Status:      f.status,
	}
}

// validate runs the required-field checks and records the message inline.
func (f *taskForm) validate() bool {
	t := f.task()
	var err error
	if f.editing() {
		err = service.ValidateExisting(t)
	} else {
		err = service.ValidateNew(t)
	}
	if err != nil {
		f.err = err.Error()
		return false
	}
	f.err = ""
	return true
}

// formAction is what a key press asks the model to do with the form.
type formAction int

const (
	formContinue formAction = iota
	formSubmit
	formCancel
)

// update handles a key press while the form is open.
func (f *taskForm) update(msg tea.KeyMsg) (formAction, tea.Cmd) {
	switch {
	case key.Matches(msg, f.keys.Cancel):
		return formCancel, nil
	case key.Matches(msg, f.keys.Submit):
		if f.validate() {
			return formSubmit, nil
		}
		return formContinue, nil
	case msg.Type == tea.KeyTab || msg.Type == tea.KeyShiftTab:
		if msg.Type == tea.KeyTab {
			f.setFocus(f.focus + 1)
		} else {
			f.setFocus(f.focus - 1)
		}
		return formContinue, nil
	}

	switch f.focus {
	case fieldTitle:
		var cmd tea.Cmd
		f.title, cmd = f.title.Update(msg)
		return formContinue, cmd
	case fieldDescription:
		var cmd tea.Cmd
		f.description, cmd = f.description.Update(msg)
		return formContinue, cmd
	}

	switch {
	case key.Matches(msg, f.keys.Next):
		f.setFocus(f.focus + 1)
	case key.Matches(msg, f.keys.Prev):
		f.setFocus(f.focus - 1)
	case key.Matches(msg, f.keys.Cycle):
		back := msg.Type == tea.KeyLeft
		if f.focus == fieldPriority {
			f.priority = cycleRequired(service.Priorities, f.priority, back)
		} else {
			f.status = cycleRequired(service.Statuses, f.status, back)
		}
	}
	return formContinue, nil
}

// cycleRequired steps through values without an "all" entry.
func cycleRequired[T comparable](values []T, cur T, back bool) T {
	for i, v := range values {
		if v == cur {
			if back {
				return values[(i-1+len(values))%len(values)]
			}
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

// cycleFilter steps through values with the zero value standing for "all".
func cycleFilter[T comparable](values []T, cur T) T {
	var all T
	if cur == all {
		return values[0]
	}
	for i, v := range values {
		if v == cur && i+1 < len(values) {
			return values[i+1]
		}
	}
	return all
}
