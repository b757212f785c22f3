package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zohaib/garage/pkg/domain"
)

type formField int

const (
	formCarName formField = iota
	formDescription
	formPrice
	formActive
	numFormFields
)

// projectForm edits a project. editing is nil when creating.
type projectForm struct {
	fields  [formActive]field
	active  bool
	focus   formField
	editing *domain.Project
	err     string
}

func newProjectForm(p *domain.Project) projectForm {
	f := projectForm{active: true}
	f.fields[formCarName] = field{label: "car name", placeholder: "e.g. Volvo 240", limit: domain.MaxCarNameLen}
	f.fields[formDescription] = field{label: "description", limit: maxInputLen}
	f.fields[formPrice] = field{label: "price", placeholder: strconv.Itoa(domain.DefaultProjectPrice), limit: 10}
	if p != nil {
		cp := *p
		f.editing = &cp
		f.fields[formCarName].value = p.CarName
		f.fields[formDescription].value = p.Description
		f.fields[formPrice].value = strconv.Itoa(p.Price)
		f.active = p.IsActive
	}
	return f
}

// formSubmitMsg is emitted by the form when ctrl+s passes validation.
type formSubmitMsg struct {
	input   domain.ProjectInput
	editing *domain.Project
}

// formCancelMsg is emitted on esc.
type formCancelMsg struct{}

func (f projectForm) Update(msg tea.KeyMsg) (projectForm, tea.Cmd) {
	switch msg.String() {
	case "ctrl+s":
		return f.submit()
	case "esc":
		return f, func() tea.Msg { return formCancelMsg{} }
	case "tab", "down":
		f.focus = (f.focus + 1) % numFormFields
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + numFormFields) % numFormFields
	case "enter":
		if f.focus == formActive {
			return f.submit()
		}
		f.focus++
	case " ", "space":
		if f.focus == formActive {
			f.active = !f.active
			return f, nil
		}
		fallthrough
	default:
		if f.focus == formActive {
			return f, nil
		}
		key := msg.String()
		if f.focus == formPrice && key != "backspace" && (len(key) != 1 || key[0] < '0' || key[0] > '9') {
			return f, nil
		}
		fl := &f.fields[f.focus]
		fl.value = editRune(fl.value, key, fl.limit)
	}
	f.err = ""
	return f, nil
}

// input builds the payload. An empty price means the server default.
func (f projectForm) input() (domain.ProjectInput, error) {
	in := domain.ProjectInput{
		CarName:     strings.TrimSpace(f.fields[formCarName].value),
		Description: strings.TrimSpace(f.fields[formDescription].value),
		Price:       domain.DefaultProjectPrice,
		IsActive:    f.active,
	}
	if raw := strings.TrimSpace(f.fields[formPrice].value); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return in, fmt.Errorf("price must be a whole number")
		}
		in.Price = n
	}
	return in, in.Validate()
}

func (f projectForm) submit() (projectForm, tea.Cmd) {
	in, err := f.input()
	if err != nil {
		f.err = err.Error()
		return f, nil
	}
	editing := f.editing
	return f, func() tea.Msg { return formSubmitMsg{input: in, editing: editing} }
}

func (f projectForm) View(frame int) string {
	var b strings.Builder
	title := "New project"
	if f.editing != nil {
		title = fmt.Sprintf("Edit project #%d", f.editing.ID)
	}
	b.WriteString(" " + titleStyle.Render(title) + "\n\n")

	for i, fl := range f.fields {
		b.WriteString(" " + fl.render(formField(i) == f.focus, frame) + "\n")
	}

	marker, label := "  ", metaStyle.Render("active")
	if f.focus == formActive {
		marker, label = inputPromptStyle.Render("> "), selectedStyle.Render("active")
	}
	box := "[ ]"
	if f.active {
		box = okStyle.Render("[x]")
	}
	b.WriteString(" " + marker + label + ": " + box + "  " + metaStyle.Render("(space to toggle)") + "\n")

	if f.err != "" {
		b.WriteString("\n " + errorStyle.Render(f.err) + "\n")
	}
	return b.String()
}
