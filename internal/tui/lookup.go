package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zohaib/garage/pkg/client"
	"github.com/zohaib/garage/pkg/domain"
)

const (
	msgRegistrationRequired = "Please enter a registration number."
	lookupPlaceholder       = "Enter registration number (e.g., AB12345)"
)

type lookupResultMsg struct {
	vehicle *domain.Vehicle
	err     error
}

type copyResultMsg struct {
	err error
}

// lookupModel is the registration lookup form and its result card.
type lookupModel struct {
	api     API
	input   field
	focused bool
	loading bool
	vehicle *domain.Vehicle
	err     string
	status  string
	width   int
}

func newLookupModel(api API) lookupModel {
	return lookupModel{
		api: api,
		input: field{
			label:       "registration",
			placeholder: lookupPlaceholder,
			limit:       domain.MaxRegistrationLen,
			upper:       true,
		},
	}
}

func (m lookupModel) Update(msg tea.Msg) (lookupModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case lookupResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			m.vehicle = nil
			return m, nil
		}
		m.vehicle = msg.vehicle

	case copyResultMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = "copied to clipboard"
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m lookupModel) handleKey(msg tea.KeyMsg) (lookupModel, tea.Cmd) {
	key := msg.String()
	if m.loading {
		// The form is disabled while a lookup is in flight.
		return m, nil
	}

	if !m.focused {
		switch key {
		case "enter", "i", "/":
			m.focused = true
		case "c":
			if m.vehicle != nil {
				text := vehicleSummary(*m.vehicle)
				return m, func() tea.Msg {
					return copyResultMsg{err: clipboard.WriteAll(text)}
				}
			}
		}
		return m, nil
	}

	switch key {
	case "enter":
		return m.submit()
	case "esc":
		m.focused = false
	default:
		m.input.value = editRune(m.input.value, key, m.input.limit)
	}
	return m, nil
}

// submit validates locally and starts the lookup. An empty registration
// never reaches the network.
func (m lookupModel) submit() (lookupModel, tea.Cmd) {
	m.status = ""
	reg := strings.TrimSpace(m.input.value)
	if reg == "" {
		m.err = msgRegistrationRequired
		m.vehicle = nil
		return m, nil
	}

	m.err = ""
	m.vehicle = nil
	m.loading = true
	m.focused = false
	api := m.api
	return m, func() tea.Msg {
		v, err := api.LookupRegistration(context.Background(), reg)
		return lookupResultMsg{vehicle: v, err: err}
	}
}

func (m lookupModel) View(frame int) string {
	var b strings.Builder
	b.WriteString("\n " + titleStyle.Render("Check Car Registration") + "\n")
	b.WriteString(" " + dimStyle.Render("Enter a Norwegian car registration number to see the vehicle details.") + "\n\n")

	b.WriteString(" " + m.input.render(m.focused && !m.loading, frame) + "\n")
	if m.loading {
		b.WriteString("   " + dimStyle.Render("Searching...") + "\n\n")
		b.WriteString(" " + accentStyle.Render("Fetching vehicle information...") + "\n")
		return b.String()
	}
	b.WriteString("\n")

	if m.err != "" {
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
	}
	if m.vehicle != nil {
		b.WriteString(vehicleCard(*m.vehicle) + "\n")
	}
	if m.status != "" {
		b.WriteString(" " + okStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func vehicleCard(v domain.Vehicle) string {
	rows := []struct{ label, value string }{
		{"Registration", v.Registration},
		{"Brand", v.Brand},
		{"Model", v.Model},
		{"Year", v.Year},
		{"Next EU approval", v.NextEUApproval},
	}
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s", metaStyle.Render(fmt.Sprintf("%-17s", r.label)), selectedStyle.Render(orNA(r.value)))
	}
	return cardStyle.Render(b.String())
}

// vehicleSummary is the single-line text put on the clipboard.
func vehicleSummary(v domain.Vehicle) string {
	return fmt.Sprintf("%s: %s %s (%s), next EU approval %s",
		orNA(v.Registration), orNA(v.Brand), orNA(v.Model), orNA(v.Year), orNA(v.NextEUApproval))
}

func (m lookupModel) helpKeys() string {
	if m.focused {
		return helpBar(helpEntry("enter", "search"), helpEntry("esc", "nav"))
	}
	entries := []string{helpEntry("1-4", "tabs"), helpEntry("enter", "type")}
	if m.vehicle != nil {
		entries = append(entries, helpEntry("c", "copy"))
	}
	return helpBar(append(entries, helpEntry("h", "help"), helpEntry("q", "quit"))...)
}
