package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zohaib/garage/pkg/client"
	"github.com/zohaib/garage/pkg/domain"
)

type projectsLoadedMsg struct {
	projects []domain.Project
	err      error
}

// projectsModel is the public project list.
type projectsModel struct {
	api      API
	projects []domain.Project
	cursor   int
	loading  bool
	err      string
	width    int
	height   int
}

func newProjectsModel(api API) projectsModel {
	return projectsModel{api: api}
}

func (m projectsModel) Init() tea.Cmd {
	return loadProjects(m.api, func(p []domain.Project, err error) tea.Msg {
		return projectsLoadedMsg{projects: p, err: err}
	})
}

// loadProjects fetches the list and wraps the result with wrap.
func loadProjects(api API, wrap func([]domain.Project, error) tea.Msg) tea.Cmd {
	if api == nil {
		return nil
	}
	return func() tea.Msg {
		list, err := api.ListProjects(context.Background())
		return wrap(list, err)
	}
}

func (m projectsModel) Update(msg tea.Msg) (projectsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case projectsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		m.err = ""
		m.projects = msg.projects
		if m.cursor >= len(m.projects) {
			m.cursor = 0
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.projects)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "r":
			m.loading = true
			return m, m.Init()
		}
	}
	return m, nil
}

func (m projectsModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + titleStyle.Render("Projects") + "\n\n")

	if m.loading && len(m.projects) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
		return b.String()
	}
	if len(m.projects) == 0 {
		b.WriteString(" " + dimStyle.Render("no projects yet") + "\n")
		return b.String()
	}

	for i, p := range m.projects {
		b.WriteString(renderProjectRow(p, i == m.cursor, m.width) + "\n")
	}
	if m.cursor < len(m.projects) {
		if desc := strings.TrimSpace(m.projects[m.cursor].Description); desc != "" {
			b.WriteString("\n " + dimStyle.Render(truncStr(desc, max(m.width-4, 20))) + "\n")
		}
	}
	return b.String()
}

// renderProjectRow draws one project line shared by the public list and
// the dashboard.
func renderProjectRow(p domain.Project, selected bool, width int) string {
	cursor := " "
	if selected {
		cursor = accentStyle.Render("▸")
	}

	nameWidth := 28
	if width > 0 && width < 70 {
		nameWidth = max(width-42, 12)
	}
	name := fmt.Sprintf("%-*s", nameWidth, truncStr(p.CarName, nameWidth))
	if selected {
		name = selectedStyle.Render(name)
	} else {
		name = normalStyle.Render(name)
	}

	price := priceStyle.Render(fmt.Sprintf("%12s", domain.FormatPrice(p.Price)))
	state := okStyle.Render("active  ")
	if !p.IsActive {
		state = inactiveStyle.Render("inactive")
	}
	row := fmt.Sprintf(" %s %s  %s  %s", cursor, name, price, state)
	if ago := formatTime(p.UpdatedAt); ago != "" {
		row += "  " + metaStyle.Render(ago)
	}
	if selected {
		row = selectedRowBg.Render(row)
	}
	return row
}

func (m projectsModel) helpKeys() string {
	return helpBar(helpEntry("1-4", "tabs"), helpEntry("j/k", "nav"), helpEntry("r", "reload"), helpEntry("h", "help"), helpEntry("q", "quit"))
}
