package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zohaib/garage/internal/router"
	"github.com/zohaib/garage/pkg/client"
	"github.com/zohaib/garage/pkg/domain"
	"github.com/zohaib/garage/pkg/session"
)

type dashMode int

const (
	dashList dashMode = iota
	dashForm
	dashConfirmDelete
)

type dashProjectsMsg struct {
	projects []domain.Project
	err      error
}

type projectSavedMsg struct {
	project *domain.Project
	created bool
	err     error
}

type projectDeletedMsg struct {
	id  int
	err error
}

// dashboardModel is the signed-in admin view: profile, token lifetime and
// project management.
type dashboardModel struct {
	api      API
	sess     *session.Session
	projects []domain.Project
	cursor   int
	mode     dashMode
	form     projectForm
	loading  bool
	busy     bool
	err      string
	status   string
	now      func() time.Time
	width    int
	height   int
}

func newDashboardModel(api API, sess *session.Session) dashboardModel {
	return dashboardModel{api: api, sess: sess, now: time.Now}
}

// reset returns to the list and marks it for reload.
func (m dashboardModel) reset() dashboardModel {
	m.mode = dashList
	m.err = ""
	m.status = ""
	m.busy = false
	m.loading = true
	return m
}

func (m dashboardModel) Init() tea.Cmd {
	return loadProjects(m.api, func(p []domain.Project, err error) tea.Msg {
		return dashProjectsMsg{projects: p, err: err}
	})
}

func (m dashboardModel) editing() bool {
	return m.mode == dashForm
}

func (m dashboardModel) selected() (domain.Project, bool) {
	if m.cursor < 0 || m.cursor >= len(m.projects) {
		return domain.Project{}, false
	}
	return m.projects[m.cursor], true
}

func (m dashboardModel) Update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case dashProjectsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		m.err = ""
		m.projects = msg.projects
		if m.cursor >= len(m.projects) {
			m.cursor = max(len(m.projects)-1, 0)
		}

	case formSubmitMsg:
		return m.save(msg)

	case formCancelMsg:
		m.mode = dashList

	case projectSavedMsg:
		m.busy = false
		if msg.err != nil {
			if m.mode == dashForm {
				m.form.err = client.UserMessage(msg.err)
			} else {
				m.err = client.UserMessage(msg.err)
			}
			return m, nil
		}
		m.mode = dashList
		m.err = ""
		m.upsert(*msg.project)
		if msg.created {
			m.status = fmt.Sprintf("created %q", msg.project.CarName)
		} else {
			m.status = fmt.Sprintf("saved %q", msg.project.CarName)
		}

	case projectDeletedMsg:
		m.busy = false
		m.mode = dashList
		if msg.err != nil {
			m.err = client.UserMessage(msg.err)
			return m, nil
		}
		m.err = ""
		m.remove(msg.id)
		m.status = fmt.Sprintf("deleted project #%d", msg.id)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m dashboardModel) handleKey(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch m.mode {
	case dashForm:
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd

	case dashConfirmDelete:
		switch msg.String() {
		case "y", "Y":
			p, ok := m.selected()
			if !ok {
				m.mode = dashList
				return m, nil
			}
			m.busy = true
			api := m.api
			return m, func() tea.Msg {
				err := api.DeleteProject(context.Background(), p.ID)
				return projectDeletedMsg{id: p.ID, err: err}
			}
		case "n", "N", "esc":
			m.mode = dashList
		}
		return m, nil
	}

	m.status = ""
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.projects)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "n":
		m.form = newProjectForm(nil)
		m.mode = dashForm
	case "e", "enter":
		if p, ok := m.selected(); ok {
			m.form = newProjectForm(&p)
			m.mode = dashForm
		}
	case "d", "x":
		if _, ok := m.selected(); ok {
			m.mode = dashConfirmDelete
		}
	case "a":
		if p, ok := m.selected(); ok {
			active := !p.IsActive
			m.busy = true
			return m, m.updateCmd(p.ID, domain.ProjectPatch{IsActive: &active})
		}
	case "r":
		m.loading = true
		return m, m.Init()
	case "L":
		sess := m.sess
		return m, func() tea.Msg {
			sess.Logout(context.Background())
			return navigateMsg{route: router.AdminLogin}
		}
	}
	return m, nil
}

func (m dashboardModel) save(msg formSubmitMsg) (dashboardModel, tea.Cmd) {
	if msg.editing == nil {
		m.busy = true
		api, in := m.api, msg.input
		return m, func() tea.Msg {
			p, err := api.CreateProject(context.Background(), in)
			return projectSavedMsg{project: p, created: true, err: err}
		}
	}

	patch := msg.editing.Diff(msg.input)
	if patch.Empty() {
		m.mode = dashList
		m.status = "no changes"
		return m, nil
	}
	m.busy = true
	return m, m.updateCmd(msg.editing.ID, patch)
}

func (m dashboardModel) updateCmd(id int, patch domain.ProjectPatch) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		p, err := api.UpdateProject(context.Background(), id, patch)
		return projectSavedMsg{project: p, err: err}
	}
}

func (m *dashboardModel) upsert(p domain.Project) {
	for i := range m.projects {
		if m.projects[i].ID == p.ID {
			m.projects[i] = p
			m.cursor = i
			return
		}
	}
	m.projects = append([]domain.Project{p}, m.projects...)
	m.cursor = 0
}

func (m *dashboardModel) remove(id int) {
	for i := range m.projects {
		if m.projects[i].ID == id {
			m.projects = append(m.projects[:i], m.projects[i+1:]...)
			break
		}
	}
	if m.cursor >= len(m.projects) {
		m.cursor = max(len(m.projects)-1, 0)
	}
}

func (m dashboardModel) View(frame int) string {
	var b strings.Builder
	b.WriteString("\n " + titleStyle.Render("Dashboard") + "\n")
	b.WriteString(m.profileView() + "\n")

	if m.mode == dashForm {
		b.WriteString(m.form.View(frame))
		if m.busy {
			b.WriteString("\n " + dimStyle.Render("saving...") + "\n")
		}
		return b.String()
	}

	switch {
	case m.loading && len(m.projects) == 0:
		b.WriteString(" " + dimStyle.Render("loading projects...") + "\n")
	case len(m.projects) == 0 && m.err == "":
		b.WriteString(" " + dimStyle.Render("no projects yet, press n to add one") + "\n")
	default:
		for i, p := range m.projects {
			b.WriteString(renderProjectRow(p, i == m.cursor, m.width) + "\n")
		}
	}

	b.WriteString("\n")
	if m.mode == dashConfirmDelete {
		if p, ok := m.selected(); ok {
			b.WriteString(" " + errorStyle.Render(fmt.Sprintf("Delete %q? ", p.CarName)) + helpEntry("y", "yes") + "  " + helpEntry("n", "no") + "\n")
		}
	}
	if m.busy {
		b.WriteString(" " + dimStyle.Render("working...") + "\n")
	}
	if m.err != "" {
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
	}
	if m.status != "" {
		b.WriteString(" " + okStyle.Render(m.status) + "\n")
	}
	return b.String()
}

// profileView shows who is signed in and how long the access token lasts.
func (m dashboardModel) profileView() string {
	var parts []string
	if u := m.sess.User(); u != nil {
		parts = append(parts, selectedStyle.Render(u.DisplayName()))
		if u.DisplayName() != u.Username {
			parts = append(parts, dimStyle.Render("@"+u.Username))
		}
		if u.Email != "" {
			parts = append(parts, dimStyle.Render(u.Email))
		}
	} else {
		parts = append(parts, dimStyle.Render("loading profile..."))
	}

	if info, ok := m.sess.TokenInfo(); ok && !info.ExpiresAt.IsZero() {
		left := info.ExpiresIn(m.now())
		style := metaStyle
		if left < time.Minute {
			style = accentStyle
		}
		parts = append(parts, style.Render("token "+formatRemaining(left)))
	}
	return " " + strings.Join(parts, metaStyle.Render(" · ")) + "\n"
}

func (m dashboardModel) helpKeys() string {
	switch m.mode {
	case dashForm:
		return helpBar(helpEntry("tab", "next"), helpEntry("ctrl+s", "save"), helpEntry("esc", "cancel"))
	case dashConfirmDelete:
		return helpBar(helpEntry("y", "delete"), helpEntry("n", "keep"))
	}
	return helpBar(helpEntry("1-4", "tabs"), helpEntry("j/k", "nav"), helpEntry("n", "new"), helpEntry("e", "edit"),
		helpEntry("d", "delete"), helpEntry("a", "toggle active"), helpEntry("r", "reload"), helpEntry("L", "logout"), helpEntry("q", "quit"))
}
