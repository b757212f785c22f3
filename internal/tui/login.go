package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zohaib/garage/pkg/session"
)

const msgCredentialsRequired = "Username and password are required."

const (
	loginUsername = iota
	loginPassword
	numLoginFields
)

type loginDoneMsg struct {
	ok  bool
	err string
}

// loginModel is the admin sign-in form.
type loginModel struct {
	sess       *session.Session
	fields     [numLoginFields]field
	focus      int
	focused    bool
	submitting bool
	err        string
	// notice survives reset so the expiry message shows after the redirect.
	notice string
}

func newLoginModel(sess *session.Session) loginModel {
	m := loginModel{sess: sess}
	m.fields[loginUsername] = field{label: "username", placeholder: "admin", limit: 150}
	m.fields[loginPassword] = field{label: "password", limit: 128, masked: true}
	return m
}

// reset clears the form and focuses the username field.
func (m loginModel) reset() loginModel {
	notice := m.notice
	m = newLoginModel(m.sess)
	m.notice = notice
	m.focused = true
	return m
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		m.submitting = false
		m.fields[loginPassword].value = ""
		if !msg.ok {
			m.err = msg.err
			m.focus = loginPassword
			m.focused = true
			return m, nil
		}
		m.err = ""
		m.notice = ""
		m.fields[loginUsername].value = ""

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m loginModel) handleKey(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	key := msg.String()

	if !m.focused {
		if key == "enter" || key == "i" {
			m.focused = true
		}
		return m, nil
	}

	switch key {
	case "esc":
		m.focused = false
	case "tab", "down", "shift+tab", "up":
		m.focus = (m.focus + 1) % numLoginFields
	case "enter":
		if m.focus == loginUsername {
			m.focus = loginPassword
			return m, nil
		}
		return m.submit()
	default:
		f := &m.fields[m.focus]
		f.value = editRune(f.value, key, f.limit)
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	username := strings.TrimSpace(m.fields[loginUsername].value)
	password := m.fields[loginPassword].value
	if username == "" || password == "" {
		m.err = msgCredentialsRequired
		return m, nil
	}

	m.err = ""
	m.submitting = true
	sess := m.sess
	return m, func() tea.Msg {
		ok := sess.Login(context.Background(), username, password)
		return loginDoneMsg{ok: ok, err: sess.LastError()}
	}
}

func (m loginModel) View(frame int) string {
	var b strings.Builder
	b.WriteString("\n " + titleStyle.Render("Admin login") + "\n")
	b.WriteString(" " + dimStyle.Render("Sign in to manage projects.") + "\n\n")

	if m.notice != "" {
		b.WriteString(" " + accentStyle.Render(m.notice) + "\n\n")
	}
	for i, f := range m.fields {
		b.WriteString(" " + f.render(m.focused && !m.submitting && i == m.focus, frame) + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.submitting:
		b.WriteString(" " + dimStyle.Render("Signing in...") + "\n")
	case m.err != "":
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
	}
	return b.String()
}

func (m loginModel) helpKeys() string {
	if m.focused {
		return helpBar(helpEntry("tab", "next"), helpEntry("enter", "sign in"), helpEntry("esc", "nav"))
	}
	return helpBar(helpEntry("1-4", "tabs"), helpEntry("enter", "type"), helpEntry("h", "help"), helpEntry("q", "quit"))
}
