package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zohaib/garage/internal/router"
)

type landingLink struct {
	label string
	desc  string
	route string
}

var landingLinks = []landingLink{
	{"Projects", "cars in the workshop and what they cost", router.Projects},
	{"Check a registration", "brand, model, year and next EU approval", router.CarRegistration},
	{"Admin", "manage projects", router.AdminLogin},
}

type landingModel struct {
	cursor int
	width  int
}

func newLandingModel() landingModel {
	return landingModel{}
}

func (m landingModel) Update(msg tea.Msg) (landingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(landingLinks)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "enter":
			return m, navigateTo(landingLinks[m.cursor].route)
		}
	}
	return m, nil
}

func (m landingModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + titleStyle.Render("Welcome to the garage") + "\n")
	b.WriteString(" " + dimStyle.Render("Restoration projects and a Norwegian registration lookup.") + "\n\n")

	for i, l := range landingLinks {
		cursor := "  "
		label := normalStyle.Render(fmt.Sprintf("%-22s", l.label))
		if i == m.cursor {
			cursor = accentStyle.Render("▸ ")
			label = selectedStyle.Render(fmt.Sprintf("%-22s", l.label))
		}
		fmt.Fprintf(&b, " %s%s %s\n", cursor, label, metaStyle.Render(l.desc))
	}
	return b.String()
}

func (m landingModel) helpKeys() string {
	return helpBar(helpEntry("1-4", "tabs"), helpEntry("j/k", "nav"), helpEntry("enter", "open"), helpEntry("h", "help"), helpEntry("q", "quit"))
}
