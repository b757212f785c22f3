package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zohaib/garage/pkg/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fbbf24")).
			Bold(true)
	cmdStyle   = lipgloss.NewStyle().Bold(true)
	descStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0"))
)

func printHelp(w io.Writer) {
	title := titleStyle.Render("G A R A G E")
	commands := []struct{ cmd, desc string }{
		{"garage", "Open the interactive TUI"},
		{"garage login", "Sign in as admin"},
		{"garage logout", "Clear the saved session"},
		{"garage whoami", "Show the signed-in admin"},
		{"garage lookup REG", "Look up a registration number"},
		{"garage projects", "List projects"},
		{"garage --version", "Show version"},
		{"garage help", "You are here"},
	}

	fmt.Fprintf(w, "\n  %s  %s\n\n  Commands:\n", title, descStyle.Render(version))
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Fprintf(w, "\n  %s\n\n", descStyle.Render("Settings: GARAGE_* environment, .env or ~/.garage/config.yaml"))
}

func printProfile(w io.Writer, u *domain.User, expiresIn time.Duration) {
	if u == nil {
		fmt.Fprintln(w, "Signed in, but the profile could not be loaded.")
	} else {
		name := u.DisplayName()
		if name != u.Username {
			name += " (@" + u.Username + ")"
		}
		fmt.Fprintf(w, "Signed in as %s\n", cmdStyle.Render(name))
		if u.Email != "" {
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("email"), u.Email)
		}
	}
	if expiresIn > 0 {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("token expires in"), expiresIn.Round(time.Second))
	}
}

func printVehicle(w io.Writer, v domain.Vehicle) {
	fmt.Fprintf(w, "%s\n", titleStyle.Render(orNA(v.Registration)))
	rows := []struct{ label, value string }{
		{"Brand", v.Brand},
		{"Model", v.Model},
		{"Year", v.Year},
		{"Next EU approval", v.NextEUApproval},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-17s", r.label)), orNA(r.value))
	}
}

func printProjects(w io.Writer, projects []domain.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCAR\tPRICE\tSTATUS")
	for _, p := range projects {
		status := "inactive"
		if p.IsActive {
			status = "active"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.CarName, domain.FormatPrice(p.Price), status)
	}
	tw.Flush() //nolint:errcheck
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
