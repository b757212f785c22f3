package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zohaib/garage/internal/browser"
	"github.com/zohaib/garage/internal/router"
	"github.com/zohaib/garage/pkg/domain"
	"github.com/zohaib/garage/pkg/session"
)

// API is the part of the REST client the views call.
type API interface {
	LookupRegistration(ctx context.Context, registration string) (*domain.Vehicle, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	CreateProject(ctx context.Context, in domain.ProjectInput) (*domain.Project, error)
	UpdateProject(ctx context.Context, id int, patch domain.ProjectPatch) (*domain.Project, error)
	DeleteProject(ctx context.Context, id int) error
}

// navigateMsg asks the App to move to a route. It always passes the guard.
type navigateMsg struct {
	route string
}

func navigateTo(route string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{route: route} }
}

// sessionEventMsg relays a session.Event into the update loop.
type sessionEventMsg struct {
	event session.Event
}

// waitForSessionEvent blocks on the subscription and delivers one event.
func waitForSessionEvent(ch <-chan session.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return sessionEventMsg{event: ev}
	}
}

const msgSessionExpired = "Your session has expired. Please log in again."

// tab is one entry of the tab bar.
type tab struct {
	key   string
	route string
	label string
}

var tabs = []tab{
	{"1", router.Landing, "Home"},
	{"2", router.Projects, "Projects"},
	{"3", router.CarRegistration, "Registration"},
	{"4", router.AdminLogin, "Admin"},
}

// App is the root Bubbletea model.
type App struct {
	sess    *session.Session
	version string

	route       router.Route
	initOnStart bool
	events      <-chan session.Event
	unsubscribe func()

	landing   landingModel
	projects  projectsModel
	lookup    lookupModel
	login     loginModel
	dashboard dashboardModel

	helpOpen   bool
	helpCursor int
	width      int
	height     int
	frame      int
}

// NewApp creates the TUI opened at the named route. The initial navigation
// goes through the route guard like every other.
func NewApp(api API, sess *session.Session, version, start string) App {
	a := App{
		sess:      sess,
		version:   version,
		landing:   newLandingModel(),
		projects:  newProjectsModel(api),
		lookup:    newLookupModel(api),
		login:     newLoginModel(sess),
		dashboard: newDashboardModel(api, sess),
	}
	a.events, a.unsubscribe = sess.Subscribe()

	to, ok := router.Lookup(start)
	if !ok {
		to = router.MustLookup(router.Landing)
	}
	d := router.Guard(to, a.guardState())
	a.route = d.Target
	a.initOnStart = d.Initialize
	a = a.enter()
	return a
}

// Close stops the session subscription.
func (a App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

// Route returns the route currently shown.
func (a App) Route() router.Route {
	return a.route
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{shimmerTickCmd(), waitForSessionEvent(a.events), a.routeInit()}
	if a.initOnStart {
		cmds = append(cmds, a.initializeCmd())
	}
	return tea.Batch(cmds...)
}

func (a App) guardState() router.State {
	snap := a.sess.Snapshot()
	return router.State{HasToken: snap.Authenticated(), HasUser: snap.User != nil}
}

// initializeCmd restores the profile in the background. Its outcome shows
// up as session events, so the command itself yields no message.
func (a App) initializeCmd() tea.Cmd {
	sess := a.sess
	return func() tea.Msg {
		sess.Initialize(context.Background())
		return nil
	}
}

// navigate runs the guard for the named route and switches to where it lands.
func (a App) navigate(name string) (App, tea.Cmd) {
	to, ok := router.Lookup(name)
	if !ok {
		return a, nil
	}
	d := router.Guard(to, a.guardState())

	var cmds []tea.Cmd
	if d.Initialize {
		cmds = append(cmds, a.initializeCmd())
	}
	if d.Target.Name != a.route.Name {
		a.route = d.Target
		a = a.enter()
		cmds = append(cmds, a.routeInit())
	}
	return a, tea.Batch(cmds...)
}

// enter prepares the model of the current route for display.
func (a App) enter() App {
	switch a.route.Name {
	case router.Projects:
		a.projects.loading = true
	case router.CarRegistration:
		a.lookup.focused = true
	case router.AdminLogin:
		a.login = a.login.reset()
	case router.AdminDashboard:
		a.dashboard = a.dashboard.reset()
	}
	return a
}

// routeInit returns the load command of the current route, if any.
func (a App) routeInit() tea.Cmd {
	switch a.route.Name {
	case router.Projects:
		return a.projects.Init()
	case router.AdminDashboard:
		return a.dashboard.Init()
	}
	return nil
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		body := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - chromeLines}
		a.landing, _ = a.landing.Update(body)
		a.projects, _ = a.projects.Update(body)
		a.lookup, _ = a.lookup.Update(body)
		a.dashboard, _ = a.dashboard.Update(body)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case navigateMsg:
		return a.navigate(msg.route)

	case sessionEventMsg:
		return a.handleSessionEvent(msg.event)

	case loginDoneMsg:
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		if msg.ok && a.route.Name == router.AdminLogin {
			var nav tea.Cmd
			a, nav = a.navigate(router.AdminDashboard)
			return a, tea.Batch(cmd, nav)
		}
		return a, cmd

	case projectsLoadedMsg:
		var cmd tea.Cmd
		a.projects, cmd = a.projects.Update(msg)
		return a, cmd

	case lookupResultMsg, copyResultMsg:
		var cmd tea.Cmd
		a.lookup, cmd = a.lookup.Update(msg)
		return a, cmd

	case dashProjectsMsg, projectSavedMsg, projectDeletedMsg, formSubmitMsg, formCancelMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a App) handleSessionEvent(ev session.Event) (App, tea.Cmd) {
	wait := waitForSessionEvent(a.events)
	switch ev {
	case session.EventExpired:
		a.login.notice = msgSessionExpired
		var cmd tea.Cmd
		a, cmd = a.navigate(router.AdminLogin)
		return a, tea.Batch(wait, cmd)
	case session.EventLoggedOut:
		if a.route.RequiresAuth {
			var cmd tea.Cmd
			a, cmd = a.navigate(router.AdminLogin)
			return a, tea.Batch(wait, cmd)
		}
	}
	return a, wait
}

func (a App) handleKey(msg tea.KeyMsg) (App, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	if a.helpOpen {
		switch msg.String() {
		case "h", "esc":
			a.helpOpen = false
		case "q":
			return a, tea.Quit
		case "j", "down":
			if a.helpCursor < len(helpItems)-1 {
				a.helpCursor++
			}
		case "k", "up":
			if a.helpCursor > 0 {
				a.helpCursor--
			}
		case "enter":
			if item := helpItems[a.helpCursor]; item.url != "" {
				browser.Open(item.url) //nolint:errcheck // best-effort browser open
			}
		}
		return a, nil
	}

	if !a.isEditing() {
		switch msg.String() {
		case "h":
			a.helpOpen = true
			a.helpCursor = 0
			return a, nil
		case "q":
			return a, tea.Quit
		}
		for _, t := range tabs {
			if msg.String() == t.key {
				return a.navigate(t.route)
			}
		}
	}

	var cmd tea.Cmd
	switch a.route.Name {
	case router.Landing:
		a.landing, cmd = a.landing.Update(msg)
	case router.Projects:
		a.projects, cmd = a.projects.Update(msg)
	case router.CarRegistration:
		a.lookup, cmd = a.lookup.Update(msg)
	case router.AdminLogin:
		a.login, cmd = a.login.Update(msg)
	case router.AdminDashboard:
		a.dashboard, cmd = a.dashboard.Update(msg)
	}
	return a, cmd
}

// isEditing reports whether keystrokes belong to a text field.
func (a App) isEditing() bool {
	switch a.route.Name {
	case router.CarRegistration:
		return a.lookup.focused
	case router.AdminLogin:
		return a.login.focused
	case router.AdminDashboard:
		return a.dashboard.editing()
	}
	return false
}

// chromeLines is header(2) + tabs(1) + help(1).
const chromeLines = 4

func (a App) View() string {
	header := centerLine(renderShimmerLogo(a.frame), a.width) + "\n"
	if u := a.sess.User(); u != nil {
		header += centerLine(metaStyle.Render("signed in as ")+accentStyle.Render(u.DisplayName()), a.width)
	} else if a.sess.IsAuthenticated() {
		header += centerLine(metaStyle.Render("signed in"), a.width)
	}

	var body, help string
	switch a.route.Name {
	case router.Landing:
		body, help = a.landing.View(), a.landing.helpKeys()
	case router.Projects:
		body, help = a.projects.View(), a.projects.helpKeys()
	case router.CarRegistration:
		body, help = a.lookup.View(a.frame), a.lookup.helpKeys()
	case router.AdminLogin:
		body, help = a.login.View(a.frame), a.login.helpKeys()
	case router.AdminDashboard:
		body, help = a.dashboard.View(a.frame), a.dashboard.helpKeys()
	}

	if a.helpOpen {
		body = helpView(a.helpCursor, a.version)
		help = helpBar(helpEntry("j/k", "nav"), helpEntry("enter", "open"), helpEntry("esc", "close"))
	}

	body = strings.TrimRight(truncateToHeight(body, a.height-chromeLines), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n%s", header, a.tabBar(), body, help)
}

// tabBar spreads the tabs over equal-width columns.
func (a App) tabBar() string {
	colWidth := a.width / len(tabs)
	var b strings.Builder
	for _, t := range tabs {
		active := t.route == a.route.Name ||
			(t.route == router.AdminLogin && a.route.Name == router.AdminDashboard)
		var label string
		if active {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.label)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.label)
		}
		w := lipgloss.Width(label)
		left := max((colWidth-w)/2, 0)
		right := max(colWidth-w-left, 0)
		b.WriteString(strings.Repeat(" ", left) + label + strings.Repeat(" ", right))
	}
	return b.String()
}

func centerLine(s string, width int) string {
	pad := max((width-lipgloss.Width(s))/2, 0)
	return strings.Repeat(" ", pad) + s
}
