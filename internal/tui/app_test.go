package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zohaib/garage/internal/apitest"
	"github.com/zohaib/garage/internal/router"
	"github.com/zohaib/garage/pkg/client"
	"github.com/zohaib/garage/pkg/domain"
	"github.com/zohaib/garage/pkg/session"
	"github.com/zohaib/garage/pkg/store"
)

var testAdmin = domain.User{ID: 7, Username: "admin", Email: "admin@zohaib.no", FirstName: "Zohaib"}

// testEnv wires a fake API, a client, a memory store and a session the way
// main does.
type testEnv struct {
	srv  *apitest.Server
	api  *client.Client
	st   store.Store
	sess *session.Session
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := apitest.New(t)
	srv.AddUser(testAdmin, "secret")
	st := store.NewMemory()
	c := client.New(srv.URL, st)
	sess := session.New(context.Background(), c, st)
	sess.Bind(c)
	return &testEnv{srv: srv, api: c, st: st, sess: sess}
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	if !e.sess.Login(context.Background(), "admin", "secret") {
		t.Fatalf("Login() failed: %s", e.sess.LastError())
	}
}

func (e *testEnv) app(t *testing.T, start string) App {
	t.Helper()
	a := NewApp(e.api, e.sess, "test", start)
	a.width = 100
	a.height = 40
	t.Cleanup(a.Close)
	return a
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(a App, msg tea.Msg) (App, tea.Cmd) {
	m, cmd := a.Update(msg)
	return m.(App), cmd
}

// press sends keys one by one and returns the last command.
func press(a App, keys ...string) (App, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		a, cmd = update(a, key(k))
	}
	return a, cmd
}

// typeText sends each rune of text as its own key.
func typeText(a App, text string) App {
	for _, r := range text {
		a, _ = update(a, key(string(r)))
	}
	return a
}

// runCmd executes cmd and flattens batches. Commands that block, such as
// the session-event wait with nothing pending, are abandoned after a short
// timeout.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		switch msg := msg.(type) {
		case nil:
			return nil
		case tea.BatchMsg:
			var out []tea.Msg
			for _, c := range msg {
				out = append(out, runCmd(c)...)
			}
			return out
		default:
			return []tea.Msg{msg}
		}
	case <-time.After(150 * time.Millisecond):
		return nil
	}
}

// pump runs cmd and feeds every resulting message back into the app until
// nothing is left.
func pump(t *testing.T, a App, cmd tea.Cmd) App {
	t.Helper()
	queue := runCmd(cmd)
	for i := 0; i < 40 && len(queue) > 0; i++ {
		msg := queue[0]
		queue = queue[1:]
		if _, ok := msg.(shimmerTickMsg); ok {
			continue
		}
		var next tea.Cmd
		a, next = update(a, msg)
		queue = append(queue, runCmd(next)...)
	}
	return a
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestAppStartsAtRequestedRoute(t *testing.T) {
	env := newTestEnv(t)
	if got := env.app(t, router.Landing).Route().Name; got != router.Landing {
		t.Errorf("route = %q, want landing", got)
	}
	if got := env.app(t, "nowhere").Route().Name; got != router.Landing {
		t.Errorf("unknown start route = %q, want landing", got)
	}
}

func TestAppTabSwitching(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"1", router.Landing},
		{"2", router.Projects},
		{"3", router.CarRegistration},
		{"4", router.AdminLogin},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			a := newTestEnv(t).app(t, router.Landing)
			a, _ = press(a, tc.key)
			if a.route.Name != tc.want {
				t.Errorf("after key %q: route = %q, want %q", tc.key, a.route.Name, tc.want)
			}
		})
	}
}

func TestAppGuardRedirectsAnonymousDashboard(t *testing.T) {
	a := newTestEnv(t).app(t, router.AdminDashboard)
	if a.route.Name != router.AdminLogin {
		t.Errorf("route = %q, want adminLogin", a.route.Name)
	}
}

func TestAppGuardRedirectsLoginWhenAuthenticated(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	a := env.app(t, router.AdminLogin)
	if a.route.Name != router.AdminDashboard {
		t.Fatalf("start route = %q, want adminDashboard", a.route.Name)
	}

	a, _ = press(a, "1", "4")
	if a.route.Name != router.AdminDashboard {
		t.Errorf("tab 4 while signed in: route = %q, want adminDashboard", a.route.Name)
	}
}

func TestAppInitializesTokenWithoutUser(t *testing.T) {
	env := newTestEnv(t)
	pair := env.srv.IssueTokens("admin")
	ctx := context.Background()
	env.st.Set(ctx, store.KeyAccessToken, pair.Access)   //nolint:errcheck
	env.st.Set(ctx, store.KeyRefreshToken, pair.Refresh) //nolint:errcheck
	env.sess = session.New(ctx, env.api, env.st)

	a := env.app(t, router.Projects)
	if !a.initOnStart {
		t.Fatal("expected background initialization for a token without a profile")
	}
	if a.route.Name != router.Projects {
		t.Errorf("initialization must not block navigation, route = %q", a.route.Name)
	}

	runCmd(a.initializeCmd())
	if u := env.sess.User(); u == nil || u.Username != "admin" {
		t.Errorf("User() = %+v after initialize", u)
	}
}

func TestAppQuit(t *testing.T) {
	a := newTestEnv(t).app(t, router.Landing)
	if _, cmd := press(a, "q"); !isQuit(cmd) {
		t.Error("expected quit on q")
	}
	if _, cmd := press(a, "ctrl+c"); !isQuit(cmd) {
		t.Error("expected quit on ctrl+c")
	}
}

func TestAppDigitsGoToFocusedInput(t *testing.T) {
	a := newTestEnv(t).app(t, router.CarRegistration)
	if !a.isEditing() {
		t.Fatal("registration input should be focused on entry")
	}

	a = typeText(a, "AB12")
	if a.route.Name != router.CarRegistration {
		t.Fatalf("typing digits switched route to %q", a.route.Name)
	}
	if a.lookup.input.value != "AB12" {
		t.Errorf("input = %q, want AB12", a.lookup.input.value)
	}

	a, _ = press(a, "esc", "2")
	if a.route.Name != router.Projects {
		t.Errorf("after esc, tab 2 should navigate; route = %q", a.route.Name)
	}
}

func TestAppQWhileEditingIsText(t *testing.T) {
	a := newTestEnv(t).app(t, router.AdminLogin)
	a, cmd := press(a, "q")
	if isQuit(cmd) {
		t.Fatal("q in a focused field must not quit")
	}
	if got := a.login.fields[loginUsername].value; got != "q" {
		t.Errorf("username = %q, want q", got)
	}
}

func TestAppHelpOverlay(t *testing.T) {
	a := newTestEnv(t).app(t, router.Landing)
	a, _ = press(a, "h")
	if !a.helpOpen {
		t.Fatal("expected help overlay open")
	}
	if !strings.Contains(a.View(), "garage lookup REG") {
		t.Error("help overlay should list commands")
	}

	a, _ = press(a, "j", "j", "j", "j")
	if a.helpCursor != len(helpItems)-1 {
		t.Errorf("helpCursor = %d, want clamped to %d", a.helpCursor, len(helpItems)-1)
	}

	a, _ = press(a, "2")
	if a.route.Name != router.Landing {
		t.Error("help overlay must capture tab keys")
	}
	a, _ = press(a, "esc")
	if a.helpOpen {
		t.Error("expected help overlay closed after esc")
	}
}

func TestAppLoginFlowReachesDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.srv.AddProject(domain.Project{CarName: "Saab 900", Price: 45000, IsActive: true})
	a := env.app(t, router.AdminLogin)

	a = typeText(a, "admin")
	a, _ = press(a, "enter")
	a = typeText(a, "secret")
	a, cmd := press(a, "enter")
	if !a.login.submitting {
		t.Fatal("expected submitting state")
	}

	a = pump(t, a, cmd)
	if a.route.Name != router.AdminDashboard {
		t.Fatalf("route = %q, want adminDashboard", a.route.Name)
	}
	if len(a.dashboard.projects) != 1 {
		t.Errorf("dashboard has %d projects, want 1", len(a.dashboard.projects))
	}
	if !strings.Contains(a.View(), "Zohaib") {
		t.Error("header should show the signed-in admin")
	}
}

func TestAppSessionExpiryNavigatesToLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	a := env.app(t, router.AdminDashboard)
	a = pump(t, a, a.dashboard.Init())

	env.srv.ExpireAccessTokens()
	env.srv.SetRefreshFails(true)

	// The reload hits a 401, the refresh fails, and the session expires.
	a, cmd := press(a, "r")
	a = pump(t, a, tea.Batch(cmd, waitForSessionEvent(a.events)))

	if a.route.Name != router.AdminLogin {
		t.Fatalf("route = %q, want adminLogin", a.route.Name)
	}
	if a.login.notice != msgSessionExpired {
		t.Errorf("notice = %q", a.login.notice)
	}
	if env.sess.IsAuthenticated() {
		t.Error("session should be cleared")
	}
	for _, k := range store.SessionKeys {
		if v, _ := env.st.Get(context.Background(), k); v != "" {
			t.Errorf("store key %q = %q after expiry", k, v)
		}
	}
}

func TestAppLogoutFromDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	a := env.app(t, router.AdminDashboard)

	a, cmd := press(a, "L")
	a = pump(t, a, cmd)
	if a.route.Name != router.AdminLogin {
		t.Errorf("route = %q, want adminLogin", a.route.Name)
	}
	if env.sess.IsAuthenticated() {
		t.Error("still authenticated after logout")
	}
}

func TestAppViewRendersChrome(t *testing.T) {
	a := newTestEnv(t).app(t, router.Landing)
	v := a.View()
	for _, want := range []string{"Home", "Projects", "Registration", "Admin", "Welcome to the garage"} {
		if !strings.Contains(v, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if lines := strings.Count(v, "\n") + 1; lines > a.height {
		t.Errorf("View() has %d lines, taller than %d", lines, a.height)
	}
}

func TestLandingEnterNavigates(t *testing.T) {
	a := newTestEnv(t).app(t, router.Landing)
	a, cmd := press(a, "j", "enter")
	a = pump(t, a, cmd)
	if a.route.Name != router.CarRegistration {
		t.Errorf("route = %q, want carRegistration", a.route.Name)
	}
}
