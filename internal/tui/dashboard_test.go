package tui

import (
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zohaib/garage/pkg/client"
	"github.com/zohaib/garage/pkg/domain"
)

var testProjects = []domain.Project{
	{ID: 1, CarName: "Saab 900", Price: 45000, IsActive: true},
	{ID: 2, CarName: "Volvo 240", Description: "wagon", Price: 30000},
}

func newTestDashboard(t *testing.T, api *stubAPI) dashboardModel {
	t.Helper()
	env := newTestEnv(t)
	env.signIn(t)
	m := newDashboardModel(api, env.sess).reset()
	m, _ = m.Update(dashProjectsMsg{projects: append([]domain.Project(nil), api.projects...)})
	return m
}

// feed runs cmd and passes its message back to the model.
func feed(m dashboardModel, cmd tea.Cmd) (dashboardModel, tea.Cmd) {
	if cmd == nil {
		return m, nil
	}
	return m.Update(cmd())
}

func typeForm(m dashboardModel, text string) dashboardModel {
	for _, r := range text {
		m, _ = m.Update(key(string(r)))
	}
	return m
}

func TestDashboardShowsProfileAndToken(t *testing.T) {
	m := newTestDashboard(t, &stubAPI{projects: testProjects})
	v := m.View(0)
	for _, want := range []string{"Zohaib", "@admin", "admin@zohaib.no", "token ", "Saab 900", "45 000 kr", "inactive"} {
		if !strings.Contains(v, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestDashboardTokenCountdown(t *testing.T) {
	m := newTestDashboard(t, &stubAPI{})
	info, ok := m.sess.TokenInfo()
	if !ok {
		t.Fatal("TokenInfo() not available for a signed-in session")
	}
	m.now = func() time.Time { return info.ExpiresAt.Add(-30 * time.Second) }
	if !strings.Contains(m.profileView(), "token 30s") {
		t.Errorf("profileView() = %q", m.profileView())
	}
	m.now = func() time.Time { return info.ExpiresAt.Add(time.Minute) }
	if !strings.Contains(m.profileView(), "token expired") {
		t.Errorf("profileView() = %q", m.profileView())
	}
}

func TestDashboardCreateProject(t *testing.T) {
	api := &stubAPI{projects: testProjects}
	m := newTestDashboard(t, api)

	m, _ = m.Update(key("n"))
	if !m.editing() {
		t.Fatal("n should open the form")
	}
	m = typeForm(m, "Mazda MX-5")
	m, _ = m.Update(key("tab"))
	m, _ = m.Update(key("tab"))
	m = typeForm(m, "12x50")

	m, cmd := m.Update(key("ctrl+s"))
	m, cmd = feed(m, cmd) // formSubmitMsg
	if !m.busy {
		t.Fatal("expected busy while saving")
	}
	m, _ = feed(m, cmd) // projectSavedMsg

	if m.editing() {
		t.Error("form should close after save")
	}
	if len(api.created) != 1 {
		t.Fatalf("created %d projects, want 1", len(api.created))
	}
	in := api.created[0]
	if in.CarName != "Mazda MX-5" || in.Price != 1250 || !in.IsActive {
		t.Errorf("created %+v", in)
	}
	if m.projects[0].CarName != "Mazda MX-5" || m.cursor != 0 {
		t.Errorf("new project should be first and selected, got %+v", m.projects[0])
	}
	if !strings.Contains(m.status, "created") {
		t.Errorf("status = %q", m.status)
	}
}

func TestDashboardCreateDefaultsPrice(t *testing.T) {
	api := &stubAPI{}
	m := newTestDashboard(t, api)
	m, _ = m.Update(key("n"))
	m = typeForm(m, "Golf")
	m, cmd := m.Update(key("ctrl+s"))
	m, cmd = feed(m, cmd)
	feed(m, cmd)
	if api.created[0].Price != domain.DefaultProjectPrice {
		t.Errorf("price = %d, want default", api.created[0].Price)
	}
}

func TestDashboardFormValidation(t *testing.T) {
	api := &stubAPI{}
	m := newTestDashboard(t, api)
	m, _ = m.Update(key("n"))

	m, cmd := m.Update(key("ctrl+s"))
	if cmd != nil {
		t.Fatal("an empty car name must not submit")
	}
	if m.form.err != domain.ErrCarNameRequired.Error() {
		t.Errorf("form.err = %q", m.form.err)
	}
}

func TestDashboardEditSendsOnlyChanges(t *testing.T) {
	api := &stubAPI{projects: testProjects}
	m := newTestDashboard(t, api)

	m, _ = m.Update(key("e"))
	if m.form.editing == nil || m.form.editing.ID != 1 {
		t.Fatalf("editing = %+v", m.form.editing)
	}
	m, _ = m.Update(key("tab"))
	m, _ = m.Update(key("tab"))
	for i := 0; i < 5; i++ {
		m, _ = m.Update(key("backspace"))
	}
	m = typeForm(m, "50000")

	m, cmd := m.Update(key("ctrl+s"))
	m, cmd = feed(m, cmd)
	m, _ = feed(m, cmd)

	if len(api.patches) != 1 {
		t.Fatalf("got %d patches", len(api.patches))
	}
	p := api.patches[0]
	if p.Price == nil || *p.Price != 50000 || p.CarName != nil || p.IsActive != nil || p.Description != nil {
		t.Errorf("patch = %+v, want only price", p)
	}
	if m.projects[0].Price != 50000 {
		t.Errorf("list not updated: %+v", m.projects[0])
	}
}

func TestDashboardEditWithoutChanges(t *testing.T) {
	api := &stubAPI{projects: testProjects}
	m := newTestDashboard(t, api)
	m, _ = m.Update(key("e"))
	m, cmd := m.Update(key("ctrl+s"))
	m, cmd = feed(m, cmd)
	if cmd != nil || len(api.patches) != 0 {
		t.Error("unchanged form should not call the API")
	}
	if m.status != "no changes" || m.editing() {
		t.Errorf("status = %q, editing = %v", m.status, m.editing())
	}
}

func TestDashboardFormCancel(t *testing.T) {
	m := newTestDashboard(t, &stubAPI{projects: testProjects})
	m, _ = m.Update(key("n"))
	m, cmd := m.Update(key("esc"))
	m, _ = feed(m, cmd)
	if m.editing() {
		t.Error("esc should close the form")
	}
}

func TestDashboardDeleteNeedsConfirmation(t *testing.T) {
	api := &stubAPI{projects: testProjects}
	m := newTestDashboard(t, api)
	m, _ = m.Update(key("j"))

	m, _ = m.Update(key("d"))
	if m.mode != dashConfirmDelete {
		t.Fatal("d should ask for confirmation")
	}
	if !strings.Contains(m.View(0), `Delete "Volvo 240"?`) {
		t.Error("confirmation should name the project")
	}
	m, _ = m.Update(key("n"))
	if m.mode != dashList || len(api.deleted) != 0 {
		t.Fatal("n should cancel without deleting")
	}

	m, _ = m.Update(key("d"))
	m, cmd := m.Update(key("y"))
	m, _ = feed(m, cmd)
	if len(api.deleted) != 1 || api.deleted[0] != 2 {
		t.Fatalf("deleted = %v, want [2]", api.deleted)
	}
	if len(m.projects) != 1 || m.cursor != 0 {
		t.Errorf("projects = %+v, cursor = %d", m.projects, m.cursor)
	}
}

func TestDashboardToggleActive(t *testing.T) {
	api := &stubAPI{projects: testProjects}
	m := newTestDashboard(t, api)

	m, cmd := m.Update(key("a"))
	m, _ = feed(m, cmd)
	p := api.patches[0]
	if p.IsActive == nil || *p.IsActive {
		t.Errorf("patch = %+v, want is_active=false", p)
	}
	if m.projects[0].IsActive {
		t.Error("list should reflect the toggle")
	}
}

func TestDashboardSaveErrorStaysInForm(t *testing.T) {
	api := &stubAPI{saveErr: &client.HTTPError{StatusCode: http.StatusBadRequest, Message: "price: Ensure this value is greater than or equal to 0."}}
	m := newTestDashboard(t, api)
	m, _ = m.Update(key("n"))
	m = typeForm(m, "Golf")
	m, cmd := m.Update(key("ctrl+s"))
	m, cmd = feed(m, cmd)
	m, _ = feed(m, cmd)

	if !m.editing() {
		t.Fatal("form should stay open on error")
	}
	if !strings.Contains(m.form.err, "price") {
		t.Errorf("form.err = %q", m.form.err)
	}
}

func TestDashboardLoadError(t *testing.T) {
	m := newTestDashboard(t, &stubAPI{})
	m, _ = m.Update(dashProjectsMsg{err: &client.NetworkError{Method: "GET", Path: "/projects/"}})
	if m.err != client.MsgNoResponse {
		t.Errorf("err = %q", m.err)
	}
}

func TestFormPriceAcceptsDigitsOnly(t *testing.T) {
	f := newProjectForm(nil)
	f.focus = formPrice
	for _, k := range []string{"1", "a", "2", "-", "3"} {
		f, _ = f.Update(key(k))
	}
	if got := f.fields[formPrice].value; got != "123" {
		t.Errorf("price = %q, want 123", got)
	}
}

func TestFormActiveToggle(t *testing.T) {
	f := newProjectForm(&domain.Project{ID: 3, CarName: "Beetle"})
	if f.active {
		t.Fatal("editing an inactive project should start unchecked")
	}
	f.focus = formActive
	f, _ = f.Update(key(" "))
	if !f.active {
		t.Error("space should toggle active")
	}
	in, err := f.input()
	if err != nil || !in.IsActive || in.CarName != "Beetle" {
		t.Errorf("input() = %+v, %v", in, err)
	}
}
