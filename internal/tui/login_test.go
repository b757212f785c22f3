package tui

import (
	"strings"
	"testing"

	"github.com/zohaib/garage/internal/apitest"
)

func typeLogin(m loginModel, text string) loginModel {
	for _, r := range text {
		m, _ = m.Update(key(string(r)))
	}
	return m
}

func TestLoginPasswordIsMasked(t *testing.T) {
	env := newTestEnv(t)
	m := newLoginModel(env.sess).reset()
	m = typeLogin(m, "admin")
	m, _ = m.Update(key("tab"))
	m = typeLogin(m, "hunter2")

	v := m.View(1)
	if strings.Contains(v, "hunter2") {
		t.Error("password rendered in clear text")
	}
	if !strings.Contains(v, strings.Repeat("•", 7)) {
		t.Error("expected a masked password")
	}
	if !strings.Contains(v, "admin") {
		t.Error("username should be visible")
	}
}

func TestLoginRequiresBothFields(t *testing.T) {
	env := newTestEnv(t)
	m := newLoginModel(env.sess).reset()
	m = typeLogin(m, "admin")
	m, _ = m.Update(key("enter")) // to password
	m, cmd := m.Update(key("enter"))
	if cmd != nil {
		t.Fatal("submit without a password should not call the API")
	}
	if m.err != msgCredentialsRequired {
		t.Errorf("err = %q", m.err)
	}
	if n := len(env.srv.RequestsTo("/auth/jwt/create/")); n != 0 {
		t.Errorf("got %d token requests", n)
	}
}

func TestLoginFailureShowsServerDetail(t *testing.T) {
	env := newTestEnv(t)
	m := newLoginModel(env.sess).reset()
	m = typeLogin(m, "admin")
	m, _ = m.Update(key("enter"))
	m = typeLogin(m, "wrong")

	m, cmd := m.Update(key("enter"))
	if !m.submitting {
		t.Fatal("expected submitting state")
	}
	m, _ = m.Update(cmd())

	if m.submitting {
		t.Error("submitting should clear")
	}
	if m.err != apitest.DetailBadCredentials {
		t.Errorf("err = %q, want %q", m.err, apitest.DetailBadCredentials)
	}
	if m.fields[loginPassword].value != "" {
		t.Error("password should be cleared after a failed attempt")
	}
	if m.fields[loginUsername].value != "admin" {
		t.Error("username should be kept after a failed attempt")
	}
}

func TestLoginSuccessClearsForm(t *testing.T) {
	env := newTestEnv(t)
	m := newLoginModel(env.sess).reset()
	m.notice = msgSessionExpired
	m.fields[loginUsername].value = "admin"
	m.fields[loginPassword].value = "secret"
	m.focus = loginPassword

	m, cmd := m.Update(key("enter"))
	msg := cmd().(loginDoneMsg)
	if !msg.ok {
		t.Fatalf("login failed: %s", msg.err)
	}
	m, _ = m.Update(msg)
	if m.notice != "" || m.err != "" {
		t.Errorf("notice = %q, err = %q after success", m.notice, m.err)
	}
	if m.fields[loginUsername].value != "" || m.fields[loginPassword].value != "" {
		t.Error("form should be empty after success")
	}
	if !env.sess.IsAuthenticated() {
		t.Error("session not authenticated")
	}
}

func TestLoginResetKeepsNotice(t *testing.T) {
	m := newLoginModel(nil)
	m.notice = msgSessionExpired
	m.err = "old"
	m = m.reset()
	if m.notice != msgSessionExpired || m.err != "" || !m.focused {
		t.Errorf("reset() = notice %q, err %q, focused %v", m.notice, m.err, m.focused)
	}
}

func TestLoginEscBlurs(t *testing.T) {
	m := newLoginModel(nil).reset()
	m, _ = m.Update(key("esc"))
	if m.focused {
		t.Error("esc should leave the form")
	}
	m, _ = m.Update(key("i"))
	if !m.focused {
		t.Error("i should focus the form")
	}
}
