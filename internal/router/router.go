// Package router holds the navigable routes and the guard evaluated before
// every navigation.
package router

// Route names.
const (
	Landing         = "landing"
	Projects        = "projects"
	CarRegistration = "carRegistration"
	AdminLogin      = "adminLogin"
	AdminDashboard  = "adminDashboard"
)

// Route describes one navigable screen.
type Route struct {
	Name         string
	Path         string
	Title        string
	RequiresAuth bool
}

var routes = []Route{
	{Name: Landing, Path: "/", Title: "Home"},
	{Name: Projects, Path: "/projects", Title: "Projects"},
	{Name: CarRegistration, Path: "/car-registration", Title: "Registration"},
	{Name: AdminLogin, Path: "/admin", Title: "Admin"},
	{Name: AdminDashboard, Path: "/admin/dashboard", Title: "Dashboard", RequiresAuth: true},
}

// Routes returns every route in tab order.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Lookup finds a route by name or by path.
func Lookup(key string) (Route, bool) {
	for _, r := range routes {
		if r.Name == key || r.Path == key {
			return r, true
		}
	}
	return Route{}, false
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) Route {
	r, ok := Lookup(name)
	if !ok {
		panic("router: unknown route " + name)
	}
	return r
}

// State is the part of the session the guard reads.
type State struct {
	HasToken bool
	HasUser  bool
}

// Authenticated reports whether an access token is held.
func (s State) Authenticated() bool {
	return s.HasToken
}

// Decision is the outcome of Guard.
type Decision struct {
	// Target is where navigation ends up; it differs from the requested route
	// when Redirected is set.
	Target     Route
	Redirected bool
	// Initialize asks the caller to start session initialization in the
	// background. Navigation does not wait for it.
	Initialize bool
}

// Guard decides where a navigation to `to` lands.
func Guard(to Route, s State) Decision {
	d := Decision{Target: to}
	if s.HasToken && !s.HasUser {
		d.Initialize = true
	}

	switch {
	case to.RequiresAuth && !s.Authenticated():
		d.Target = MustLookup(AdminLogin)
		d.Redirected = true
	case to.Name == AdminLogin && s.Authenticated():
		d.Target = MustLookup(AdminDashboard)
		d.Redirected = true
	}
	return d
}
