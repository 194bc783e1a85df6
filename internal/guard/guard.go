// Package guard decides where a navigation ends up given the caller's
// authentication state.
package guard

// Route names.
const (
	RouteLogin = "login"
	RouteAdmin = "admin"
)

// Route describes a navigation target.
type Route struct {
	Name         string
	RequiresAuth bool
}

// Decision is the outcome of a navigation. Redirect is empty when the
// navigation is allowed.
type Decision struct {
	Allow    bool
	Redirect string
}

// Resolve applies the navigation rules: a signed-in user is sent from the
// login page to the admin area, and protected routes send everyone else to
// the login page.
func Resolve(route Route, authenticated bool) Decision {
	if route.Name == RouteLogin && authenticated {
		return Decision{Redirect: RouteAdmin}
	}
	if route.RequiresAuth && !authenticated {
		return Decision{Redirect: RouteLogin}
	}
	return Decision{Allow: true}
}
