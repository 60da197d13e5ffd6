package client

import (
	"net/url"
	"strings"

	"github.com/lborres/medauth/core"
)

const (
	DefaultRedirectTo       = "/login"
	DefaultUnauthorizedPath = "/unauthorized"
)

type GuardState int

const (
	GuardLoading GuardState = iota
	GuardUnauthenticated
	GuardUnauthorized
	GuardAuthorized
)

func (g GuardState) String() string {
	switch g {
	case GuardLoading:
		return "loading"
	case GuardUnauthenticated:
		return "unauthenticated"
	case GuardUnauthorized:
		return "authenticated-unauthorized"
	case GuardAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a guard evaluation. Redirect is set for the
// unauthenticated and unauthorized states. Render is true only when the
// protected content may be shown.
type Decision struct {
	State    GuardState
	Redirect string
}

func (d Decision) Render() bool {
	return d.State == GuardAuthorized
}

// Guard gates a protected path on the session state. An empty RequiredRoles
// admits any authenticated user.
type Guard struct {
	RequiredRoles    []string
	RedirectTo       string
	UnauthorizedPath string
}

// Evaluate decides what to do for path given the session state.
func (g Guard) Evaluate(s State, path string) Decision {
	if s.IsLoading {
		return Decision{State: GuardLoading}
	}

	if !s.IsAuthenticated {
		redirect := g.RedirectTo
		if redirect == "" {
			redirect = DefaultRedirectTo
		}
		return Decision{
			State:    GuardUnauthenticated,
			Redirect: redirect + "?returnUrl=" + encodeURIComponent(path),
		}
	}

	if !core.HasAnyRole(s.User, g.RequiredRoles) {
		target := g.UnauthorizedPath
		if target == "" {
			target = DefaultUnauthorizedPath
		}
		return Decision{State: GuardUnauthorized, Redirect: target}
	}

	return Decision{State: GuardAuthorized}
}

// Watch evaluates now and again after every store change, calling fn each
// time the decision differs from the previous one. Call stop to detach.
// Decisions follow the order of store changes, so the latest call always
// reflects the latest state.
func (g Guard) Watch(store *Store, path string, fn func(Decision)) (stop func()) {
	var last *Decision
	// Deliveries to one subscription are serialized.
	emit := func(s State) {
		d := g.Evaluate(s, path)
		if last != nil && *last == d {
			return
		}
		last = &d
		fn(d)
	}

	return store.subscribeCurrent(emit)
}

var uriComponentFixups = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeURIComponent escapes s the way browsers do for a query component.
func encodeURIComponent(s string) string {
	return uriComponentFixups.Replace(url.QueryEscape(s))
}
