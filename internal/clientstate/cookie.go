package clientstate

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	VisitorCookieName = "bookfront_visitor"
	SessionCookieName = "bookfront_session"

	oneYear = 365 * 24 * 60 * 60
)

// Scope selects which cookie a key lives in.
type Scope int

const (
	// ScopeVisitor survives browser restarts.
	ScopeVisitor Scope = iota
	// ScopeSession is dropped when the browser closes.
	ScopeSession
)

// Cookies builds request-bound Stores on top of signed cookies.
type Cookies struct {
	store *sessions.CookieStore
}

// NewCookies creates cookie-backed state signed with secret. secure sets the
// Secure attribute on every cookie.
func NewCookies(secret []byte, secure bool) *Cookies {
	cs := sessions.NewCookieStore(secret)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   oneYear,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	// Also resets the codec timestamp window, which defaults to 30 days.
	cs.MaxAge(oneYear)
	return &Cookies{store: cs}
}

// Request is the client state for one HTTP exchange.
type Request struct {
	r       *http.Request
	w       http.ResponseWriter
	visitor *sessions.Session
	session *sessions.Session
	dirty   map[Scope]bool
}

// For loads both cookie scopes from r. A cookie that fails to decode
// (tampered, or signed with a rotated secret) starts out empty.
func (c *Cookies) For(w http.ResponseWriter, r *http.Request) *Request {
	visitor, _ := c.store.Get(r, VisitorCookieName)
	session, _ := c.store.Get(r, SessionCookieName)

	// Browser-session cookie: no Max-Age, no Expires.
	opts := *c.store.Options
	opts.MaxAge = 0
	session.Options = &opts

	return &Request{
		r:       r,
		w:       w,
		visitor: visitor,
		session: session,
		dirty:   make(map[Scope]bool),
	}
}

// Visitor returns a Store over the persistent scope.
func (q *Request) Visitor() Store { return scoped{q: q, scope: ScopeVisitor} }

// Session returns a Store over the browser-session scope.
func (q *Request) Session() Store { return scoped{q: q, scope: ScopeSession} }

// Save writes the cookies that changed. Call before writing the body.
func (q *Request) Save() error {
	if q.dirty[ScopeVisitor] {
		if err := q.visitor.Save(q.r, q.w); err != nil {
			return fmt.Errorf("failed to save visitor cookie: %w", err)
		}
	}
	if q.dirty[ScopeSession] {
		if err := q.session.Save(q.r, q.w); err != nil {
			return fmt.Errorf("failed to save session cookie: %w", err)
		}
	}
	q.dirty = make(map[Scope]bool)
	return nil
}

func (q *Request) target(scope Scope) *sessions.Session {
	if scope == ScopeSession {
		return q.session
	}
	return q.visitor
}

type scoped struct {
	q     *Request
	scope Scope
}

func (s scoped) Get(key string) (string, bool) {
	v, ok := s.q.target(s.scope).Values[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

func (s scoped) Set(key, value string) {
	sess := s.q.target(s.scope)
	if cur, ok := sess.Values[key].(string); ok && cur == value {
		return
	}
	sess.Values[key] = value
	s.q.dirty[s.scope] = true
}
