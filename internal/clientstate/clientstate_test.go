package clientstate_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapter-verse/bookfront/internal/clientstate"
)

func TestMemory_GetSet(t *testing.T) {
	m := clientstate.NewMemory()

	_, ok := m.Get("brand_variant")
	assert.False(t, ok)

	m.Set("brand_variant", "modern")
	v, ok := m.Get("brand_variant")
	assert.True(t, ok)
	assert.Equal(t, "modern", v)

	m.Clear()
	_, ok = m.Get("brand_variant")
	assert.False(t, ok)
}

func TestMemory_ZeroValue(t *testing.T) {
	var m clientstate.Memory
	m.Set("k", "v")
	v, _ := m.Get("k")
	assert.Equal(t, "v", v)
}

func TestCookies_RoundTrip(t *testing.T) {
	cookies := clientstate.NewCookies([]byte("0123456789abcdef0123456789abcdef"), false)

	// First request: nothing stored yet.
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/brand", nil)
	state := cookies.For(w, r)

	_, ok := state.Visitor().Get("brand_variant")
	require.False(t, ok)

	state.Visitor().Set("brand_variant", "poetic")
	state.Session().Set("analytics_session_id", "1700000000000-abc123def")
	require.NoError(t, state.Save())

	resp := w.Result()
	var visitor, session *http.Cookie
	for _, c := range resp.Cookies() {
		switch c.Name {
		case clientstate.VisitorCookieName:
			visitor = c
		case clientstate.SessionCookieName:
			session = c
		}
	}
	require.NotNil(t, visitor)
	require.NotNil(t, session)
	assert.Greater(t, visitor.MaxAge, 0)
	assert.Equal(t, 0, session.MaxAge)

	// Second request carries the cookies back.
	w2 := httptest.NewRecorder()
	r2 := httptest.NewRequest(http.MethodGet, "/api/brand", nil)
	r2.AddCookie(visitor)
	r2.AddCookie(session)
	state2 := cookies.For(w2, r2)

	v, ok := state2.Visitor().Get("brand_variant")
	assert.True(t, ok)
	assert.Equal(t, "poetic", v)

	sid, ok := state2.Session().Get("analytics_session_id")
	assert.True(t, ok)
	assert.Equal(t, "1700000000000-abc123def", sid)

	// Nothing changed, so nothing is rewritten.
	require.NoError(t, state2.Save())
	assert.Empty(t, w2.Result().Cookies())
}

func TestCookies_TamperedCookieStartsEmpty(t *testing.T) {
	cookies := clientstate.NewCookies([]byte("0123456789abcdef0123456789abcdef"), false)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: clientstate.VisitorCookieName, Value: "not-a-signed-value"})
	state := cookies.For(httptest.NewRecorder(), r)

	_, ok := state.Visitor().Get("brand_variant")
	assert.False(t, ok)
}

func TestVisitorID(t *testing.T) {
	m := clientstate.NewMemory()
	id := clientstate.VisitorID(m)
	assert.Len(t, id, 36)
	assert.Equal(t, id, clientstate.VisitorID(m))
	assert.NotEqual(t, id, clientstate.VisitorID(clientstate.NewMemory()))
}
