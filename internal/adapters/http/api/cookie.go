package api

import "net/http"

// sessionCookies reads and writes the cookie carrying the session id.
// The cookie has no Max-Age so it lives as long as the browser session.
type sessionCookies struct {
	name   string
	secure bool
}

func (c sessionCookies) get(r *http.Request) string {
	ck, err := r.Cookie(c.name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func (c sessionCookies) set(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
