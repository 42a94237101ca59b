// File: pkg/webdriver/cookies.go
package webdriver

import (
	"context"
	"net/http"
	"net/url"
)

// Cookie is the wire shape of a browser cookie.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	// Expiry is in seconds since the epoch; zero means a session cookie.
	Expiry int64 `json:"expiry,omitempty"`
}

// GetCookies returns every cookie visible to the current page.
func (s *Session) GetCookies(ctx context.Context) (cookies []Cookie, err error) {
	defer s.trace("GetCookies", &err)
	value, err := s.command(ctx, Command{Path: "/cookie", Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	err = value.Decode(&cookies)
	return cookies, err
}

// GetCookie returns the named cookie, or nil when the page has none by that
// name. Servers answer either with the cookie itself or with the full list.
func (s *Session) GetCookie(ctx context.Context, name string) (cookie *Cookie, err error) {
	defer s.trace("GetCookie", &err, name)
	value, err := s.command(ctx, Command{Path: "/cookie/" + url.PathEscape(name), Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	if value.IsNull() {
		return nil, nil
	}
	if len(value) > 0 && value[0] == '[' {
		var cookies []Cookie
		if err := value.Decode(&cookies); err != nil {
			return nil, err
		}
		for i := range cookies {
			if cookies[i].Name == name {
				return &cookies[i], nil
			}
		}
		return nil, nil
	}
	cookie = &Cookie{}
	if err := value.Decode(cookie); err != nil {
		return nil, err
	}
	return cookie, nil
}

// SetCookie adds a cookie to the current page.
func (s *Session) SetCookie(ctx context.Context, cookie Cookie) (err error) {
	defer s.trace("SetCookie", &err, cookie.Name)
	_, err = s.command(ctx, Command{Path: "/cookie", Method: http.MethodPost, Body: map[string]any{"cookie": cookie}})
	return err
}

// DeleteCookie removes the named cookie.
func (s *Session) DeleteCookie(ctx context.Context, name string) (err error) {
	defer s.trace("DeleteCookie", &err, name)
	_, err = s.command(ctx, Command{Path: "/cookie/" + url.PathEscape(name), Method: http.MethodDelete})
	return err
}

// DeleteCookies removes every cookie visible to the current page.
func (s *Session) DeleteCookies(ctx context.Context) (err error) {
	defer s.trace("DeleteCookies", &err)
	_, err = s.command(ctx, Command{Path: "/cookie", Method: http.MethodDelete})
	return err
}
