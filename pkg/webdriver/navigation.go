// File: pkg/webdriver/navigation.go
package webdriver

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"github.com/mitchellh/go-homedir"
)

// SetURL navigates the current window to rawURL.
func (s *Session) SetURL(ctx context.Context, rawURL string) (err error) {
	defer s.trace("SetURL", &err, rawURL)
	_, err = s.command(ctx, Command{Path: "/url", Method: http.MethodPost, Body: map[string]string{"url": rawURL}})
	return err
}

// GetURL returns the URL of the current page.
func (s *Session) GetURL(ctx context.Context) (u string, err error) {
	defer s.trace("GetURL", &err)
	value, err := s.command(ctx, Command{Path: "/url", Method: http.MethodGet})
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// GetTitle returns the title of the current page.
func (s *Session) GetTitle(ctx context.Context) (title string, err error) {
	defer s.trace("GetTitle", &err)
	value, err := s.command(ctx, Command{Path: "/title", Method: http.MethodGet})
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// Back navigates backwards in the browser history, if possible.
func (s *Session) Back(ctx context.Context) (err error) {
	defer s.trace("Back", &err)
	_, err = s.command(ctx, Command{Path: "/back", Method: http.MethodPost})
	return err
}

// Forward navigates forwards in the browser history, if possible.
func (s *Session) Forward(ctx context.Context) (err error) {
	defer s.trace("Forward", &err)
	_, err = s.command(ctx, Command{Path: "/forward", Method: http.MethodPost})
	return err
}

// Refresh reloads the current page.
func (s *Session) Refresh(ctx context.Context) (err error) {
	defer s.trace("Refresh", &err)
	_, err = s.command(ctx, Command{Path: "/refresh", Method: http.MethodPost})
	return err
}

// MaximizeWindow maximizes the current window.
func (s *Session) MaximizeWindow(ctx context.Context) (err error) {
	defer s.trace("MaximizeWindow", &err)
	_, err = s.command(ctx, Command{Path: "/window/current/maximize", Method: http.MethodPost})
	return err
}

// Screenshot captures the current window and returns the decoded PNG bytes.
func (s *Session) Screenshot(ctx context.Context) (png []byte, err error) {
	defer s.trace("Screenshot", &err)
	value, err := s.command(ctx, Command{Path: "/screenshot", Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	png, err = base64.StdEncoding.DecodeString(value.String())
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return png, nil
}

// SaveScreenshot captures the current window into the file at path. A leading
// "~" is expanded to the home directory.
func (s *Session) SaveScreenshot(ctx context.Context, path string) (err error) {
	defer s.trace("SaveScreenshot", &err, path)
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expand screenshot path: %w", err)
	}
	png, err := s.Screenshot(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(expanded, png, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

// LogEntry is one record returned by GetLog.
type LogEntry struct {
	Timestamp int64  `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// GetLog fetches and drains the server log of the given type, e.g. "browser".
func (s *Session) GetLog(ctx context.Context, typ string) (entries []LogEntry, err error) {
	defer s.trace("GetLog", &err, typ)
	value, err := s.command(ctx, Command{Path: "/log", Method: http.MethodPost, Body: map[string]string{"type": typ}})
	if err != nil {
		return nil, err
	}
	err = value.Decode(&entries)
	return entries, err
}
