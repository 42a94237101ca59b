// File: pkg/webdriver/input.go
package webdriver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// MouseButton identifies a mouse button on the wire.
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonMiddle
	ButtonRight
)

func (b MouseButton) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	}
	return fmt.Sprintf("MouseButton(%d)", int(b))
}

// ParseMouseButton accepts "left", "middle" or "right". An empty name means
// the left button.
func ParseMouseButton(name string) (MouseButton, error) {
	switch strings.ToLower(name) {
	case "", "left":
		return ButtonLeft, nil
	case "middle":
		return ButtonMiddle, nil
	case "right":
		return ButtonRight, nil
	}
	return 0, fmt.Errorf("%w: unknown mouse button %q", ErrInvalidArgument, name)
}

// MouseDown presses and holds button at the position of the last move. It
// must be followed by MouseUp.
func (s *Session) MouseDown(ctx context.Context, button MouseButton) (err error) {
	defer s.trace("MouseDown", &err, button.String())
	return s.mouse(ctx, "/buttondown", button)
}

// MouseUp releases a button held by MouseDown.
func (s *Session) MouseUp(ctx context.Context, button MouseButton) (err error) {
	defer s.trace("MouseUp", &err, button.String())
	return s.mouse(ctx, "/buttonup", button)
}

// Click clicks button at the position of the last move.
func (s *Session) Click(ctx context.Context, button MouseButton) (err error) {
	defer s.trace("Click", &err, button.String())
	return s.mouse(ctx, "/click", button)
}

func (s *Session) mouse(ctx context.Context, path string, button MouseButton) error {
	_, err := s.command(ctx, Command{Path: path, Method: http.MethodPost, Body: map[string]int{"button": int(button)}})
	return err
}

// moveToBody is the payload of a moveto command. Nil offsets move to the
// element's center.
type moveToBody struct {
	Element string `json:"element,omitempty"`
	XOffset *int   `json:"xoffset,omitempty"`
	YOffset *int   `json:"yoffset,omitempty"`
}

func (s *Session) moveTo(ctx context.Context, body moveToBody) error {
	_, err := s.command(ctx, Command{Path: "/moveto", Method: http.MethodPost, Body: body})
	return err
}

// MoveBy moves the mouse by an offset from its current position.
func (s *Session) MoveBy(ctx context.Context, x, y int) (err error) {
	defer s.trace("MoveBy", &err, x, y)
	return s.moveTo(ctx, moveToBody{XOffset: &x, YOffset: &y})
}

// SendKeys types value into the active element. "@Name" tokens are replaced
// by their key codes first.
func (s *Session) SendKeys(ctx context.Context, value string) (err error) {
	defer s.trace("SendKeys", &err, value)
	_, err = s.command(ctx, Command{
		Path:   "/keys",
		Method: http.MethodPost,
		Body:   map[string][]string{"value": SplitKeys(ReplaceKeyStrokes(value))},
	})
	return err
}
