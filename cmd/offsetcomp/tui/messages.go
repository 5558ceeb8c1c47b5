package tui

import "github.com/supertouch/offsetcomp/internal/slowpics"

// opEventMsg wraps one worker event for the bubbletea update loop. The
// model filters it by correlation id before acting on it.
type opEventMsg struct {
	Event slowpics.Event
}

// statusMsg replaces the status line.
type statusMsg struct {
	Text string
}

// inputMode says what a committed numeric entry means.
type inputMode int

const (
	inputNone inputMode = iota
	inputAddFrame
	inputEditFrame
	inputEditOffset
)
