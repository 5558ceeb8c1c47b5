// Package tui is the interactive frame and offset editor. The session
// is mutated only from the update loop; worker operations run in their
// own goroutines and report back through correlation-tagged events.
package tui

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/supertouch/offsetcomp/internal/config"
	"github.com/supertouch/offsetcomp/internal/session"
	"github.com/supertouch/offsetcomp/internal/slowpics"
)

// Model is the root bubbletea model.
type Model struct {
	session *session.Session
	cfg     config.Config
	client  *slowpics.Client

	events chan slowpics.Event

	status   string
	statusOK bool
	percent  int
	busy     bool

	mode  inputMode
	input string

	width, height int
}

// New builds the TUI model. A new session always starts in
// new-comparison mode; appends go through the CLI where the target
// load can prompt for a manual map.
func New(s *session.Session, cfg config.Config, client *slowpics.Client) Model {
	return Model{
		session: s,
		cfg:     cfg,
		client:  client,
		events:  make(chan slowpics.Event, 64),
		status:  "Ready.",
	}
}

// Run starts the program.
func Run(s *session.Session, cfg config.Config, client *slowpics.Client) error {
	_, err := tea.NewProgram(New(s, cfg, client), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

// waitEvent delivers the next worker event to the update loop.
func waitEvent(ch chan slowpics.Event) tea.Cmd {
	return func() tea.Msg {
		return opEventMsg{Event: <-ch}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case statusMsg:
		m.status = msg.Text
		return m, nil

	case opEventMsg:
		return m.handleOpEvent(msg.Event)

	case tea.KeyMsg:
		if m.mode != inputNone {
			return m.handleInputKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleOpEvent(e slowpics.Event) (tea.Model, tea.Cmd) {
	if _, ok := m.session.Accept(e); !ok {
		// Stale correlation id: a newer operation owns the stream now.
		return m, waitEvent(m.events)
	}
	switch e.Type {
	case slowpics.EventStep:
		m.status = fmt.Sprintf("%s %d/%d", e.Step, e.Current, e.Total)
		m.statusOK = true
	case slowpics.EventPercent:
		m.percent = e.Percent
	case slowpics.EventURL:
		m.status = "Done: " + e.URL
		m.statusOK = true
	case slowpics.EventError:
		m.status = e.Err.Error()
		m.statusOK = false
	case slowpics.EventFinished:
		m.busy = false
		m.percent = 0
		return m, nil
	}
	return m, waitEvent(m.events)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		m.session.Prev()
	case "down", "j":
		m.session.Next()
	case "left", "h":
		m.session.SetActiveSource(m.session.ActiveSource() - 1)
	case "right", "l":
		m.session.SetActiveSource(m.session.ActiveSource() + 1)

	case "+", "=":
		m.adjustOffset(1)
	case "-":
		m.adjustOffset(-1)

	case "a":
		m.mode = inputAddFrame
		m.input = ""
	case "e":
		if _, ok := m.session.CurrentFrame(); ok {
			m.mode = inputEditFrame
			m.input = ""
		}
	case "o":
		if _, ok := m.session.CurrentFrame(); ok {
			m.mode = inputEditOffset
			m.input = ""
		}
	case "d":
		if frame, ok := m.session.CurrentFrame(); ok {
			m.session.List.Remove(frame)
			m.status = fmt.Sprintf("Removed frame %d.", frame)
			m.statusOK = true
		}
	case "g":
		got, err := m.session.GenerateFrames(m.cfg.Sampling, true, rand.New(rand.NewSource(rand.Int63())))
		if err != nil {
			m.status = err.Error()
			m.statusOK = false
		} else {
			m.status = fmt.Sprintf("Generated %d frames.", len(got))
			m.statusOK = true
		}

	case "s":
		if err := m.saveState(); err != nil {
			m.status = err.Error()
			m.statusOK = false
		} else {
			m.status = "State saved."
			m.statusOK = true
		}
	case "c":
		if err := copyToClipboard(m.session.FramesCSV()); err != nil {
			m.status = "Clipboard: " + err.Error()
			m.statusOK = false
		} else {
			m.status = "Frame list copied."
			m.statusOK = true
		}

	case "u":
		return m.startUpload()
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = inputNone
		m.input = ""
	case "enter":
		mode, text := m.mode, m.input
		m.mode = inputNone
		m.input = ""
		m.commitInput(mode, text)
	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	default:
		s := msg.String()
		if len(s) == 1 && (s[0] >= '0' && s[0] <= '9' || s[0] == '-' && m.input == "") {
			m.input += s
		}
	}
	return m, nil
}

func (m *Model) commitInput(mode inputMode, text string) {
	n, err := strconv.Atoi(text)
	if err != nil {
		m.status = fmt.Sprintf("Invalid number %q.", text)
		m.statusOK = false
		return
	}
	switch mode {
	case inputAddFrame:
		stored, adjusted, added := m.session.AddFrame(n)
		switch {
		case adjusted && added:
			m.status = fmt.Sprintf("Frame %d out of range, adjusted to %d.", n, stored)
		case !added:
			m.status = fmt.Sprintf("Frame %d already in the list.", stored)
		default:
			m.status = fmt.Sprintf("Added frame %d.", stored)
		}
		m.statusOK = true
	case inputEditFrame:
		frame, ok := m.session.CurrentFrame()
		if !ok {
			return
		}
		stored, adjusted, err := m.session.EditFrame(frame, n)
		switch {
		case err != nil:
			m.status = err.Error()
			m.statusOK = false
		case adjusted:
			m.status = fmt.Sprintf("Frame %d out of range, adjusted to %d.", n, stored)
			m.statusOK = true
		default:
			m.status = fmt.Sprintf("Frame %d changed to %d.", frame, stored)
			m.statusOK = true
		}
	case inputEditOffset:
		if frame, ok := m.session.CurrentFrame(); ok {
			m.session.Offsets.Set(frame, m.session.ActiveSource(), n)
			m.status = fmt.Sprintf("Offset %+d for frame %d.", n, frame)
			m.statusOK = true
		}
	}
}

func (m *Model) adjustOffset(delta int) {
	frame, ok := m.session.CurrentFrame()
	if !ok {
		return
	}
	src := m.session.ActiveSource()
	m.session.Offsets.Set(frame, src, m.session.Offsets.Get(frame, src)+delta)
}

func (m Model) startUpload() (tea.Model, tea.Cmd) {
	if m.busy {
		m.status = "Operation in progress..."
		m.statusOK = false
		return m, nil
	}
	if !m.session.SourcesLoaded() || m.session.List.Len() == 0 {
		m.status = "Load sources and frames first."
		m.statusOK = false
		return m, nil
	}

	name, err := m.uploadName()
	if err != nil {
		m.status = err.Error()
		m.statusOK = false
		return m, nil
	}

	selected := make([]int, len(m.session.Sources()))
	for i := range selected {
		selected[i] = i
	}

	id, err := m.session.Begin(session.OpUpload)
	if err != nil {
		m.status = err.Error()
		m.statusOK = false
		return m, nil
	}
	conf, err := m.session.BuildUploadConfig(id, name, selected, m.cfg)
	if err != nil {
		m.session.Release(session.OpUpload, id)
		m.status = err.Error()
		m.statusOK = false
		return m, nil
	}

	m.busy = true
	m.status = "Uploading " + name + "..."
	m.statusOK = true

	client, events := m.client, m.events
	go client.RunUpload(context.Background(), conf, func(e slowpics.Event) { events <- e })
	return m, waitEvent(m.events)
}

func (m Model) uploadName() (string, error) {
	scriptName := ""
	if names := m.session.SourceNames(); len(names) > 0 {
		scriptName = names[0]
	}
	template := m.cfg.Collection.NameTemplate
	if template == "" {
		template = "{script_name} comparison"
	}
	return config.ResolveCollectionName(template, map[string]string{
		"script_name": filepath.Base(scriptName),
	})
}

func (m Model) saveState() error {
	path := m.cfg.StateFile
	if path == "" {
		var err error
		path, err = config.DefaultStatePath()
		if err != nil {
			return err
		}
	}
	return m.session.SaveState(path)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("offsetcomp"))
	b.WriteString("\n\n")

	b.WriteString(m.renderSources())
	b.WriteString("\n")
	b.WriteString(m.renderFrames())
	b.WriteString("\n")

	if m.mode != inputNone {
		prompt := "Add frame: "
		switch m.mode {
		case inputEditFrame:
			prompt = "New frame: "
		case inputEditOffset:
			prompt = "Offset: "
		}
		b.WriteString(prompt + m.input + "█\n")
	}

	b.WriteString(m.renderStatus())
	return b.String()
}

func (m Model) renderSources() string {
	names := m.session.SourceNames()
	if len(names) == 0 {
		return HintStyle.Render("No sources configured.") + "\n"
	}
	parts := make([]string, len(names))
	for i, name := range names {
		if i == m.session.ActiveSource() {
			parts[i] = ActiveSourceStyle.Render("[" + name + "]")
		} else {
			parts[i] = SourceStyle.Render(" " + name + " ")
		}
	}
	return strings.Join(parts, " ") + "\n"
}

func (m Model) renderFrames() string {
	list := m.session.List.Frames()
	if len(list) == 0 {
		return HintStyle.Render("No frames. Press a to add or g to generate.") + "\n"
	}

	active := m.session.ActiveSource()
	sources := m.session.Sources()

	var b strings.Builder
	for i, frame := range list {
		line := fmt.Sprintf("%7d", frame)
		if active < len(sources) {
			off := m.session.Offsets.Get(frame, active)
			if off != 0 {
				line += OffsetStyle.Render(fmt.Sprintf("  %+d", off))
			}
		}
		if i == m.session.NavIndex() {
			line = CursorRowStyle.Render("▸" + line)
		} else {
			line = RowStyle.Render(" " + line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) renderStatus() string {
	status := m.status
	if m.busy && m.percent > 0 {
		status = fmt.Sprintf("%s (%d%%)", status, m.percent)
	}
	if m.statusOK {
		status = OKStyle.Render(status)
	} else if status != "" {
		status = ErrorStyle.Render(status)
	}

	hints := []string{
		StatusKeyStyle.Render("j/k") + " rows",
		StatusKeyStyle.Render("h/l") + " source",
		StatusKeyStyle.Render("+/-") + " offset",
		StatusKeyStyle.Render("a/e/d") + " add/edit/del",
		StatusKeyStyle.Render("g") + " gen",
		StatusKeyStyle.Render("u") + " upload",
		StatusKeyStyle.Render("s") + " save",
		StatusKeyStyle.Render("c") + " copy",
		StatusKeyStyle.Render("q") + " quit",
	}
	return status + "\n" + StatusBarStyle.Render(strings.Join(hints, " · "))
}
