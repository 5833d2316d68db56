package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/internal/logger"
)

// statusTimeout is how long a status message stays up.
const statusTimeout = 2 * time.Second

// Update handles all messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.tree.SetHeight(m.paneHeight())
		m.detail.SetSize(msg.Width, msg.Height)
		m.ensureFieldVisible()

	case clearStatusMsg:
		m.statusMessage = ""
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// If help is showing, handle help keys
	if m.showHelp {
		if key.Matches(msg, m.keys.Esc) || key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}

	// If detail view is open, handle its keys
	if m.detail.IsVisible() {
		switch {
		case key.Matches(msg, m.keys.Esc), key.Matches(msg, m.keys.Enter):
			m.detail.Hide()
			return m, nil
		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down),
			key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			_, cmd := m.detail.Update(msg)
			return m, cmd
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		return m, nil
	}

	if m.inputMode != NormalMode {
		return m.handleInputMode(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		if m.focusedPane == TreePane {
			m.focusedPane = FieldPane
		} else {
			m.focusedPane = TreePane
		}
		return m, nil

	case key.Matches(msg, m.keys.Command):
		m.inputMode = CommandMode
		m.input.Prompt = ": "
		m.input.SetValue("/")
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Refresh):
		m.refresh()
		return m.status("Refreshed")

	case key.Matches(msg, m.keys.Copy):
		path := m.tree.Path()
		if err := clipboard.WriteAll(path); err != nil {
			logger.Debug("clipboard write failed", "error", err)
			return m.status("Failed to copy path")
		}
		return m.status("✓ Copied: " + path)
	}

	if m.focusedPane == TreePane {
		return m.handleTreeKey(msg)
	}
	return m.handleFieldKey(msg)
}

func (m Model) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := m.tree.Current()
	var err error
	switch {
	case key.Matches(msg, m.keys.Up):
		m.tree.Move(-1)
	case key.Matches(msg, m.keys.Down):
		m.tree.Move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.tree.Move(-m.tree.height)
	case key.Matches(msg, m.keys.PageDown):
		m.tree.Move(m.tree.height)
	case key.Matches(msg, m.keys.Home):
		m.tree.Move(-len(m.tree.rows))
	case key.Matches(msg, m.keys.End):
		m.tree.Move(len(m.tree.rows))
	case key.Matches(msg, m.keys.Enter):
		err = m.tree.Toggle()
	case key.Matches(msg, m.keys.Right):
		err = m.tree.Expand()
	case key.Matches(msg, m.keys.Left):
		m.tree.CollapseOrParent()
	default:
		return m, nil
	}
	if m.tree.Current() != before {
		m.loadFields()
	}
	if err != nil {
		return m.status(err.Error())
	}
	return m, nil
}

func (m Model) handleFieldKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveField(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveField(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveField(-m.paneHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.moveField(m.paneHeight())
	case key.Matches(msg, m.keys.Home):
		m.moveField(-len(m.fields))
	case key.Matches(msg, m.keys.End):
		m.moveField(len(m.fields))

	case key.Matches(msg, m.keys.Enter):
		if f := m.currentField(); f != nil {
			m.detail.Show(m.tree.Breadcrumb()+" / "+f.Name, *f)
		}

	case key.Matches(msg, m.keys.CopyValue):
		f := m.currentField()
		if f == nil {
			return m, nil
		}
		if err := clipboard.WriteAll(f.Raw); err != nil {
			logger.Debug("clipboard write failed", "error", err)
			return m.status("Failed to copy value")
		}
		return m.status("Value copied to clipboard")

	case key.Matches(msg, m.keys.Edit):
		return m.startEdit()
	}
	return m, nil
}

func (m *Model) moveField(delta int) {
	m.fieldCursor = max(0, min(m.fieldCursor+delta, len(m.fields)-1))
	m.ensureFieldVisible()
}

func (m *Model) ensureFieldVisible() {
	h := m.paneHeight()
	if m.fieldCursor < m.fieldOffset {
		m.fieldOffset = m.fieldCursor
	}
	if m.fieldCursor >= m.fieldOffset+h {
		m.fieldOffset = m.fieldCursor - h + 1
	}
	m.fieldOffset = max(0, min(m.fieldOffset, len(m.fields)-h))
}

// startEdit opens the prompt for the selected field. Only writable fields
// of live objects whose type accepts updates can be edited.
func (m Model) startEdit() (tea.Model, tea.Cmd) {
	n := m.tree.Current()
	f := m.currentField()
	if n == nil || f == nil || n.kind != objectNode {
		return m.status("Select a field of an object to edit")
	}
	if !f.Writable || !n.typ.HasUpdate() {
		return m.status(fmt.Sprintf("%s.%s is read-only", n.typeName, f.Name))
	}
	m.inputMode = EditMode
	m.editField = f.Name
	m.input.Prompt = f.Name + " = "
	m.input.SetValue(f.Raw)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

// handleInputMode routes keys to the prompt.
func (m Model) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		return m, nil
	case tea.KeyEnter:
		text := m.input.Value()
		mode := m.inputMode
		m.closeInput()
		if mode == CommandMode {
			return m.runCommand(text)
		}
		return m.applyEdit(text)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closeInput() {
	m.inputMode = NormalMode
	m.input.Blur()
	m.input.Reset()
}

// runCommand executes a host command line, then refreshes the view since
// the command may have changed any object.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	line = strings.TrimSpace(line)
	if line == "" || line == "/" {
		return m, nil
	}
	if !strings.HasPrefix(line, "/") {
		line = "/" + line
	}
	res := m.c.Exec(m.c.CurrentBuffer(), line)
	logger.Debug("explorer command", "line", line, "result", res)
	if *m.quit {
		return m, tea.Quit
	}
	m.refresh()
	if res != hook.ExecOK {
		return m.status(fmt.Sprintf("%s: %s", line, res))
	}
	return m.status(line + ": ok")
}

// applyEdit updates the edited field through the type's update callback.
func (m Model) applyEdit(text string) (tea.Model, tea.Cmd) {
	n := m.tree.Current()
	if n == nil || n.kind != objectNode {
		return m, nil
	}
	err := m.c.UpdateObject(n.typeName, n.obj, map[string]string{m.editField: text})
	if err != nil {
		return m.status("Update failed: " + err.Error())
	}
	cursor := m.fieldCursor
	m.refresh()
	m.fieldCursor = min(cursor, len(m.fields)-1)
	m.ensureFieldVisible()
	return m.status(fmt.Sprintf("✓ %s updated", m.editField))
}

// refresh reloads the tree and the field pane from the host.
func (m *Model) refresh() {
	m.tree.Refresh()
	m.loadFields()
}

// status shows a message and schedules its removal.
func (m Model) status(text string) (tea.Model, tea.Cmd) {
	m.statusMessage = text
	return m, tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
