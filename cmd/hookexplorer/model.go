package main

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/hookkit/core/hook"
	"github.com/joshuapare/hookkit/pkg/host"
	"github.com/joshuapare/hookkit/pkg/types"
)

// Pane represents which pane is focused
type Pane int

const (
	TreePane Pane = iota
	FieldPane
)

// InputMode represents different input modes
type InputMode int

const (
	NormalMode InputMode = iota
	CommandMode
	EditMode
)

// Model is the main application model
type Model struct {
	c      *host.Context
	tree   *tree
	detail *detailModel
	keys   KeyMap
	help   help.Model
	input  textinput.Model

	fields      []fieldRow
	fieldCursor int
	fieldOffset int

	focusedPane Pane
	width       int
	height      int

	inputMode InputMode
	editField string

	showHelp      bool
	statusMessage string

	// quit is set by the host's quit signal, so /quit typed at the command
	// prompt ends the program.
	quit *bool

	err error
}

// NewModel creates a new TUI model browsing c.
func NewModel(c *host.Context) Model {
	quit := new(bool)
	_, err := c.Hooks().HookSignal("", hook.SignalSpec{
		Signal: "quit",
		Callback: func(string, string, any) types.RC {
			*quit = true
			return types.OK
		},
	})

	input := textinput.New()
	input.PromptStyle = inputPromptStyle

	m := Model{
		c:           c,
		tree:        newTree(c),
		detail:      newDetailModel(),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		input:       input,
		focusedPane: TreePane,
		inputMode:   NormalMode,
		quit:        quit,
		err:         err,
	}
	m.loadFields()
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Messages

type clearStatusMsg struct{}

// loadFields fills the field pane for the node under the tree cursor.
func (m *Model) loadFields() {
	m.fields = nil
	m.fieldCursor, m.fieldOffset = 0, 0
	n := m.tree.Current()
	if n == nil {
		return
	}
	switch n.kind {
	case objectNode:
		if !m.c.Walker().ValidatePointer(n.typ, "", n.obj) {
			m.statusMessage = "object is gone, press r to refresh"
			return
		}
		m.fields = valueRows(m.c, n.typ, n.obj)
	default:
		if n.typ == nil {
			t, ok := m.c.Types().Resolve(n.typeName)
			if !ok {
				return
			}
			n.typ = t
		}
		m.fields = describeRows(m.c.Walker(), n.typ)
	}
}

// currentField returns the field row under the field cursor.
func (m *Model) currentField() *fieldRow {
	if m.fieldCursor < 0 || m.fieldCursor >= len(m.fields) {
		return nil
	}
	return &m.fields[m.fieldCursor]
}

// paneHeight is the number of rows each pane shows.
func (m *Model) paneHeight() int {
	// header (2 + margin), pane borders and title (3), status bar (2 + margin)
	return max(m.height-9, 3)
}
