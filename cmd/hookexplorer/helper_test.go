package main

import (
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hookkit/pkg/host"
	"github.com/joshuapare/hookkit/plugins/charset"
)

// TestHelper drives a Model the way bubbletea would, one message at a time.
// Commands returned by Update are kept but not run.
type TestHelper struct {
	t       *testing.T
	model   Model
	lastCmd tea.Cmd
}

// newTestHelper starts a host with the bundled plugins and wraps a model
// sized 120x40 around it.
func newTestHelper(t *testing.T) (*TestHelper, *host.Context) {
	t.Helper()
	opts := host.DefaultOptions()
	opts.Output = io.Discard
	opts.Plugins = []host.Plugin{charset.New()}
	c := host.New(opts)
	require.NoError(t, c.Init())
	t.Cleanup(func() { _ = c.Shutdown() })

	h := &TestHelper{t: t, model: NewModel(c)}
	h.SendWindowSize(120, 40)
	return h, c
}

func (h *TestHelper) send(msg tea.Msg) *TestHelper {
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	h.lastCmd = cmd
	return h
}

// SendKey simulates a special key press
func (h *TestHelper) SendKey(keyType tea.KeyType) *TestHelper {
	return h.send(tea.KeyMsg{Type: keyType})
}

// SendKeyRune simulates a character key press
func (h *TestHelper) SendKeyRune(r rune) *TestHelper {
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

// Type sends each rune of s as a key press
func (h *TestHelper) Type(s string) *TestHelper {
	for _, r := range s {
		if r == ' ' {
			h.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{r}})
			continue
		}
		h.SendKeyRune(r)
	}
	return h
}

// SendWindowSize simulates a window resize
func (h *TestHelper) SendWindowSize(width, height int) *TestHelper {
	return h.send(tea.WindowSizeMsg{Width: width, Height: height})
}

// Select moves the tree cursor to the first row labelled label, or
// starting with it.
func (h *TestHelper) Select(label string) *TestHelper {
	h.t.Helper()
	rows := h.model.tree.rows
	idx := -1
	for i, n := range rows {
		if n.label == label {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i, n := range rows {
			if strings.HasPrefix(n.label, label) {
				idx = i
				break
			}
		}
	}
	require.GreaterOrEqual(h.t, idx, 0, "no row %q in %v", label, h.Labels())
	h.model.tree.cursor = idx
	h.model.tree.ensureVisible()
	h.model.loadFields()
	return h
}

// SelectField moves the field cursor to the field named name.
func (h *TestHelper) SelectField(name string) *TestHelper {
	h.t.Helper()
	for i, f := range h.model.fields {
		if f.Name == name {
			h.model.fieldCursor = i
			return h
		}
	}
	h.t.Fatalf("no field %q", name)
	return h
}

// Labels returns the labels of the visible tree rows
func (h *TestHelper) Labels() []string {
	out := make([]string, 0, len(h.model.tree.rows))
	for _, n := range h.model.tree.rows {
		out = append(out, n.label)
	}
	return out
}

// Field returns the field row named name.
func (h *TestHelper) Field(name string) fieldRow {
	h.t.Helper()
	for _, f := range h.model.fields {
		if f.Name == name {
			return f
		}
	}
	h.t.Fatalf("no field %q", name)
	return fieldRow{}
}

// openBuffers expands buffer / gui_buffers.
func (h *TestHelper) openBuffers() *TestHelper {
	h.Select("buffer").SendKey(tea.KeyEnter)
	return h.Select("gui_buffers").SendKey(tea.KeyEnter)
}
