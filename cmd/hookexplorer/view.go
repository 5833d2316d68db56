package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"
)

// View renders the entire UI
func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	base := lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderContent(),
		m.renderStatus(),
	)

	// Modals are recreated each render so they see the latest state.
	switch {
	case m.showHelp:
		return overlay.New(staticView(m.renderHelp()), staticView(base), overlay.Center, overlay.Center, 0, 0).View()
	case m.detail.IsVisible():
		return overlay.New(m.detail, staticView(base), overlay.Center, overlay.Center, 0, 0).View()
	}
	return base
}

// renderHeader renders the title and the current position
func (m Model) renderHeader() string {
	title := headerStyle.Render("hookkit hdata explorer")
	where := m.tree.Breadcrumb()
	if p := m.tree.Path(); p != "" && p != where {
		where += "  (" + p + ")"
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, pathStyle.Render(where))
}

// renderContent renders the split-pane content
func (m Model) renderContent() string {
	treeWidth := max(m.width/2, 20)
	fieldWidth := max(m.width-treeWidth, 20)
	h := m.paneHeight()

	treeBox := m.paneBox(TreePane, treeWidth, h,
		fmt.Sprintf("Types (%d)", len(m.tree.roots)), m.renderTree(treeWidth-4))
	fieldBox := m.paneBox(FieldPane, fieldWidth, h,
		fmt.Sprintf("Fields (%d)", len(m.fields)), m.renderFields(fieldWidth-4))
	return lipgloss.JoinHorizontal(lipgloss.Top, treeBox, fieldBox)
}

func (m Model) paneBox(p Pane, width, height int, title, body string) string {
	style := paneStyle
	if m.focusedPane == p {
		style = activePaneStyle
	}
	inner := lipgloss.NewStyle().Width(width - 4).Height(height).Render(body)
	return style.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, paneTitleStyle.Render(title), inner))
}

func (m Model) renderTree(width int) string {
	var sb strings.Builder
	for i, n := range m.tree.Visible() {
		marker := "  "
		switch {
		case n.expanded:
			marker = "▾ "
		case n.hasChildren():
			marker = "▸ "
		}
		label := n.label
		if n.kind == typeNode && n.detail != "" && n.detail != n.label {
			label += "  " + n.detail
		}
		line := truncate(strings.Repeat("  ", n.depth)+marker+label, width)

		if m.tree.offset+i == m.tree.cursor {
			if m.focusedPane == TreePane {
				line = selectedStyle.Render(line)
			} else {
				line = fieldNameStyle.Render(line)
			}
		} else {
			switch n.kind {
			case typeNode:
				line = typeStyle.Render(line)
			case listNode:
				line = listStyle.Render(line)
			default:
				if n.field != "" {
					line = relationStyle.Render(line)
				}
			}
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (m Model) renderFields(width int) string {
	if len(m.fields) == 0 {
		return fieldTypeStyle.Render("(no fields)")
	}
	nameW, typeW := 0, 0
	for _, f := range m.fields {
		nameW = max(nameW, lipgloss.Width(f.Name))
		typeW = max(typeW, lipgloss.Width(f.Type))
	}
	end := min(m.fieldOffset+m.paneHeight(), len(m.fields))

	var sb strings.Builder
	for i := m.fieldOffset; i < end; i++ {
		f := m.fields[i]
		value := truncate(f.Value, max(width-nameW-typeW-4, 4))
		if i == m.fieldCursor && m.focusedPane == FieldPane {
			line := fmt.Sprintf("%-*s  %-*s  %s", nameW, f.Name, typeW, f.Type, value)
			sb.WriteString(selectedStyle.Render(line))
		} else {
			name := fieldNameStyle.Render(fmt.Sprintf("%-*s", nameW, f.Name))
			if f.Writable {
				name = writableStyle.Render(fmt.Sprintf("%-*s", nameW, f.Name))
			}
			sb.WriteString(name + "  " + fieldTypeStyle.Render(fmt.Sprintf("%-*s", typeW, f.Type)) + "  " + value)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// renderStatus renders the prompt or status line and the key hints
func (m Model) renderStatus() string {
	var line string
	switch {
	case m.inputMode != NormalMode:
		line = m.input.View()
	case m.statusMessage != "":
		line = m.statusMessage
	default:
		line = fmt.Sprintf("%d hooks, %d types", m.c.Hooks().CountTotal(), len(m.c.Types().Materialized()))
	}
	return statusStyle.Render(lipgloss.JoinVertical(lipgloss.Left, line, m.help.View(m.keys)))
}

// renderHelp renders the help modal
func (m Model) renderHelp() string {
	h := m.help
	h.ShowAll = true
	return modalStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		modalTitleStyle.Render("Keys"),
		h.View(m.keys),
		"",
		"Objects are listed through their type's lists; pointer fields",
		"with a related type open as children. Edits go through the",
		"type's update callback, like /buffer set.",
	))
}
