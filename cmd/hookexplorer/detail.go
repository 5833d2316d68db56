package main

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// detailModel shows one field in full, in a scrollable modal.
type detailModel struct {
	title    string
	viewport viewport.Model
	width    int
	height   int
	visible  bool
}

func newDetailModel() *detailModel {
	return &detailModel{viewport: viewport.New(0, 0)}
}

// Init implements tea.Model
func (m *detailModel) Init() tea.Cmd {
	return nil
}

// Show displays row in the modal.
func (m *detailModel) Show(title string, row fieldRow) {
	m.title = title
	m.visible = true
	m.viewport.SetContent(row.Detail)
	m.viewport.GotoTop()
}

// Hide closes the modal.
func (m *detailModel) Hide() {
	m.visible = false
}

// IsVisible returns whether the modal is currently shown
func (m *detailModel) IsVisible() bool {
	return m.visible
}

// SetSize sizes the modal relative to the terminal.
func (m *detailModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width*2/3, 20)
	m.viewport.Height = max(height/2, 5)
}

// Update implements tea.Model; it scrolls the viewport.
func (m *detailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m *detailModel) View() string {
	return modalStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		modalTitleStyle.Render(m.title),
		m.viewport.View(),
	))
}

// staticView is a fixed rendering usable as an overlay layer.
type staticView string

func (s staticView) Init() tea.Cmd                       { return nil }
func (s staticView) Update(tea.Msg) (tea.Model, tea.Cmd) { return s, nil }
func (s staticView) View() string                        { return string(s) }
