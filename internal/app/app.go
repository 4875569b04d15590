// Package app wires the session into the root Bubble Tea model.
package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/kmori/trailmap/internal/router"
	"github.com/kmori/trailmap/internal/screen"
	"github.com/kmori/trailmap/internal/screens/home"
	"github.com/kmori/trailmap/internal/session"
	"github.com/kmori/trailmap/internal/ui/layout"
	"github.com/kmori/trailmap/internal/ui/theme"
)

// Model is the root Bubble Tea model.
type Model struct {
	sess   *session.Session
	router *router.Router
	width  int
	height int
}

// NewModel creates the root model starting at the home screen.
func NewModel(sess *session.Session, resume home.ResumeFunc) Model {
	return Model{
		sess:   sess,
		router: router.New(home.New(sess, resume)),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// A rejected credential ends the session; the only remaining
		// interaction is leaving.
		if m.sess.Phase() == session.PhaseUnauthorized {
			return m, tea.Quit
		}
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			// Screens with their own esc handling (plan editing modes)
			// see the key first; a session mid-request keeps the screen.
			if m.router.Depth() > 1 && !m.screenHandlesEsc() {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

// screenHandlesEsc reports whether the active screen consumes esc
// itself instead of the default pop.
func (m Model) screenHandlesEsc() bool {
	type escHandler interface{ HandlesEsc() bool }
	if h, ok := m.router.Active().(escHandler); ok {
		return h.HandlesEsc()
	}
	return false
}

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	if m.sess.Phase() == session.PhaseUnauthorized {
		v.SetContent(m.renderSignedOut())
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	progress := ""
	if project := m.sess.Project(); project != nil {
		progress = fmt.Sprintf("%d/%d", m.sess.Progress().Completed(), len(project.Steps))
	}
	header := layout.RenderHeader(title, string(m.sess.PlanTier()), progress, m.width)

	footerHints := []layout.KeyHint{
		{Key: "Ctrl+C", Description: "Quit"},
	}
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = append(hp.KeyHints(), footerHints...)
	} else if m.router.Depth() > 1 {
		footerHints = append([]layout.KeyHint{{Key: "Esc", Description: "Back"}}, footerHints...)
	} else {
		footerHints = append([]layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
		}, footerHints...)
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// renderSignedOut replaces the whole frame once the credential has been
// rejected; no screen below it is interactive anymore.
func (m Model) renderSignedOut() string {
	body := theme.Title.Render("Signed out") + "\n\n" +
		theme.Body.Render("Your credential was rejected by the service.") + "\n" +
		theme.Body.Render("Restart with a fresh TRAILMAP_TOKEN to continue.") + "\n\n" +
		theme.Hint.Render("Press any key to exit.")

	card := theme.Card.Width(min(m.width-4, 60)).Render(body)
	return lipgloss.NewStyle().
		Width(m.width).Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(card)
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(sess *session.Session, resume home.ResumeFunc) error {
	defer sess.Close()

	p := tea.NewProgram(NewModel(sess, resume))
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
