// Package paywall is shown when the gate declines a step on the free
// plan. It is an outcome screen, not an error screen.
package paywall

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/kmori/trailmap/internal/router"
	"github.com/kmori/trailmap/internal/screen"
	"github.com/kmori/trailmap/internal/ui/components"
	"github.com/kmori/trailmap/internal/ui/layout"
	"github.com/kmori/trailmap/internal/ui/theme"
)

// Screen presents the upgrade prompt for a locked step.
type Screen struct {
	stepIndex int
	button    components.Button
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the paywall screen for the step that was declined.
func New(stepIndex int) *Screen {
	s := &Screen{stepIndex: stepIndex}
	s.button = components.NewButton("Back to roadmap", true, func() tea.Cmd {
		return func() tea.Msg { return router.PopScreenMsg{} }
	})
	return s
}

func (s *Screen) Init() tea.Cmd {
	return nil
}

func (s *Screen) Title() string {
	return "Upgrade"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Esc", Description: "Back to roadmap"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	s.button, cmd = s.button.Update(msg)
	return s, cmd
}

func (s *Screen) View(width, height int) string {
	body := theme.Title.Render("🔒 Step locked") + "\n\n" +
		theme.Body.Render(fmt.Sprintf("Step %d is part of the Pro plan.", s.stepIndex)) + "\n" +
		theme.Body.Render("Upgrade to unlock every step of your roadmap.") + "\n\n" +
		theme.Hint.Render("Run with TRAILMAP_PLAN=pro once your subscription is active.") + "\n\n" +
		s.button.View()

	card := theme.Card.Width(min(width-4, 60)).Render(body)
	return lipgloss.NewStyle().
		Width(width).Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(card)
}
