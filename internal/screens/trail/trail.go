// Package trail is the roadmap overview: every step with its lock state
// and score, plus overall completion.
package trail

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/kmori/trailmap/internal/router"
	"github.com/kmori/trailmap/internal/screen"
	"github.com/kmori/trailmap/internal/screens/paywall"
	"github.com/kmori/trailmap/internal/screens/quiz"
	"github.com/kmori/trailmap/internal/session"
	"github.com/kmori/trailmap/internal/ui/components"
	"github.com/kmori/trailmap/internal/ui/layout"
	"github.com/kmori/trailmap/internal/ui/theme"
)

// enteredMsg reports an attempt to open a step.
type enteredMsg struct {
	index   int
	outcome session.EnterOutcome
	err     error
}

// Screen is the roadmap overview.
type Screen struct {
	sess     *session.Session
	selected int
	entering bool
	errMsg   string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the trail screen.
func New(sess *session.Session) *Screen {
	return &Screen{sess: sess}
}

func (s *Screen) Init() tea.Cmd {
	return nil
}

func (s *Screen) Title() string {
	return "Roadmap"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Open step"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) enterCmd(index int) tea.Cmd {
	return func() tea.Msg {
		outcome, err := s.sess.EnterStep(s.sess.Context(), index)
		return enteredMsg{index: index, outcome: outcome, err: err}
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case enteredMsg:
		s.entering = false
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			return s, nil
		}
		if msg.outcome == session.Locked {
			return s, func() tea.Msg {
				return router.PushScreenMsg{Screen: paywall.New(msg.index)}
			}
		}
		return s, func() tea.Msg {
			return router.PushScreenMsg{Screen: quiz.New(s.sess)}
		}

	case tea.KeyMsg:
		if s.entering {
			return s, nil
		}
		project := s.sess.Project()
		if project == nil {
			return s, nil
		}
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(project.Steps)-1 {
				s.selected++
			}
		case "enter":
			s.entering = true
			s.errMsg = ""
			return s, s.enterCmd(project.Steps[s.selected].Index)
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	project := s.sess.Project()
	if project == nil {
		return theme.Hint.Render("No roadmap yet.")
	}

	header := theme.Title.Render(project.Goal) + "\n" +
		theme.Subtitle.Render(project.Stack) + "\n\n"

	var list string
	for i, step := range project.Steps {
		open, _ := s.sess.Accessible(step.Index)

		marker := "○"
		score := ""
		if got, ok := s.sess.Progress().Score(step.Index); ok {
			marker = "●"
			score = theme.Correct.Render(fmt.Sprintf("  %d%%", got.Percentage))
		}
		if !open {
			marker = "🔒"
		}

		line := fmt.Sprintf("  %s %2d. %s", marker, step.Index, step.Title)
		switch {
		case !open:
			line = theme.Locked.Render(line)
		case i == s.selected:
			line = theme.Selected.Render("▸" + line[1:])
		default:
			line = theme.Unselected.Render(line)
		}
		list += line + score + "\n"
	}

	done := s.sess.Progress().Completed()
	bar := components.NewProgressBar(
		fmt.Sprintf("%d/%d steps", done, len(project.Steps)),
		s.sess.Progress().CompletionRatio(len(project.Steps)),
		true,
		min(width-12, 60),
	).View()

	body := header + list + "\n" + bar
	if s.sess.Phase() == session.PhaseAllCompleted {
		body += "\n\n" + theme.Correct.Render("All steps completed — nice work!") + "\n" +
			theme.Hint.Render("Re-enter any step to retake its quiz.")
	}
	if s.errMsg != "" {
		body += "\n" + theme.Incorrect.Render(s.errMsg)
	}

	card := theme.Card.Width(min(width-4, 84)).Render(body)
	return lipgloss.NewStyle().
		Width(width).Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(card)
}
