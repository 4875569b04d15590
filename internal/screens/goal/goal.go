// Package goal collects the project goal, preferred stack, and learner
// level, then requests a plan proposal.
package goal

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/kmori/trailmap/internal/roadmap"
	"github.com/kmori/trailmap/internal/router"
	"github.com/kmori/trailmap/internal/screen"
	"github.com/kmori/trailmap/internal/screens/plan"
	"github.com/kmori/trailmap/internal/session"
	"github.com/kmori/trailmap/internal/ui/components"
	"github.com/kmori/trailmap/internal/ui/layout"
	"github.com/kmori/trailmap/internal/ui/theme"
)

const (
	focusGoal = iota
	focusStack
	focusLevel
)

var levels = []roadmap.Level{
	roadmap.LevelBeginner,
	roadmap.LevelIntermediate,
	roadmap.LevelAdvanced,
}

// proposedMsg reports a completed proposal request.
type proposedMsg struct {
	err error
}

// Screen is the goal-entry form.
type Screen struct {
	sess       *session.Session
	goalInput  components.TextInput
	stackInput components.TextInput
	levelIdx   int
	focus      int
	proposing  bool
	errMsg     string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the goal screen.
func New(sess *session.Session) *Screen {
	return &Screen{
		sess:       sess,
		goalInput:  components.NewTextInput("e.g. A realtime chat app", 200),
		stackInput: components.NewTextInput("optional, e.g. Go and React", 200),
		levelIdx:   0,
	}
}

func (s *Screen) Init() tea.Cmd {
	return s.goalInput.Init()
}

func (s *Screen) Title() string {
	return "New Roadmap"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Propose plan"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) proposeCmd() tea.Cmd {
	goalText := s.goalInput.Value()
	stackText := s.stackInput.Value()
	level := levels[s.levelIdx]
	return func() tea.Msg {
		err := s.sess.Propose(s.sess.Context(), goalText, stackText, level)
		return proposedMsg{err: err}
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case proposedMsg:
		s.proposing = false
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			return s, nil
		}
		return s, func() tea.Msg {
			return router.ReplaceScreenMsg{Screen: plan.New(s.sess)}
		}

	case tea.KeyMsg:
		if s.proposing {
			return s, nil
		}
		switch msg.String() {
		case "tab", "shift+tab":
			if msg.String() == "tab" {
				s.focus = (s.focus + 1) % 3
			} else {
				s.focus = (s.focus + 2) % 3
			}
			return s, nil
		case "enter":
			s.proposing = true
			s.errMsg = ""
			return s, s.proposeCmd()
		}
		if s.focus == focusLevel {
			switch msg.String() {
			case "left", "h", "up", "k":
				if s.levelIdx > 0 {
					s.levelIdx--
				}
			case "right", "l", "down", "j":
				if s.levelIdx < len(levels)-1 {
					s.levelIdx++
				}
			}
			return s, nil
		}
	}

	var cmd tea.Cmd
	if s.focus == focusGoal {
		s.goalInput, cmd = s.goalInput.Update(msg)
	} else if s.focus == focusStack {
		s.stackInput, cmd = s.stackInput.Update(msg)
	}
	return s, cmd
}

func (s *Screen) View(width, height int) string {
	label := func(text string, focused bool) string {
		if focused {
			return theme.Selected.Render("▸ " + text)
		}
		return theme.Body.Render("  " + text)
	}

	levelRow := "  "
	for i, lv := range levels {
		entry := " " + string(lv) + " "
		if i == s.levelIdx {
			entry = theme.ButtonActive.Render(entry)
		} else {
			entry = theme.Hint.Render(entry)
		}
		levelRow += entry + " "
	}

	body := label("What do you want to build?", s.focus == focusGoal) + "\n  " +
		s.goalInput.View() + "\n\n" +
		label("Preferred stack", s.focus == focusStack) + "\n  " +
		s.stackInput.View() + "\n\n" +
		label("Your level", s.focus == focusLevel) + "\n" + levelRow + "\n"

	if s.proposing {
		body += "\n" + theme.Hint.Render("Proposing a plan...")
	}
	if s.errMsg != "" {
		body += "\n" + theme.Incorrect.Render(s.errMsg)
	}

	card := theme.Card.Width(min(width-4, 72)).Render(body)
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(card)
}
