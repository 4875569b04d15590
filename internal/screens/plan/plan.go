// Package plan shows the proposed draft and lets the learner edit it
// before committing to full generation.
package plan

import (
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/kmori/trailmap/internal/router"
	"github.com/kmori/trailmap/internal/screen"
	"github.com/kmori/trailmap/internal/screens/trail"
	"github.com/kmori/trailmap/internal/session"
	"github.com/kmori/trailmap/internal/ui/components"
	"github.com/kmori/trailmap/internal/ui/layout"
	"github.com/kmori/trailmap/internal/ui/theme"
)

const (
	modeViewing = iota
	modeAdding
	modeRenaming
	modeEditingStack
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// generatedMsg reports a completed roadmap generation.
type generatedMsg struct {
	err error
}

// spinnerTickMsg animates the generating indicator.
type spinnerTickMsg time.Time

// Screen is the draft review and edit screen.
type Screen struct {
	sess       *session.Session
	mode       int
	input      components.TextInput
	selected   int
	generating bool
	frame      int
	errMsg     string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the plan screen.
func New(sess *session.Session) *Screen {
	return &Screen{sess: sess}
}

func (s *Screen) Init() tea.Cmd {
	return nil
}

func (s *Screen) Title() string {
	return "Proposed Plan"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.mode != modeViewing {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Apply"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	return []layout.KeyHint{
		{Key: "a", Description: "Add step"},
		{Key: "r", Description: "Rename"},
		{Key: "d", Description: "Delete"},
		{Key: "s", Description: "Stack"},
		{Key: "g", Description: "Generate"},
		{Key: "Esc", Description: "Discard"},
	}
}

// HandlesEsc keeps esc local: it cancels an edit or discards the draft
// instead of popping the screen.
func (s *Screen) HandlesEsc() bool {
	return true
}

func (s *Screen) generateCmd() tea.Cmd {
	return func() tea.Msg {
		err := s.sess.Generate(s.sess.Context())
		return generatedMsg{err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case generatedMsg:
		s.generating = false
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			return s, nil
		}
		return s, func() tea.Msg {
			return router.ReplaceScreenMsg{Screen: trail.New(s.sess)}
		}

	case spinnerTickMsg:
		if !s.generating {
			return s, nil
		}
		s.frame = (s.frame + 1) % len(spinnerFrames)
		return s, tick()

	case tea.KeyMsg:
		if s.generating {
			return s, nil
		}
		if s.mode != modeViewing {
			return s.updateEditing(msg)
		}
		return s.updateViewing(msg)
	}

	return s, nil
}

func (s *Screen) updateViewing(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	draft := s.sess.Plan()
	if draft == nil {
		return s, nil
	}

	switch msg.String() {
	case "up", "k":
		if s.selected > 0 {
			s.selected--
		}
	case "down", "j":
		if s.selected < len(draft.Steps)-1 {
			s.selected++
		}
	case "a":
		s.mode = modeAdding
		s.input = components.NewTextInput("new step title", 120)
		return s, s.input.Init()
	case "r":
		s.mode = modeRenaming
		s.input = components.NewTextInput(draft.Steps[s.selected].Title, 120)
		return s, s.input.Init()
	case "s":
		s.mode = modeEditingStack
		s.input = components.NewTextInput(draft.Stack, 200)
		return s, s.input.Init()
	case "d":
		if err := s.sess.RemoveStep(draft.Steps[s.selected].Index); err != nil {
			s.errMsg = err.Error()
		} else {
			s.errMsg = ""
			if n := len(s.sess.Plan().Steps); s.selected >= n {
				s.selected = n - 1
			}
		}
	case "g":
		s.generating = true
		s.errMsg = ""
		return s, tea.Batch(s.generateCmd(), tick())
	case "esc":
		if err := s.sess.Discard(); err != nil {
			s.errMsg = err.Error()
			return s, nil
		}
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	return s, nil
}

func (s *Screen) updateEditing(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		s.mode = modeViewing
		return s, nil
	case "enter":
		text := s.input.Value()
		var err error
		switch s.mode {
		case modeAdding:
			err = s.sess.AddStep(text)
		case modeRenaming:
			err = s.sess.RetitleStep(s.sess.Plan().Steps[s.selected].Index, text)
		case modeEditingStack:
			err = s.sess.EditStack(text)
		}
		if err != nil {
			s.errMsg = err.Error()
		} else {
			s.errMsg = ""
		}
		s.mode = modeViewing
		return s, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *Screen) View(width, height int) string {
	draft := s.sess.Plan()
	if draft == nil {
		return theme.Hint.Render("No draft.")
	}

	if s.generating {
		body := theme.Title.Render(spinnerFrames[s.frame]+" Generating your roadmap") + "\n\n" +
			theme.Hint.Render("This can take a minute; the work rides a queued job.")
		return lipgloss.NewStyle().
			Width(width).Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(body)
	}

	header := theme.Body.Render("Complexity: ") + theme.Selected.Render(draft.Complexity) + "\n" +
		theme.Body.Render("Stack:      ") + theme.Body.Render(draft.Stack) + "\n\n" +
		theme.Hint.Render(draft.Reason) + "\n"

	var list string
	for i, step := range draft.Steps {
		line := fmt.Sprintf("  %2d. %s", step.Index, step.Title)
		if i == s.selected {
			line = theme.Selected.Render("▸" + line[1:])
		} else {
			line = theme.Unselected.Render(line)
		}
		list += line + "\n"
	}

	body := header + "\n" + list
	if s.mode != modeViewing {
		prompt := map[int]string{
			modeAdding:       "New step title:",
			modeRenaming:     "Rename step:",
			modeEditingStack: "Edit stack:",
		}[s.mode]
		body += "\n" + theme.Body.Render(prompt) + "\n" + s.input.View() + "\n"
	}
	if s.errMsg != "" {
		body += "\n" + theme.Incorrect.Render(s.errMsg)
	}

	card := theme.Card.Width(min(width-4, 80)).Render(body)
	return lipgloss.NewStyle().
		Width(width).Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(card)
}
