// Package home is the entry screen: start a new roadmap, resume the
// latest one, or quit.
package home

import (
	"context"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/kmori/trailmap/internal/roadmap"
	"github.com/kmori/trailmap/internal/router"
	"github.com/kmori/trailmap/internal/screen"
	"github.com/kmori/trailmap/internal/screens/goal"
	"github.com/kmori/trailmap/internal/screens/trail"
	"github.com/kmori/trailmap/internal/session"
	"github.com/kmori/trailmap/internal/ui/components"
	"github.com/kmori/trailmap/internal/ui/theme"
)

// ResumeFunc fetches the learner's latest saved project, or nil when
// none exists.
type ResumeFunc func(ctx context.Context) (*roadmap.Project, error)

// resumedMsg reports the outcome of a resume attempt.
type resumedMsg struct {
	project *roadmap.Project
	err     error
}

// Screen is the home menu.
type Screen struct {
	sess   *session.Session
	resume ResumeFunc
	menu   components.Menu
	errMsg string
}

var _ screen.Screen = (*Screen)(nil)

// New creates the home screen. resume may be nil when no persistence is
// configured.
func New(sess *session.Session, resume ResumeFunc) *Screen {
	s := &Screen{sess: sess, resume: resume}
	s.menu = components.NewMenu([]components.MenuItem{
		{
			Label: "Start a new roadmap",
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: goal.New(sess)}
				}
			},
		},
		{
			Label:    "Resume latest roadmap",
			Disabled: resume == nil,
			Action: func() tea.Cmd {
				return s.resumeCmd()
			},
		},
		{
			Label:  "Quit",
			Action: func() tea.Cmd { return tea.Quit },
		},
	})
	return s
}

func (s *Screen) resumeCmd() tea.Cmd {
	return func() tea.Msg {
		project, err := s.resume(s.sess.Context())
		return resumedMsg{project: project, err: err}
	}
}

func (s *Screen) Init() tea.Cmd {
	return nil
}

func (s *Screen) Title() string {
	return "Home"
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case resumedMsg:
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			return s, nil
		}
		if msg.project == nil {
			s.errMsg = "no saved roadmap to resume"
			return s, nil
		}
		if err := s.sess.Resume(msg.project); err != nil {
			s.errMsg = err.Error()
			return s, nil
		}
		return s, func() tea.Msg {
			return router.PushScreenMsg{Screen: trail.New(s.sess)}
		}
	}

	s.errMsg = ""
	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return s, cmd
}

func (s *Screen) View(width, height int) string {
	title := theme.Title.Render("Trailmap")
	subtitle := theme.Subtitle.Render("Name what you want to build. Learn by building it.")

	body := title + "\n" + subtitle + "\n\n" + s.menu.View()
	if s.errMsg != "" {
		body += "\n" + theme.Incorrect.Render(s.errMsg)
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(body)
}
