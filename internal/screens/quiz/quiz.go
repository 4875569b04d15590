// Package quiz runs one step's quiz items in order, shows feedback with
// explanations, and closes with the step tally.
package quiz

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/kmori/trailmap/internal/router"
	"github.com/kmori/trailmap/internal/screen"
	"github.com/kmori/trailmap/internal/screens/paywall"
	"github.com/kmori/trailmap/internal/session"
	"github.com/kmori/trailmap/internal/ui/components"
	"github.com/kmori/trailmap/internal/ui/layout"
	"github.com/kmori/trailmap/internal/ui/theme"
)

const (
	stateAnswering = iota
	stateFeedback
	stateSummary
)

// answeredMsg reports a submitted answer.
type answeredMsg struct {
	res *session.AnswerResult
	err error
}

// advancedMsg reports moving on from a completed step.
type advancedMsg struct {
	nextIndex int
	outcome   session.EnterOutcome
	err       error
}

// retriedMsg reports a persistence retry.
type retriedMsg struct {
	err error
}

// Screen runs the quiz for the currently open step.
type Screen struct {
	sess    *session.Session
	state   int
	mc      components.MultiChoice
	result  *session.AnswerResult
	busy    bool
	errMsg  string
	persist string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the quiz screen for the step the session has open.
func New(sess *session.Session) *Screen {
	s := &Screen{sess: sess}
	s.loadCurrent()
	return s
}

func (s *Screen) loadCurrent() {
	q, _ := s.sess.CurrentQuiz()
	if q == nil {
		return
	}
	s.mc = components.NewMultiChoice(q.Question, q.Options)
	s.state = stateAnswering
	s.result = nil
}

func (s *Screen) Init() tea.Cmd {
	return nil
}

func (s *Screen) Title() string {
	if step := s.sess.CurrentStep(); step != nil {
		return fmt.Sprintf("Step %d: %s", step.Index, step.Title)
	}
	return "Quiz"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	switch s.state {
	case stateFeedback:
		return []layout.KeyHint{{Key: "Enter", Description: "Continue"}}
	case stateSummary:
		hints := []layout.KeyHint{
			{Key: "Enter", Description: "Next step"},
			{Key: "Esc", Description: "Roadmap"},
		}
		if s.persist != "" {
			hints = append(hints, layout.KeyHint{Key: "r", Description: "Retry save"})
		}
		return hints
	default:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Choose"},
			{Key: "Enter", Description: "Answer"},
			{Key: "Esc", Description: "Leave step"},
		}
	}
}

func (s *Screen) submitCmd(option int) tea.Cmd {
	return func() tea.Msg {
		res, err := s.sess.SubmitAnswer(s.sess.Context(), option)
		return answeredMsg{res: res, err: err}
	}
}

func (s *Screen) advanceCmd() tea.Cmd {
	next := 0
	if step := s.sess.CurrentStep(); step != nil {
		next = step.Index + 1
	}
	return func() tea.Msg {
		outcome, err := s.sess.AdvanceStep(s.sess.Context())
		return advancedMsg{nextIndex: next, outcome: outcome, err: err}
	}
}

func (s *Screen) retryCmd() tea.Cmd {
	return func() tea.Msg {
		return retriedMsg{err: s.sess.RetryPersist(s.sess.Context())}
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case answeredMsg:
		s.busy = false
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			return s, nil
		}
		s.result = msg.res
		s.mc.Submitted = true
		s.mc.ChosenIndex = s.mc.Selected
		s.mc.Reveal(msg.res.CorrectIndex)
		if msg.res.StepDone {
			s.state = stateSummary
			if msg.res.PersistErr != nil {
				s.persist = "score saved locally; sync pending"
			}
		} else {
			s.state = stateFeedback
		}
		return s, nil

	case advancedMsg:
		s.busy = false
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			return s, nil
		}
		if s.sess.Phase() == session.PhaseAllCompleted {
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
		if msg.outcome == session.Locked {
			return s, func() tea.Msg {
				return router.ReplaceScreenMsg{Screen: paywall.New(msg.nextIndex)}
			}
		}
		s.persist = ""
		s.loadCurrent()
		return s, nil

	case retriedMsg:
		if msg.err == nil {
			s.persist = ""
		}
		return s, nil

	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch s.state {
	case stateAnswering:
		switch msg.String() {
		case "enter":
			s.busy = true
			s.errMsg = ""
			return s, s.submitCmd(s.mc.Selected)
		default:
			s.mc, _ = s.mc.Update(msg)
		}

	case stateFeedback:
		if msg.String() == "enter" {
			if err := s.sess.NextQuiz(); err != nil {
				s.errMsg = err.Error()
				return s, nil
			}
			s.loadCurrent()
		}

	case stateSummary:
		switch msg.String() {
		case "enter":
			s.busy = true
			return s, s.advanceCmd()
		case "r":
			if s.persist != "" {
				return s, s.retryCmd()
			}
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	var body string
	switch s.state {
	case stateSummary:
		body = s.summaryView()
	default:
		body = s.quizView()
	}

	card := theme.Card.Width(min(width-4, 80)).Render(body)
	return lipgloss.NewStyle().
		Width(width).Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(card)
}

func (s *Screen) quizView() string {
	_, pos := s.sess.CurrentQuiz()
	total := 0
	if step := s.sess.CurrentStep(); step != nil {
		total = len(step.Quizzes)
	}

	body := theme.Hint.Render(fmt.Sprintf("Question %d of %d", pos+1, total)) + "\n\n" +
		s.mc.View()

	if s.state == stateFeedback && s.result != nil {
		if s.result.Correct {
			body += "\n" + theme.Correct.Render("Correct!")
		} else {
			body += "\n" + theme.Incorrect.Render("Not quite.")
		}
		body += "\n" + theme.Body.Render(s.result.Explanation)
	}
	if s.errMsg != "" {
		body += "\n" + theme.Incorrect.Render(s.errMsg)
	}
	return body
}

func (s *Screen) summaryView() string {
	score := s.result.Score
	body := theme.Title.Render("Step complete") + "\n\n" +
		theme.Body.Render(fmt.Sprintf("Score: %d/%d (%d%%)", score.Correct, score.Total, score.Percentage))
	if !s.result.Correct {
		body += "\n" + theme.Hint.Render("Last answer: "+s.result.Explanation)
	}
	if s.persist != "" {
		body += "\n\n" + theme.Incorrect.Render(s.persist)
	}
	return body
}
