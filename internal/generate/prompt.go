package generate

import (
	"fmt"
	"strings"

	"github.com/kmori/trailmap/internal/roadmap"
)

const mentorSystemPrompt = `You are an expert engineering mentor. You design project-based learning paths: the learner names something they want to build, and you break the work into concrete, ordered steps that teach the required skills along the way. Respond with JSON only.`

// buildPlanPrompt asks for a stack proposal and step titles. Step count
// scales with the learner's level, and the final step is always security
// hardening.
func buildPlanPrompt(goal, stack string, level roadmap.Level, locale string) string {
	stackInfo := stack
	if stackInfo == "" {
		stackInfo = "unspecified (propose the best fit)"
	}

	var b strings.Builder
	b.WriteString("Analyze the project below, then propose a tech stack and learning step titles.\n\n")
	fmt.Fprintf(&b, "# Project\n- Goal: %s\n- Preferred stack: %s\n- Learner level: %s\n\n", goal, stackInfo, level)
	b.WriteString(`# Tasks
1. Adjust project complexity to the learner's level:
   - beginner: simple features, basic implementation (Low-Medium)
   - intermediate: practical features and best practices (Medium-High)
   - advanced: advanced features, scalability, performance (High)
2. Propose the stack (respect the learner's preference when given).
   State each technology's usage in parentheses, e.g. "React (frontend), PostgreSQL (database)".
3. Briefly explain the choice, including the complexity adjustment.
4. Produce 3-7 step titles scaled to the level:
   - beginner: 3-4 steps (fundamentals)
   - intermediate: 4-5 steps (practical features)
   - advanced: 5-7 steps (advanced features and optimization)
5. The last step must be "Security and Vulnerability Measures".
`)
	b.WriteString(outputLanguage(locale))
	return b.String()
}

// buildRoadmapPrompt expands approved step titles into full descriptions.
// Quizzes are explicitly excluded; they are generated per step on demand.
func buildRoadmapPrompt(goal, stack string, level roadmap.Level, steps []roadmap.PlanStep, locale string) string {
	var b strings.Builder
	b.WriteString("Create a learning roadmap for the project below.\n\n")
	fmt.Fprintf(&b, "# Project\n- Goal: %s\n- Stack: %s\n- Learner level: %s\n\n", goal, stack, level)
	b.WriteString("# Steps (follow exactly, same numbering and titles)\n")
	for _, s := range steps {
		fmt.Fprintf(&b, "  - Step %d: %s\n", s.Index, s.Title)
	}
	b.WriteString(`
# Rules
1. Write a detailed description for every step above.
2. Do NOT include quizzes; set "quizzes" to an empty array for all steps.
`)
	b.WriteString(outputLanguage(locale))
	return b.String()
}

// buildQuizPrompt asks for the fixed quiz count for one step.
func buildQuizPrompt(goal, stack string, level roadmap.Level, stepNumber int, title, desc, locale string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create %d multiple-choice quizzes checking understanding of the learning step below.\n\n", roadmap.QuizzesPerStep)
	fmt.Fprintf(&b, "# Project\n- Goal: %s\n- Stack: %s\n- Learner level: %s\n\n", goal, stack, level)
	fmt.Fprintf(&b, "# Target step\n- Step %d: %s\n- Content: %s\n\n", stepNumber, title, desc)
	fmt.Fprintf(&b, `# Rules
1. Test knowledge needed to implement this step and closely related concepts.
2. Match difficulty to the learner level (%s), mixing basic and advanced questions.
3. Each quiz has exactly %d options and a detailed explanation.
`, level, roadmap.QuizOptionCount)
	b.WriteString(outputLanguage(locale))
	return b.String()
}

func outputLanguage(locale string) string {
	if locale == "ja" {
		return "\nAll output text must be in Japanese.\n"
	}
	return "\nAll output text must be in English, even if the input is in another language.\n"
}
