package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/kmori/trailmap/internal/api"
	"github.com/kmori/trailmap/internal/app"
	"github.com/kmori/trailmap/internal/gate"
	"github.com/kmori/trailmap/internal/generate"
	"github.com/kmori/trailmap/internal/llm"
	"github.com/kmori/trailmap/internal/progress"
	"github.com/kmori/trailmap/internal/roadmap"
	"github.com/kmori/trailmap/internal/screens/home"
	"github.com/kmori/trailmap/internal/session"
	"github.com/kmori/trailmap/internal/store"
	"github.com/spf13/cobra"
)

// projectScores persists a step score against whichever project the
// session currently holds. The project is not known when the tracker is
// built, so it is resolved at save time.
type projectScores struct {
	project func() *roadmap.Project
	save    func(ctx context.Context, projectID int64, stepIndex int, score roadmap.Score) error
}

func (p *projectScores) SaveScore(ctx context.Context, stepIndex int, score roadmap.Score) error {
	project := p.project()
	if project == nil {
		return fmt.Errorf("no active project")
	}
	return p.save(ctx, project.ID, stepIndex, score)
}

// runApp opens the store, builds the backend, and launches the TUI.
// With TRAILMAP_API_URL set the roadmap service does the generating;
// otherwise a local LLM provider fills the same role.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	plan := roadmap.PlanFree
	if os.Getenv("TRAILMAP_PLAN") == string(roadmap.PlanPro) {
		plan = roadmap.PlanPro
	}

	gateCfg := gate.DefaultConfig()
	if v := os.Getenv("TRAILMAP_FREE_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			gateCfg.FreeSteps = n
		}
	}

	var (
		backend session.Backend
		resume  home.ResumeFunc
		saver   = &projectScores{}
		sess    *session.Session
	)

	if os.Getenv("TRAILMAP_API_URL") != "" {
		cfg := api.ConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("backend config: %w", err)
		}
		// The hook fires on the first 401 from any request; invalidating
		// the session cancels its context and stops in-flight polling.
		client := api.New(cfg, api.WithLogoutHook(func() {
			if sess != nil {
				sess.Invalidate()
			}
		}))
		backend = client
		resume = client.LatestProject
		saver.save = client.SaveStepScore
	} else {
		llmCfg, ok := llm.DiscoverConfig()
		if os.Getenv("TRAILMAP_LLM_PROVIDER") != "" || !ok {
			llmCfg = llm.ConfigFromEnv()
		}
		if err := llmCfg.Validate(); err != nil {
			return fmt.Errorf("no backend configured: set TRAILMAP_API_URL or an LLM API key (%w)", err)
		}
		provider, err := llm.NewProvider(ctx, llmCfg, st.Events())
		if err != nil {
			return fmt.Errorf("create LLM provider: %w", err)
		}
		backend = generate.New(provider, st.Projects(), generate.DefaultConfig())
		resume = st.Projects().Latest
		saver.save = st.Scores().Save
	}

	tracker := progress.NewTracker(saver)
	sess = session.New(backend, gate.New(gateCfg), tracker, session.Config{Plan: plan})
	saver.project = sess.Project

	return app.Run(sess, resume)
}
