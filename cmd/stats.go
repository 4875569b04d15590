package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/kmori/trailmap/internal/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show saved roadmaps and generation usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := context.Background()

		projects, err := s.Projects().List(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		if len(projects) == 0 {
			fmt.Println("No roadmaps saved yet.")
		} else {
			fmt.Println("Roadmaps")
			fmt.Println(strings.Repeat("─", 72))
			fmt.Printf("%-5s  %-34s  %-12s  %5s  %s\n", "ID", "Goal", "Level", "Steps", "Created")
			fmt.Println(strings.Repeat("─", 72))
			for _, p := range projects {
				fmt.Printf("%-5d  %-34s  %-12s  %5d  %s\n",
					p.ID, truncate(p.Goal, 34), p.Level, p.Steps,
					p.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
		}

		stats, err := s.Events().GenerationStats(ctx)
		if err != nil {
			return fmt.Errorf("query generation stats: %w", err)
		}

		fmt.Println()
		if stats.Calls == 0 {
			fmt.Println("No generation usage recorded yet.")
			return nil
		}

		fmt.Println("Generation Usage")
		fmt.Println(strings.Repeat("─", 72))
		fmt.Printf("%-8s  %-8s  %10s  %10s  %8s\n", "Calls", "Failed", "Input", "Output", "Avg Ms")
		fmt.Println(strings.Repeat("─", 72))
		fmt.Printf("%-8d  %-8d  %10d  %10d  %8d\n",
			stats.Calls, stats.Failures, stats.InputTokens, stats.OutputTokens, stats.AvgLatencyMs)
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
