package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"storyloop/internal/config"
	"storyloop/internal/logging"
)

func openStore() (*logging.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return logging.Open(cfg.CompletionDB)
}

func reviewCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Show recent turns, escalations and completions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			ctx := cmd.Context()

			turns, err := store.RecentTurns(ctx, limit)
			if err != nil {
				return err
			}
			escalations, err := store.RecentEscalations(ctx, limit)
			if err != nil {
				return err
			}
			completions, err := store.RecentCompletions(ctx, limit)
			if err != nil {
				return err
			}

			if len(turns) == 0 && len(completions) == 0 {
				cmd.Println("Nothing logged yet. Play the game first to generate data!")
				return nil
			}

			cmd.Printf("Recent turns (%d):\n", len(turns))
			for _, t := range turns {
				flag := ""
				if t.Escalated {
					flag = " [" + t.Outcome + "]"
				}
				cmd.Printf("[%d] %s | %s @ %s | %s | risk %.2f%s\n",
					t.ID, t.Timestamp.Format("15:04:05"), t.Actor, t.Location, t.Action, t.Score, flag)
			}

			if len(escalations) > 0 {
				cmd.Printf("\nRecent escalations (%d):\n", len(escalations))
				for _, e := range escalations {
					cmd.Printf("[%d] %s | %s | %.2f >= %.2f | %s\n",
						e.ID, e.Timestamp.Format("15:04:05"), e.Kind, e.Score, e.Threshold, e.Message)
				}
			}

			cmd.Printf("\nRecent completions (%d):\n\n", len(completions))
			for _, comp := range completions {
				printCompletion(cmd, comp)
			}
			cmd.Println("\nTo rate a completion: storyloop rate <id> <rating> [notes]")
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "entries per section")
	return cmd
}

func printCompletion(cmd *cobra.Command, comp logging.CompletionLog) {
	var metadata logging.CompletionMetadata
	if err := json.Unmarshal([]byte(comp.Metadata), &metadata); err == nil {
		cmd.Printf("[%d] %s | %s | %v\n", comp.ID, comp.Timestamp.Format("15:04:05"), metadata.Operation, metadata.ResponseTime)
		if metadata.Error != nil {
			cmd.Printf("Fallback: %s\n", *metadata.Error)
		}
	} else {
		cmd.Printf("[%d] %s\n", comp.ID, comp.Timestamp.Format("15:04:05"))
	}

	cmd.Printf("Response: %s\n", comp.Response)
	if comp.Rating != nil {
		cmd.Printf("Rating: %d/5", *comp.Rating)
		if comp.Notes != nil {
			cmd.Printf(" - %s", *comp.Notes)
		}
	} else {
		cmd.Printf("Rating: not rated")
	}
	cmd.Println("\n" + strings.Repeat("-", 50))
}

func rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id> <rating> [notes]",
		Short: "Rate a logged completion from 1 to 5",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id: %w", err)
			}
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating: %w", err)
			}
			notes := strings.Join(args[2:], " ")

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.RateCompletion(cmd.Context(), id, rating, notes); err != nil {
				return err
			}
			cmd.Printf("Rated completion %d as %d/5", id, rating)
			if notes != "" {
				cmd.Printf(" with notes: %s", notes)
			}
			cmd.Println()
			return nil
		},
	}
}
