// Package main is dashctl, the operator CLI for the dashboard's premium and
// dev-mode state. It talks to the same document store as the web server.
package main

import (
	"fmt"
	"os"

	"github.com/PancyStudios/PancyDash/internal/bootstrap"
	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/config"
	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	actorID   string
	actorName string

	// store is opened by the root pre-run unless already set
	store      *database.Store
	closeStore = func() {}
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Manage PancyDash premium subscriptions and dev mode",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if store != nil {
				return nil
			}
			cfg := config.Get()
			s, closeFn, err := bootstrap.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			store, closeStore = s, closeFn
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeStore()
		},
	}
	root.PersistentFlags().StringVar(&actorID, "user-id", "cli", "User ID recorded as the author of changes")
	root.PersistentFlags().StringVar(&actorName, "user-name", "", "Display name recorded as the author of changes")

	root.AddCommand(newPremiumCmd(), newDevModeCmd())
	return root
}

// actor is the user changes are attributed to
func actor() *session.User {
	return &session.User{ID: actorID, Name: actorName}
}

func main() {
	cfg := config.Get()
	log := logger.Init(cfg.ErrorWebhook, "")
	defer log.Close()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		log.Close()
		os.Exit(1)
	}
}
