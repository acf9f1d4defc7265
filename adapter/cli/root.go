package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	sharedApplication "github.com/felixgeelhaar/hearth/internal/shared/application"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

var (
	actorID    string
	outputJSON bool
	logger     *slog.Logger
)

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hearth",
	Short: "Hearth - household membership administration",
	Long: `Hearth manages users, households and the memberships between them.

Every user has at most one primary membership; its household and role are
mirrored onto the user record and read by household-scoped features.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logger == nil {
			logger = slog.Default()
		}
		info := commandContext{
			correlationID: uuid.New(),
			startedAt:     time.Now(),
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = context.WithValue(ctx, commandContextKey{}, info)
		ctx = observability.WithCorrelationID(ctx, info.correlationID.String())
		if actorID != "" {
			actor, err := uuid.Parse(actorID)
			if err != nil {
				return fmt.Errorf("invalid --actor: %w", err)
			}
			ctx = sharedApplication.WithActor(ctx, actor)
		}
		cmd.SetContext(ctx)

		logger.Debug("command start",
			"command", cmd.CommandPath(),
			"correlation_id", info.correlationID.String(),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
		if !ok {
			return
		}
		logger.Debug("command end",
			"command", cmd.CommandPath(),
			"correlation_id", info.correlationID.String(),
			"duration_ms", time.Since(info.startedAt).Milliseconds(),
		)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "", "user ID recorded as the actor on emitted events")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print results as JSON")
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// JSONOutput reports whether --json was given.
func JSONOutput() bool {
	return outputJSON
}

// SetJSONOutput overrides --json.
func SetJSONOutput(v bool) {
	outputJSON = v
}
