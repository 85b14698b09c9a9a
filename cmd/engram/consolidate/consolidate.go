// Package consolidatecmder provides the consolidate command for running a
// single consolidation cycle against the local store.
package consolidatecmder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/consolidate"
	"github.com/papercomputeco/engram/pkg/dotdir"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/postgres"
	"github.com/papercomputeco/engram/pkg/storage/sqlite"
	"github.com/papercomputeco/engram/pkg/summarize/provider"
	"github.com/papercomputeco/engram/pkg/utils"
)

const sqliteFile = "engram.db"

var consolidateFlags = config.FlagSet{
	config.FlagStorageDriver: {
		Name: "driver", ViperKey: "storage.driver",
		Description: "Storage driver (sqlite, postgres)",
	},
	config.FlagSQLite: {
		Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path",
		Description: "Path to SQLite database (default: <.engram dir>/engram.db)",
	},
	config.FlagPostgresDSN: {
		Name: "postgres-dsn", ViperKey: "storage.postgres_dsn",
		Description: "Postgres connection string",
	},
	config.FlagSummarizerProvider: {
		Name: "summarizer-provider", ViperKey: "summarizer.provider",
		Description: "Summarizer provider (anthropic, openai, ollama)",
	},
	config.FlagSummarizerModel: {
		Name: "summarizer-model", ViperKey: "summarizer.model",
		Description: "Summarizer model override",
	},
	config.FlagSummarizerTarget: {
		Name: "summarizer-target", ViperKey: "summarizer.target",
		Description: "Summarizer endpoint override",
	},
}

var consolidateFlagKeys = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagSummarizerProvider,
	config.FlagSummarizerModel,
	config.FlagSummarizerTarget,
}

type consolidateCommander struct {
	driver      string
	sqlitePath  string
	postgresDSN string
	sumProvider string
	sumModel    string
	sumAPIKey   string
	sumTarget   string

	configDir string
	debug     bool
	logger    *zap.Logger
}

const consolidateLongDesc string = `Run one consolidation cycle.

Distills today's unconsolidated short-term messages into a single long-term
memory entry using the configured summarizer, then marks those messages as
consolidated. A run with nothing to consolidate is a no-op.

This operates directly on the store; the in-memory driver is not offered
here because a fresh process would have nothing to consolidate.

Examples:
  engram consolidate
  engram consolidate --summarizer-provider ollama --summarizer-model llama3.2`

const consolidateShortDesc string = "Run one consolidation cycle"

func NewConsolidateCmd() *cobra.Command {
	cmder := &consolidateCommander{}

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: consolidateShortDesc,
		Long:  consolidateLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, consolidateFlags, consolidateFlagKeys)

			cmder.driver = v.GetString("storage.driver")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.postgresDSN = v.GetString("storage.postgres_dsn")
			cmder.sumProvider = v.GetString("summarizer.provider")
			cmder.sumModel = v.GetString("summarizer.model")
			cmder.sumAPIKey = v.GetString("summarizer.api_key")
			cmder.sumTarget = v.GetString("summarizer.target")

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, consolidateFlags, config.FlagStorageDriver, &cmder.driver)
	config.AddStringFlag(cmd, consolidateFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, consolidateFlags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, consolidateFlags, config.FlagSummarizerProvider, &cmder.sumProvider)
	config.AddStringFlag(cmd, consolidateFlags, config.FlagSummarizerModel, &cmder.sumModel)
	config.AddStringFlag(cmd, consolidateFlags, config.FlagSummarizerTarget, &cmder.sumTarget)

	return cmd
}

func (c *consolidateCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx := context.Background()

	storer, err := c.createStorer(ctx)
	if err != nil {
		return err
	}
	defer storer.Close()

	summarizer, err := provider.New(provider.Config{
		Provider: c.sumProvider,
		Model:    c.sumModel,
		APIKey:   c.sumAPIKey,
		Target:   c.sumTarget,
	})
	if err != nil {
		return err
	}

	engine := consolidate.NewEngine(consolidate.Config{
		Driver:     storer,
		Summarizer: summarizer,
		Logger:     c.logger,
	})

	var result *consolidate.Result
	err = cliui.Step(os.Stdout, "Consolidating today's messages", func() error {
		var runErr error
		result, runErr = engine.Run(ctx)
		return runErr
	})
	if err != nil {
		return err
	}

	if result.Empty {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("Nothing to consolidate."))
		return nil
	}

	fmt.Printf("\n  %s  %s\n",
		cliui.KeyStyle.Render("Entry:       "),
		cliui.NameStyle.Render(result.LongTermID),
	)
	fmt.Printf("  %s  %s\n",
		cliui.KeyStyle.Render("Consolidated:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%d messages", result.Consolidated)),
	)
	fmt.Printf("  %s  %s\n\n",
		cliui.KeyStyle.Render("Summary:     "),
		cliui.PreviewStyle.Render(utils.Truncate(result.Summary, 80)),
	)

	if result.Repaired {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Summarizer output needed repair; entry holds a fallback summary."))
	}

	return nil
}

func (c *consolidateCommander) createStorer(ctx context.Context) (storage.Driver, error) {
	switch strings.ToLower(c.driver) {
	case "sqlite", "inmemory", "memory", "":
		// The in-memory driver makes no sense for a one-shot command, so
		// anything that is not postgres falls back to the sqlite store.
		path := c.sqlitePath
		if path == "" {
			dir, err := dotdir.NewManager().Target(c.configDir)
			if err != nil {
				return nil, fmt.Errorf("resolving sqlite path: %w", err)
			}
			path = filepath.Join(dir, sqliteFile)
		}

		storer, err := sqlite.NewDriver(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		return storer, nil

	case "postgres":
		if c.postgresDSN == "" {
			return nil, fmt.Errorf("postgres driver requires storage.postgres_dsn")
		}

		storer, err := postgres.NewDriver(ctx, c.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres storer: %w", err)
		}
		return storer, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q (available: sqlite, postgres)", c.driver)
	}
}
