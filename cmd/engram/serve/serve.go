// Package servecmder provides the serve command for running the memory server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/api"
	"github.com/papercomputeco/engram/api/mcp"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/consolidate"
	"github.com/papercomputeco/engram/pkg/dotdir"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/kafka"
	"github.com/papercomputeco/engram/pkg/eventstream/nop"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/mirror"
	s3mirror "github.com/papercomputeco/engram/pkg/mirror/s3"
	"github.com/papercomputeco/engram/pkg/scheduler"
	"github.com/papercomputeco/engram/pkg/search"
	"github.com/papercomputeco/engram/pkg/session"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/inmemory"
	"github.com/papercomputeco/engram/pkg/storage/mirrored"
	"github.com/papercomputeco/engram/pkg/storage/postgres"
	"github.com/papercomputeco/engram/pkg/storage/sqlite"
	"github.com/papercomputeco/engram/pkg/summarize"
	"github.com/papercomputeco/engram/pkg/summarize/provider"
)

const sqliteFile = "engram.db"

var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name: "listen", Shorthand: "l", ViperKey: "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagStorageDriver: {
		Name: "driver", ViperKey: "storage.driver",
		Description: "Storage driver (inmemory, sqlite, postgres)",
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
	config.FlagSchedule: {
		Name: "schedule", ViperKey: "consolidation.schedule",
		Description: "Cron schedule for automatic consolidation",
	},
	config.FlagScheduleEnabled: {
		Name: "schedule-enabled", ViperKey: "consolidation.enabled",
		Description: "Run consolidation on the configured schedule",
	},
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagSummarizerProvider,
	config.FlagSummarizerModel,
	config.FlagSummarizerTarget,
	config.FlagSchedule,
	config.FlagScheduleEnabled,
}

type ServeCommander struct {
	apiListen    string
	driver       string
	sqlitePath   string
	postgresDSN  string
	sumProvider  string
	sumModel     string
	sumAPIKey    string
	sumTarget    string
	schedule     string
	scheduleOn   bool
	mirrorOn     bool
	mirrorBucket string
	mirrorPrefix string
	mirrorRegion string
	eventsKind   string
	brokers      string
	topic        string
	newSession   bool

	configDir string
	debug     bool
	logger    *zap.Logger
}

const serveLongDesc string = `Run the engram memory server.

Serves the REST API and the MCP endpoint on a single address, with MCP
tools mounted at /mcp. When a summarizer is configured, consolidation also
runs on the configured cron schedule.

Restarts resume the previously active session from the .engram directory;
pass --new-session to begin a fresh one instead.

Configuration precedence: flags > ENGRAM_* environment > config.toml > defaults.

Examples:
  engram serve
  engram serve --driver sqlite --sqlite ./memory.db
  engram serve --summarizer-provider ollama --schedule "0 3 * * *"`

const serveShortDesc string = "Run the engram memory server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)

			cmder.apiListen = v.GetString("api.listen")
			cmder.driver = v.GetString("storage.driver")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.postgresDSN = v.GetString("storage.postgres_dsn")
			cmder.sumProvider = v.GetString("summarizer.provider")
			cmder.sumModel = v.GetString("summarizer.model")
			cmder.sumAPIKey = v.GetString("summarizer.api_key")
			cmder.sumTarget = v.GetString("summarizer.target")
			cmder.schedule = v.GetString("consolidation.schedule")
			cmder.scheduleOn = v.GetBool("consolidation.enabled")
			cmder.mirrorOn = v.GetBool("mirror.enabled")
			cmder.mirrorBucket = v.GetString("mirror.bucket")
			cmder.mirrorPrefix = v.GetString("mirror.prefix")
			cmder.mirrorRegion = v.GetString("mirror.region")
			cmder.eventsKind = v.GetString("events.provider")
			cmder.brokers = v.GetString("events.brokers")
			cmder.topic = v.GetString("events.topic")

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

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.apiListen)
	config.AddStringFlag(cmd, serveFlags, config.FlagStorageDriver, &cmder.driver)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, serveFlags, config.FlagSummarizerProvider, &cmder.sumProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagSummarizerModel, &cmder.sumModel)
	config.AddStringFlag(cmd, serveFlags, config.FlagSummarizerTarget, &cmder.sumTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagSchedule, &cmder.schedule)
	config.AddBoolFlag(cmd, serveFlags, config.FlagScheduleEnabled, &cmder.scheduleOn)

	cmd.Flags().BoolVar(&cmder.newSession, "new-session", false, "Start a fresh session instead of resuming the persisted one")

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create shared storer
	storer, err := c.createStorer(ctx)
	if err != nil {
		return err
	}
	defer storer.Close()

	// Wrap the storer when a remote mirror is configured
	storer, replicator, err := c.wrapMirror(ctx, storer)
	if err != nil {
		return err
	}
	if replicator != nil {
		defer replicator.Close()
	}

	publisher := c.createPublisher()
	defer publisher.Close()

	consolidator, err := c.createConsolidator(storer)
	if err != nil {
		return err
	}

	sessions, err := c.restoreSession()
	if err != nil {
		return err
	}

	searcher := search.NewEngine(storer, c.logger)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Storer:       storer,
		Sessions:     sessions,
		Searcher:     searcher,
		Consolidator: consolidator,
		Publisher:    publisher,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiConfig := api.Config{
		ListenAddr: c.apiListen,
	}
	apiServer := api.NewServer(apiConfig, storer, sessions, searcher, consolidator, publisher, mcpServer.Handler(), c.logger)

	c.logger.Info("starting api server",
		zap.String("api_addr", c.apiListen),
		zap.String("driver", c.driver),
	)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	if consolidator != nil && c.scheduleOn {
		sched, err := scheduler.New(scheduler.Config{
			Schedule: c.schedule,
			Runner:   consolidator,
			Logger:   c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating scheduler: %w", err)
		}

		go func() {
			if err := sched.Start(ctx); err != nil {
				errChan <- fmt.Errorf("scheduler error: %w", err)
			}
		}()
	}

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		return apiServer.Shutdown()
	}
}

func (c *ServeCommander) createStorer(ctx context.Context) (storage.Driver, error) {
	switch strings.ToLower(c.driver) {
	case "sqlite":
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
		c.logger.Info("using SQLite storage", zap.String("path", path))
		return storer, nil

	case "postgres":
		if c.postgresDSN == "" {
			return nil, fmt.Errorf("postgres driver requires storage.postgres_dsn")
		}

		storer, err := postgres.NewDriver(ctx, c.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres storer: %w", err)
		}
		c.logger.Info("using Postgres storage")
		return storer, nil

	case "inmemory", "memory":
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q (available: inmemory, sqlite, postgres)", c.driver)
	}
}

// wrapMirror wires the S3 replication path around the storer when mirroring
// is enabled. The returned storer signals the replicator after every mutation.
func (c *ServeCommander) wrapMirror(ctx context.Context, storer storage.Driver) (storage.Driver, *mirror.Replicator, error) {
	if !c.mirrorOn {
		return storer, nil, nil
	}

	m, err := s3mirror.NewMirror(ctx, s3mirror.Config{
		Bucket: c.mirrorBucket,
		Prefix: c.mirrorPrefix,
		Region: c.mirrorRegion,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating S3 mirror: %w", err)
	}

	replicator := mirror.NewReplicator(mirror.Config{
		Source: storer,
		Mirror: m,
		Logger: c.logger,
	})

	c.logger.Info("mirroring store to S3",
		zap.String("bucket", c.mirrorBucket),
		zap.String("prefix", c.mirrorPrefix),
	)

	return mirrored.NewDriver(storer, replicator), replicator, nil
}

func (c *ServeCommander) createPublisher() eventstream.Publisher {
	if strings.ToLower(c.eventsKind) == "kafka" {
		brokers := strings.Split(c.brokers, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}

		c.logger.Info("publishing events to Kafka",
			zap.Strings("brokers", brokers),
			zap.String("topic", c.topic),
		)
		return kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   c.topic,
		})
	}

	return nop.NewPublisher()
}

// createConsolidator resolves the summarizer and builds the consolidation
// engine. A missing summarizer is not an error; the server runs without
// consolidation and reports ErrNotConfigured on demand.
func (c *ServeCommander) createConsolidator(storer storage.Driver) (*consolidate.Engine, error) {
	summarizer, err := provider.New(provider.Config{
		Provider: c.sumProvider,
		Model:    c.sumModel,
		APIKey:   c.sumAPIKey,
		Target:   c.sumTarget,
	})
	if err != nil {
		if errors.Is(err, summarize.ErrNotConfigured) {
			c.logger.Info("no summarizer configured, consolidation disabled")
			return nil, nil
		}
		return nil, err
	}

	return consolidate.NewEngine(consolidate.Config{
		Driver:     storer,
		Summarizer: summarizer,
		Logger:     c.logger,
	}), nil
}

// restoreSession resumes the persisted active session so server restarts
// keep appending to the same conversation. --new-session skips the
// restore and starts fresh.
func (c *ServeCommander) restoreSession() (*session.Tracker, error) {
	manager := dotdir.NewManager()

	if !c.newSession {
		state, err := manager.LoadSessionState(c.configDir)
		if err != nil {
			return nil, fmt.Errorf("loading session state: %w", err)
		}

		if state != nil {
			c.logger.Info("resuming session", zap.String("session_id", state.SessionID))
			return session.NewTrackerFrom(state.SessionID), nil
		}
	}

	tracker := session.NewTracker()
	saveErr := manager.SaveSession(&dotdir.SessionState{
		SessionID: tracker.Current(),
		StartedAt: time.Now().UTC(),
	}, c.configDir)
	if saveErr != nil {
		c.logger.Warn("could not persist session state", zap.Error(saveErr))
	}

	return tracker, nil
}
