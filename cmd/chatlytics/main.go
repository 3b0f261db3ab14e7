package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chatlytics-server/pkg/analytics"
	"chatlytics-server/pkg/config"
	"chatlytics-server/pkg/conversation"
	"chatlytics-server/pkg/database"
	http_server "chatlytics-server/pkg/http"
	"chatlytics-server/pkg/messaging"
	"chatlytics-server/pkg/metrics"
	"chatlytics-server/pkg/version"
)

var logger = logrus.New()

func main() {
	root := &cobra.Command{
		Use:   "chatlytics",
		Short: "Conversation log analytics engine",
		Long:  "chatlytics runs the conversation analysis pipeline, either as an HTTP service or as a one-shot CLI over a snapshot file.",
	}

	root.AddCommand(serveCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis HTTP service",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}
	if err := cfg.ApplyLogging(logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init(logger)
	metrics.EnableMetrics(cfg.HTTP.EnableMetrics)

	// Result store: MySQL when enabled, in-process memory otherwise
	var store analytics.ResultStore = analytics.NewInMemoryResultStore()
	var db *database.MySQLDatabase
	if cfg.Database.Enabled {
		db, err = database.NewMySQLDatabase(database.MySQLConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			Database:        cfg.Database.Database,
			Username:        cfg.Database.Username,
			Password:        cfg.Database.Password,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return err
		}
		store = database.NewRepository(db, logger)
	} else {
		logger.Info("Database disabled, keeping analysis results in memory")
	}

	// Event publishing: optional, the engine runs fine without it
	var amqpClient *messaging.AMQPClient
	var sink analytics.EventSink
	if cfg.Messaging.AMQPUrl != "" && cfg.Messaging.AMQPQueueName != "" {
		amqpClient = messaging.NewAMQPClient(logger, messaging.AMQPConfig{
			URL:          cfg.Messaging.AMQPUrl,
			QueueName:    cfg.Messaging.AMQPQueueName,
			ExchangeName: cfg.Messaging.ExchangeName,
			RoutingKey:   cfg.Messaging.RoutingKey,
		})
		if err := amqpClient.Connect(); err != nil {
			logger.WithError(err).Warn("AMQP connection failed, events disabled until reconnect")
		}
		sink = amqpClient
		defer amqpClient.Disconnect()
	} else {
		logger.Info("AMQP not configured, event publishing disabled")
	}

	source := conversation.NewDirectorySource(cfg.Analysis.SnapshotDir)
	engine := analytics.NewOrchestrator(logger, cfg.Analysis.ToAnalytics(), source, store, sink)

	if !cfg.HTTP.Enabled {
		return fmt.Errorf("HTTP server disabled, nothing to serve (set HTTP_ENABLED=true)")
	}

	httpConfig := &http_server.Config{
		Port:            cfg.HTTP.Port,
		Enabled:         cfg.HTTP.Enabled,
		EnableMetrics:   cfg.HTTP.EnableMetrics,
		EnableAPI:       cfg.HTTP.EnableAPI,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}
	server := http_server.NewServer(logger, httpConfig, engine, store)
	if amqpClient != nil {
		server.SetAMQPClient(amqpClient)
	}
	if db != nil {
		server.SetDatabase(db)
	}
	server.Start()

	logger.WithFields(logrus.Fields{
		"version":      version.Version,
		"port":         cfg.HTTP.Port,
		"snapshot_dir": cfg.Analysis.SnapshotDir,
	}).Info("chatlytics server started")

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func analyzeCmd() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "analyze <snapshot.json>",
		Short: "Analyze a single snapshot file and print the result document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(logger)
			if err != nil {
				return err
			}
			// One-shot runs log to stderr only for warnings so stdout
			// stays valid JSON.
			logger.SetOutput(os.Stderr)
			logger.SetLevel(logrus.WarnLevel)

			metrics.Init(logger)
			metrics.EnableMetrics(false)

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			fallbackID := strings.TrimSuffix(filepath.Base(args[0]), ".json")
			snap, err := conversation.ParseSnapshot(fallbackID, raw)
			if err != nil {
				return err
			}

			engine := analytics.NewOrchestrator(logger, cfg.Analysis.ToAnalytics(), nil, analytics.NewInMemoryResultStore(), nil)
			doc := engine.AnalyzeSnapshot(cmd.Context(), snap)

			var out []byte
			if compact {
				out, err = json.Marshal(doc)
			} else {
				out, err = json.MarshalIndent(doc, "", "  ")
			}
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "print the document on one line")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.UserAgent())
		},
	}
}
