// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	smartsearch "github.com/poiesic/smartsearch"
	"github.com/poiesic/smartsearch/client"
	"github.com/poiesic/smartsearch/config"
	"github.com/poiesic/smartsearch/core"
	"github.com/poiesic/smartsearch/daemon"
	"github.com/poiesic/smartsearch/search"
	"github.com/poiesic/smartsearch/session"
)

func main() {
	app := &cli.App{
		Name:  "smartsearch",
		Usage: "Semantic search over local document collections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Build or rebuild an index over a directory",
				ArgsUsage: "[path]",
				Action:    indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Index name (defaults to the configured default index)",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search indexed documents",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "scope",
						Aliases: []string{"s"},
						Usage:   "Restrict results to paths under this directory",
					},
					&cli.StringFlag{
						Name:    "index",
						Aliases: []string{"i"},
						Usage:   "Search only this index (default: all)",
					},
					&cli.BoolFlag{
						Name:  "no-hybrid",
						Usage: "Disable the keyword path boost",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: search.DefaultLimit,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score",
						Value: search.DefaultThreshold,
					},
					&cli.BoolFlag{
						Name:  "cold",
						Usage: "Skip the daemon and search in process",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the search daemon",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "host",
						Usage: "Listen host",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "Listen port",
					},
				},
			},
			{
				Name:   "stop",
				Usage:  "Stop a running daemon",
				Action: stopCommand,
			},
			{
				Name:   "list",
				Usage:  "List saved indices",
				Action: listCommand,
			},
			{
				Name:      "remove",
				Usage:     "Delete a saved index",
				ArgsUsage: "<name>",
				Action:    removeCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("embedding-host") {
		cfg.EmbeddingHost = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.EmbeddingModel = c.String("embedding-model")
	}
	return cfg, nil
}

func indexCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	root := c.Args().First()
	if root == "" {
		root = cfg.Vault
	}
	if root == "" {
		return fmt.Errorf("no path given and %s is not set", config.EnvVault)
	}

	name := c.String("name")
	if name == "" {
		name = cfg.DefaultIndex
	}

	engine, err := smartsearch.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	ix, report, err := pipeline.Build(ctx, root, name)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	if err := engine.IndexRepository().Save(ctx, ix); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %d files (%d chunks) into %q in %s\n",
		report.FilesIndexed, report.Chunks, name, report.Elapsed.Round(10*time.Millisecond))
	for _, warning := range report.Warnings {
		fmt.Fprintf(os.Stderr, "  skipped %s\n", warning)
	}

	notifyReload(ctx, cfg)
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	text := strings.Join(c.Args().Slice(), " ")
	q := &core.Query{
		Text:      text,
		Scope:     c.String("scope"),
		Index:     c.String("index"),
		Hybrid:    !c.Bool("no-hybrid"),
		Limit:     c.Int("limit"),
		Threshold: float32(c.Float64("threshold")),
	}
	if err := core.ValidateQuery(q); err != nil {
		return err
	}

	searcher, cleanup, err := pickSearcher(ctx, cfg, c.Bool("cold"))
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := searcher.Search(ctx, q)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(results)
}

// pickSearcher returns the warm path when a daemon answers the probe,
// otherwise a freshly loaded in-process session with live scanning.
func pickSearcher(ctx context.Context, cfg *config.Config, cold bool) (client.Searcher, func(), error) {
	if !cold {
		remote := client.New(cfg.Host, cfg.Port)
		if remote.Available(ctx) {
			return remote, func() {}, nil
		}
		slog.Debug("daemon unreachable, using cold path")
	}

	engine, err := smartsearch.NewEngine(cfg)
	if err != nil {
		return nil, nil, err
	}
	pipeline, err := engine.NewPipeline()
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	sess, err := engine.NewSession(session.WithScanner(pipeline))
	if err != nil {
		pipeline.Release()
		engine.Close()
		return nil, nil, err
	}
	if err := sess.Start(ctx); err != nil {
		pipeline.Release()
		engine.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pipeline.Release()
		engine.Close()
	}
	return sess, cleanup, nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	engine, err := smartsearch.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	sess, err := engine.NewSession(session.WithScanner(pipeline))
	if err != nil {
		return err
	}
	if err := sess.Start(ctx); err != nil {
		return err
	}

	srv, err := daemon.New(sess, daemon.WithAddr(cfg.Host, cfg.Port))
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

func stopCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	remote := client.New(cfg.Host, cfg.Port)
	if err := remote.Stop(ctx); err != nil {
		return fmt.Errorf("no daemon running at %s:%d", cfg.Host, cfg.Port)
	}
	fmt.Fprintln(os.Stderr, "Daemon stopped")
	return nil
}

func listCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	engine, err := smartsearch.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	metas, err := engine.IndexRepository().List(ctx)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Fprintln(os.Stderr, "No indices found")
		return nil
	}

	for _, meta := range metas {
		fmt.Printf("%s\t%d files\t%d chunks\tdim %d\t%s\t%s\n",
			meta.Name, meta.FileCount, meta.ChunkCount, meta.Dimension,
			meta.CreatedAt.Format("2006-01-02 15:04"), meta.Root)
	}
	return nil
}

func removeCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("index name is required")
	}

	engine, err := smartsearch.NewEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.IndexRepository().Remove(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Removed index %q\n", name)

	notifyReload(ctx, cfg)
	return nil
}

// notifyReload tells a running daemon to pick up index changes.
// Best effort: a missing daemon is not an error.
func notifyReload(ctx context.Context, cfg *config.Config) {
	remote := client.New(cfg.Host, cfg.Port)
	if !remote.Available(ctx) {
		return
	}
	if err := remote.Reload(ctx); err != nil {
		slog.Warn("daemon reload failed", "err", err)
		return
	}
	fmt.Fprintln(os.Stderr, "Daemon reloaded")
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
