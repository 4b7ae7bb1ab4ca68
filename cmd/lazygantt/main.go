package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/Joseda-hg/lazygantt/internal/config"
	"github.com/Joseda-hg/lazygantt/internal/db"
	"github.com/Joseda-hg/lazygantt/internal/depgraph"
	"github.com/Joseda-hg/lazygantt/internal/gantt"
	"github.com/Joseda-hg/lazygantt/internal/timeline"
	"github.com/Joseda-hg/lazygantt/internal/tui"
	"github.com/Joseda-hg/lazygantt/internal/web"
)

var version = "dev"

func main() {
	configPathFlag := flag.String("config", "", "config file path")
	dbPathFlag := flag.String("db", "", "sqlite db path")
	webFlag := flag.Bool("web", false, "enable web server")
	webOnlyFlag := flag.Bool("web-only", false, "run web server only")
	portFlag := flag.Int("port", 0, "web server port")
	viewFlag := flag.String("view", "", "default timeline view (day, week, month)")
	debugFlag := flag.Bool("debug", false, "debug logging")
	reportFlag := flag.Bool("report", false, "print a schedule report and exit")
	demoFlag := flag.Bool("demo", false, "create a sample project")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println("lazygantt", version)
		return
	}

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		fatal(err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(err)
	}

	if *dbPathFlag != "" {
		cfg.DBPath = *dbPathFlag
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "lazygantt.db")
	}
	if *webFlag || *webOnlyFlag {
		cfg.WebEnabled = true
	}
	if *portFlag != 0 {
		cfg.WebPort = *portFlag
	}
	if *viewFlag != "" {
		cfg.DefaultView = *viewFlag
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		fatal(err)
	}

	logger, closeLog, err := setupLogger(*debugFlag, *webOnlyFlag || *reportFlag, filepath.Dir(cfgPath))
	if err != nil {
		fatal(err)
	}
	defer closeLog()

	store, err := openStore(cfg, logger)
	if err != nil {
		fatal(err)
	}
	defer store.DB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *demoFlag {
		project, err := seedDemo(ctx, store)
		if err != nil {
			fatal(err)
		}
		logger.Logf("[INFO] created demo project %q (id %d)", project.Name, project.ID)
	}

	if *reportFlag {
		if err := printReport(ctx, os.Stdout, store); err != nil {
			fatal(err)
		}
		return
	}

	view, _ := timeline.ParseViewType(cfg.DefaultView)

	if cfg.WebEnabled {
		server, err := web.NewServer(store,
			web.WithLogger(logger),
			web.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
			web.WithDefaults(view, cfg.ContainerWidth),
		)
		if err != nil {
			fatal(err)
		}
		httpServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.WebPort),
			Handler:           server.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		if *webOnlyFlag {
			logger.Logf("[INFO] web server running at http://localhost%s", httpServer.Addr)
			if err := serve(ctx, httpServer); err != nil {
				fatal(err)
			}
			return
		}

		go func() {
			logger.Logf("[INFO] web server running at http://localhost%s", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Logf("[ERROR] web server: %v", err)
			}
		}()
		defer httpServer.Close()
	}

	if err := tui.Run(store, tui.Options{View: view, CacheSize: cfg.ChartCacheSize}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serve runs the server until ctx is cancelled, then drains open requests.
func serve(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// setupLogger returns the application logger. The TUI owns the terminal, so
// in interactive mode debug output goes to a file next to the config.
func setupLogger(debug, console bool, dir string) (lgr.L, func(), error) {
	if !debug && !console {
		return lgr.NoOp, func() {}, nil
	}

	var opts []lgr.Option
	if debug {
		opts = append(opts, lgr.Debug, lgr.CallerFunc)
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	if !console {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
		file, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open debug log: %w", err)
		}
		out = file
		closeFn = func() { _ = file.Close() }
	}
	opts = append(opts, lgr.Out(out), lgr.Err(out))
	return lgr.New(opts...), closeFn, nil
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openStore(cfg config.Config, logger lgr.L) (*db.Store, error) {
	scope, err := depgraph.ParseScope(cfg.PredecessorScope)
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDir(cfg.DBPath); err != nil {
		return nil, err
	}

	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	planner := gantt.NewPlanner(
		gantt.WithLogger(logger),
		gantt.WithScope(scope),
		gantt.WithStrictCycles(cfg.StrictCycles),
	)
	return db.NewStore(sqlDB, planner, db.WithLogger(logger)), nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "lazygantt:", err)
	os.Exit(1)
}
