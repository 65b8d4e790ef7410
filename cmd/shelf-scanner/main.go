package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/shelf-scanner/internal/camera"
	"github.com/zombor/shelf-scanner/internal/catalog"
	"github.com/zombor/shelf-scanner/internal/scanning"
	"github.com/zombor/shelf-scanner/internal/session"
	"github.com/zombor/shelf-scanner/internal/shopper"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type config struct {
	port            int
	cameraURL       string
	fetchTimeout    time.Duration
	cycleDelay      time.Duration
	shutdownTimeout time.Duration
	catalogPath     string
	catalogDB       string
	watchCatalog    bool
	frameDir        string
	symbologies     string
	robotURL        string
	authUser        string
	authPass        string
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("shelf-scanner")
	var (
		port            = fs.IntLong("port", 8080, "HTTP server port")
		cameraURL       = fs.StringLong("camera-url", "http://localhost:8081/snapshot", "Camera snapshot URL")
		fetchTimeout    = fs.DurationLong("fetch-timeout", camera.DefaultTimeout, "Timeout for one camera fetch")
		cycleDelay      = fs.DurationLong("cycle-delay", session.DefaultConfig().CycleDelay, "Delay between scan cycles")
		shutdownTimeout = fs.DurationLong("shutdown-timeout", 10*time.Second, "Grace period for in-flight work on shutdown")
		catalogPath     = fs.StringLong("catalog", "products.csv", "Product catalog CSV path")
		catalogDB       = fs.StringLong("catalog-db", "", "Import the catalog into this database file and read from it (optional)")
		watchCatalog    = fs.BoolLong("watch-catalog", "Cache catalog rows and reload when the file changes")
		frameDir        = fs.StringLong("frame-dir", "", "Directory to mirror the latest camera frame into (optional)")
		symbologies     = fs.StringLong("symbologies", "QR_CODE,EAN_13,CODE_128", "Comma separated symbologies to decode, in search order")
		robotURL        = fs.StringLong("robot-url", "", "Robot navigation bridge base URL (optional)")
		authUser        = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass        = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel        = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat       = fs.StringLong("log-format", "text", "Log format: 'text' or 'json'")
	)
	_ = fs.StringLong("config", "", "Config file path (optional)")
	showVersion := fs.BoolLong("version", "Show version information")

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SHELF_SCANNER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg := config{
		port:            *port,
		cameraURL:       *cameraURL,
		fetchTimeout:    *fetchTimeout,
		cycleDelay:      *cycleDelay,
		shutdownTimeout: *shutdownTimeout,
		catalogPath:     *catalogPath,
		catalogDB:       *catalogDB,
		watchCatalog:    *watchCatalog,
		frameDir:        *frameDir,
		symbologies:     *symbologies,
		robotURL:        *robotURL,
		authUser:        *authUser,
		authPass:        *authPass,
	}

	logger, err := newLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q, want 'text' or 'json'", format)
	}
}

func parseSymbologies(list string) ([]scanning.Symbology, error) {
	var symbologies []scanning.Symbology
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s, err := scanning.ParseSymbology(name)
		if err != nil {
			return nil, err
		}
		symbologies = append(symbologies, s)
	}
	return symbologies, nil
}

func run(ctx context.Context, cfg config) error {
	g, ctx := errgroup.WithContext(ctx)

	// Initialize catalog
	slog.Info("Initializing catalog...", "path", cfg.catalogPath)
	var source catalog.Source
	csvFile := catalog.NewCSVFile(cfg.catalogPath)
	switch {
	case cfg.catalogDB != "":
		rows, err := csvFile.Rows(ctx)
		if err != nil {
			return fmt.Errorf("reading catalog: %w", err)
		}
		db, err := catalog.NewBoltSource(cfg.catalogDB)
		if err != nil {
			return fmt.Errorf("opening catalog database: %w", err)
		}
		defer db.Close()
		if err := db.Replace(rows); err != nil {
			return fmt.Errorf("importing catalog: %w", err)
		}
		slog.Info("Imported catalog", "rows", len(rows), "db", cfg.catalogDB)
		source = db
	case cfg.watchCatalog:
		watched, err := catalog.NewWatchedSource(cfg.catalogPath)
		if err != nil {
			return fmt.Errorf("watching catalog: %w", err)
		}
		defer watched.Close()
		g.Go(func() error {
			return watched.Run(ctx)
		})
		source = watched
	default:
		source = csvFile
	}
	products := catalog.New(source)

	records, malformed, err := products.List(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	for _, e := range malformed {
		slog.Warn("Malformed catalog record", "error", e)
	}
	slog.Info("Catalog ready", "products", len(records), "malformed", len(malformed))

	// Initialize camera
	cam, err := camera.NewClient(cfg.cameraURL, cfg.fetchTimeout)
	if err != nil {
		return fmt.Errorf("initializing camera: %w", err)
	}

	var mirror camera.Storage
	if cfg.frameDir != "" {
		store, err := camera.NewLocalStorage(cfg.frameDir)
		if err != nil {
			return fmt.Errorf("initializing frame mirror: %w", err)
		}
		mirror = store
	}
	frames := camera.NewFrameCache(mirror)

	symbologies, err := parseSymbologies(cfg.symbologies)
	if err != nil {
		return err
	}
	decoder, err := scanning.NewZXing(symbologies...)
	if err != nil {
		return fmt.Errorf("initializing decoder: %w", err)
	}

	// Initialize scan session
	scanCfg := session.DefaultConfig()
	scanCfg.CycleDelay = cfg.cycleDelay
	scanCfg.BackoffDelay = 0
	scan := session.New()
	worker := session.NewWorker(scan, cam, frames, decoder, scanCfg)
	orchestrator := session.NewOrchestrator(scan, worker)

	var navigator shopper.Navigator
	if cfg.robotURL != "" {
		nav, err := shopper.NewHTTPNavigator(cfg.robotURL)
		if err != nil {
			return fmt.Errorf("initializing robot bridge: %w", err)
		}
		navigator = nav
		slog.Info("Robot navigation enabled", "url", cfg.robotURL)
	}

	service := shopper.NewService(orchestrator, products, decoder, frames, navigator)
	server := shopper.NewServer(service, shopper.BasicAuth{
		Username: cfg.authUser,
		Password: cfg.authPass,
	})

	addr := net.JoinHostPort("", strconv.Itoa(cfg.port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "camera", cam.URL(), "version", version)
		if cfg.authUser != "" || cfg.authPass != "" {
			slog.Info("Basic auth enabled", "user", cfg.authUser)
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down server: %w", err))
		}
		if err := orchestrator.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stopping scan worker: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
