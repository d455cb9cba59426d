package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/goferret/internal/app"
	"github.com/hyperifyio/goferret/internal/console"
	"github.com/hyperifyio/goferret/internal/export"
	"github.com/hyperifyio/goferret/internal/input"
	"github.com/hyperifyio/goferret/internal/page"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		cfg         app.Config
		configPath  string
		envPath     string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", os.Getenv("GOFERRET_CONFIG"), "Path to a YAML or JSON config file")
	flag.StringVar(&envPath, "env", ".env", "Dotenv file to load before reading the environment")
	flag.StringVar(&cfg.ServerURL, "server.url", "", "Ferret backend base URL (default: derived from -page.url, else http://localhost:3030)")
	flag.StringVar(&cfg.PageURL, "page.url", "", "URL the page was served from; its origin becomes the backend URL")
	flag.StringVar(&cfg.Format, "format", "", "Response format: jsonp or json")
	flag.StringVar(&cfg.Callback, "callback", "", "JSONP callback name")
	flag.DurationVar(&cfg.SearchTimeout, "timeout", 0, "Search timeout hint sent to the backend (default 5000ms)")
	flag.IntVar(&cfg.Page, "page", 0, "Result page to request from every provider")
	flag.IntVar(&cfg.MaxConcurrent, "max.concurrent", 0, "Maximum concurrent backend requests (0 = unlimited)")
	flag.StringVar(&cfg.UserAgent, "ua", "", "Custom User-Agent for backend requests")
	flag.IntVar(&cfg.MinKeywordLength, "min.length", 0, "Typed keywords must be longer than this (default 2)")
	flag.DurationVar(&cfg.KeyWindow, "window", 0, "Quiet period before a typed keyword is searched (default 1s)")
	flag.StringVar(&cfg.CacheDir, "cache.dir", "", "Cache directory path (empty disables caching)")
	flag.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	flag.BoolVar(&cfg.CacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.BoolVar(&cfg.CacheOnly, "cache.only", false, "Serve only from the cache, never the network")
	flag.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	flag.StringVar(&cfg.OutputPath, "output", "", "Write the page HTML here after every update")
	flag.StringVar(&cfg.OutputPDFPath, "output.pdf", "", "Write the last search's results as PDF here on exit")
	flag.StringVar(&cfg.TemplatePath, "template", "", "Custom page template (HTML)")
	flag.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored terminal output")
	flag.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("goferret %s (%s)\n", app.BuildVersion, app.BuildCommit)
		return
	}

	if err := app.LoadEnvFiles(envPath); err != nil {
		log.Warn().Err(err).Str("path", envPath).Msg("dotenv load failed")
	}
	// Precedence: flags > env > config file > defaults
	app.ApplyEnvToConfig(&cfg)
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("load config")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	cfg.ApplyDefaults()
	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, cfg, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("run failed")
	}
	os.Exit(exitCode(err))
}

// exitCode maps run errors: 2 when the app never got past bootstrap, 1 for
// anything else, 0 on success or interrupt.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	case errors.Is(err, app.ErrNoProviders), errors.Is(err, app.ErrBootstrap):
		return 2
	default:
		return 1
	}
}

func run(ctx context.Context, cfg app.Config, stdin io.Reader, stdout io.Writer) error {
	doc, err := loadDocument(cfg.TemplatePath)
	if err != nil {
		return err
	}
	term := console.New(stdout, cfg.NoColor || !isTerminal(stdout))
	rec := &export.Recorder{}
	ui := app.Fanout{doc, term, rec}

	var opts []app.Option
	if cfg.OutputPath != "" {
		warned := false
		opts = append(opts, app.WithAfterRender(func() {
			err := writeHTML(doc, cfg.OutputPath)
			if err == nil || warned {
				return
			}
			warned = true
			log.Warn().Err(err).Str("path", cfg.OutputPath).Msg("write page failed")
			ui.Warning(fmt.Sprintf("Could not write %s: %v", cfg.OutputPath, err))
		}))
	}
	a, err := app.New(cfg, ui, opts...)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := scanLines(ctx, stdin)
	events := make(chan input.Event)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return translate(gctx, lines, doc, events)
	})
	g.Go(func() error {
		defer cancel()
		return a.Run(gctx, events)
	})
	runErr := g.Wait()

	if cfg.OutputPDFPath != "" {
		if err := rec.WritePDF(cfg.OutputPDFPath); err != nil {
			log.Warn().Err(err).Str("path", cfg.OutputPDFPath).Msg("write pdf failed")
			if runErr == nil {
				runErr = fmt.Errorf("write pdf: %w", err)
			}
		} else {
			log.Info().Str("path", cfg.OutputPDFPath).Msg("wrote pdf")
		}
	}
	return runErr
}

func loadDocument(path string) (*page.Document, error) {
	if strings.TrimSpace(path) == "" {
		return page.New(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer f.Close()
	return page.Parse(f)
}

func writeHTML(doc *page.Document, path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := doc.WriteTo(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// scanLines reads r on its own goroutine. The goroutine cannot be stopped
// while blocked in Read; it ends at EOF, when ctx is done, or with the process.
func scanLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			log.Warn().Err(err).Msg("read stdin")
		}
	}()
	return out
}

// translate turns stdin lines into input events until lines ends or ctx is
// done. The input value lives in the page document.
func translate(ctx context.Context, lines <-chan string, doc *page.Document, events chan<- input.Event) error {
	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}
		value, ev := lineEvent(line, doc.InputValue())
		doc.SetInputValue(value)
		select {
		case <-ctx.Done():
			return nil
		case events <- ev:
		}
	}
}

// lineEvent maps one stdin line to the event a browser would fire:
// "!" clicks the search button, "!text" types text and clicks, and anything
// else is typed and confirmed with Enter.
func lineEvent(line, current string) (string, input.Event) {
	line = strings.TrimRight(line, "\r")
	if rest, ok := strings.CutPrefix(line, "!"); ok {
		value := current
		if rest != "" {
			value = rest
		}
		return value, input.Event{Source: input.Click, Value: value}
	}
	return line, input.Event{Source: input.Key, Key: input.KeyEnter, Value: line}
}
