package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goferret/internal/stub"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		addr        string
		fixturePath string
		verbose     bool
	)
	flag.StringVar(&addr, "addr", envOr("ADDR", ":3030"), "Listen address")
	flag.StringVar(&fixturePath, "fixture", os.Getenv("FIXTURE"), "Path to a YAML or JSON fixture (built-in set when empty)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	var fixture *stub.Fixture
	if strings.TrimSpace(fixturePath) != "" {
		f, err := stub.LoadFixture(fixturePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", fixturePath).Msg("load fixture")
		}
		fixture = f
	}

	srv := &http.Server{Addr: addr, Handler: stub.New(fixture), ReadHeaderTimeout: 5 * time.Second}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Str("fixture", fixturePath).Msg("ferret stub listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("serve")
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
