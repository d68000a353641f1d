// Command dotverify checks logged DoT tick damage against the fixed-point
// tick formula and reports values the formula cannot produce or never produced.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MJE43/dot-verify-go/internal/api"
	"github.com/MJE43/dot-verify-go/internal/config"
	"github.com/MJE43/dot-verify-go/internal/report"
	"github.com/MJE43/dot-verify-go/internal/sample"
	"github.com/MJE43/dot-verify-go/internal/scenario"
	"github.com/MJE43/dot-verify-go/internal/store"
	"github.com/MJE43/dot-verify-go/internal/verify"
)

func main() {
	cfg, err := config.ParseConfigFromArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("dotverify: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		stop()
		config.Exitf("dotverify: %v", err)
	}
}

// run resolves configuration, then either serves the API or verifies once.
// Findings never produce an error; only unusable input does.
func run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ScenarioFile != "" {
		if _, err := scenario.LoadFile(cfg.ScenarioFile); err != nil {
			return err
		}
	}

	var db store.DB
	if cfg.DBPath != "" {
		sqlite, err := store.NewSQLiteDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		if err := sqlite.Migrate(); err != nil {
			return err
		}
		db = sqlite
	}

	if cfg.Serve {
		return serve(ctx, cfg, db)
	}
	return verifyOnce(ctx, cfg, db, stdout, stderr)
}

func verifyOnce(ctx context.Context, cfg config.Config, db store.DB, stdout, stderr io.Writer) error {
	sc, err := scenario.Get(cfg.Scenario)
	if err != nil {
		return err
	}

	path := cfg.Samples
	if path == "" {
		path = sc.SamplesPath
	}
	if path == "" {
		return fmt.Errorf("scenario %s has no samples file; pass -samples", sc.ID)
	}
	samples, err := sample.Load(path)
	if err != nil {
		return err
	}

	buff, err := sc.Buff(cfg.ScriptTimeout)
	if err != nil {
		return err
	}

	var logger *log.Logger
	if cfg.Verbose {
		logger = log.New(stderr, "[VERIFY] ", log.LstdFlags)
	}

	rep, err := verify.NewVerifier(logger).Verify(ctx, verify.Request{
		Scenario: sc.ID,
		Mode:     string(sc.Mode),
		Check:    verify.Check(cfg.Check),
		Snapshot: sc.Snapshot,
		Stat:     sc.Stat,
		Buff:     buff,
		Samples:  samples,
	})
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	if err := report.Render(format, stdout, stderr, rep); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if db != nil {
		saved, err := store.SaveReport(db, rep)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "saved run %s\n", saved.ID)
	}
	return nil
}

func serve(ctx context.Context, cfg config.Config, db store.DB) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(db, cfg.ScriptTimeout).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("dotverify listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
