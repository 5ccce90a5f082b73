//	@title			dropbin API
//	@version		1.0
//	@description	Single-file upload service backed by object storage.
//
//	@host		localhost:8080
//	@BasePath	/api

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/dropbin/service/internal/config"
	"github.com/dropbin/service/internal/logger"
	"github.com/dropbin/service/internal/storage"
	"github.com/dropbin/service/internal/upload"
)

// exitCode is a process termination code.
type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1
)

// Shutdown timeout for the http server.
const shutdownTimeout = 30 * time.Second

// version is set from the git tag at build time.
var version = ""

func main() {
	os.Exit(int(gracefulMain()))
}

// gracefulMain returns an exit code instead of calling os.Exit so deferred
// cleanup runs.
func gracefulMain() exitCode {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "path to the YAML config file")
	v := fs.Bool("v", false, "show version")

	bootLogger := logger.New(os.Stderr, "info", true)

	err := fs.Parse(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return exitSuccess
	}
	if err != nil {
		level.Error(bootLogger).Log("msg", "parsing cli flags failed", "err", err)
		return exitFailure
	}

	if *v {
		if version == "" {
			fmt.Println("version not set")
		} else {
			fmt.Println(version)
		}
		return exitSuccess
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		level.Error(bootLogger).Log("msg", "cannot load config", "err", err)
		return exitFailure
	}
	if err := cfg.Validate(); err != nil {
		level.Error(bootLogger).Log("msg", "config validation failed", "err", err)
		return exitFailure
	}

	var l log.Logger
	{
		l = logger.New(os.Stderr, cfg.LogLevel, cfg.IsProduction())
		l = log.With(l, "service", "dropbin", "env", cfg.AppEnv)
	}

	defer monitorPanic(l)
	ctx := context.Background()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		level.Error(l).Log("msg", "object storage init failed", "driver", cfg.Storage.Driver, "err", err)
		return exitFailure
	}

	keyFunc, err := upload.KeyFuncFor(cfg.Upload.KeyStrategy)
	if err != nil {
		level.Error(l).Log("msg", "invalid key strategy", "err", err)
		return exitFailure
	}

	// Wire dependencies: storage → service → handler
	uploadSvc := upload.NewService(store, cfg.Upload.MaxBytes, keyFunc, l)
	uploadHandler := upload.NewHandler(uploadSvc, l)

	var objects http.Handler
	if mem, ok := store.(*storage.MemoryStorage); ok {
		objects = mem
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(uploadHandler, objects, cfg.CORSAllowedOrigins, l),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-sig:
			level.Info(l).Log("msg", "signal received, terminating", "signal", s)
			return &signalError{sig: s}
		}
	})

	group.Go(func() error {
		level.Info(l).Log(
			"msg", "server listening",
			"addr", srv.Addr,
			"storage", cfg.Storage.Driver,
			"bucket", cfg.Storage.Bucket,
			"max_upload", humanize.IBytes(uint64(cfg.Upload.MaxBytes)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		level.Info(l).Log("msg", "shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		return ctx.Err()
	})

	if err := group.Wait(); err != nil && !isSignalStop(err) {
		level.Error(l).Log("msg", "server stopped with error", "err", err)
		return exitFailure
	}

	level.Info(l).Log("msg", "server stopped")
	return exitSuccess
}

// signalError ends the actor group when the process is asked to stop.
type signalError struct {
	sig os.Signal
}

func (e *signalError) Error() string {
	return "signal received: " + e.sig.String()
}

// isSignalStop reports whether err only reflects an orderly shutdown.
func isSignalStop(err error) bool {
	var sigErr *signalError
	return errors.As(err, &sigErr)
}

// monitorPanic logs a panic with its stack before re-raising it.
func monitorPanic(l log.Logger) {
	if rec := recover(); rec != nil {
		err := fmt.Sprintf("panic: %v \n stack trace: %s", rec, debug.Stack())
		level.Error(l).Log("err", err)
		panic(err)
	}
}
