package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgesight-ai/forgesight/internal/audit"
	"github.com/forgesight-ai/forgesight/internal/auth"
	"github.com/forgesight-ai/forgesight/internal/config"
	"github.com/forgesight-ai/forgesight/internal/mockclassifier"
	"github.com/forgesight-ai/forgesight/internal/server"
	"github.com/forgesight-ai/forgesight/internal/telemetry"
)

const version = "0.1.0"

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "forgesight.yaml", "Path to Forgesight config file")
	withMock := flag.Bool("with-mock-classifier", false, "also start the built-in mock classifier")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}

	ctx := context.Background()

	if *withMock {
		shutdownMock, baseURL, err := mockclassifier.StartMockClassifier("")
		if err != nil {
			log.Fatalf("failed to start mock classifier: %v", err)
		}
		defer func() { _ = shutdownMock(context.Background()) }()
		log.Printf("mock classifier running at %s", baseURL)
	}

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  cfg.Telemetry.Service,
		Version:  version,
	})
	if err != nil {
		log.Fatalf("failed to init telemetry: %v", err)
	}
	defer tel.Shutdown(ctx)

	sinks, err := buildSinks(cfg)
	if err != nil {
		log.Fatalf("failed to build audit sinks: %v", err)
	}
	emitter := audit.NewEmitter(audit.EmitterConfig{
		QueueSize:       cfg.Audit.QueueSize,
		Workers:         cfg.Audit.Workers,
		ShutdownTimeout: time.Duration(cfg.Audit.ShutdownTimeout) * time.Second,
	}, sinks)

	var secret string
	if cfg.Auth.SharedSecretEnv != "" {
		secret = os.Getenv(cfg.Auth.SharedSecretEnv)
	}

	srv, err := server.New(cfg, server.Deps{
		Auth:      auth.New(secret),
		Emitter:   emitter,
		Telemetry: tel,
	})
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeoutSeconds) * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting Forgesight on %s...", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-stop:
		log.Printf("received %s, shutting down...", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}

	emitter.Close(context.Background())
}

func buildSinks(cfg *config.Config) ([]audit.Sink, error) {
	var sinks []audit.Sink
	for _, sc := range cfg.Audit.Sinks {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, audit.NewStdoutSink())
		case "file_jsonl":
			s, err := audit.NewFileSink(sc.Path)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		case "webhook":
			s, err := audit.NewWebhookSink(sc.URL, sc.Headers, 2*time.Second)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, audit.NewStdoutSink())
	}
	return sinks, nil
}
