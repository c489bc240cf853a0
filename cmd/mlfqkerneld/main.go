// Command mlfqkerneld boots the MLFQ scheduler, starts its admin HTTP
// surface, and launches a demo workload fleet. Wiring style — zap
// construction, gin setup order, http.Server timeouts — follows the
// teacher's cmd/zmux-server/main.go.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/haldane/mlfqkernel/internal/config"
	"github.com/haldane/mlfqkernel/internal/httpapi"
	"github.com/haldane/mlfqkernel/internal/kernel"
	"github.com/haldane/mlfqkernel/internal/telemetry"
	"github.com/haldane/mlfqkernel/pkg/workload"
)

func main() {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	log := zap.Must(logConfig.Build())
	defer log.Sync()
	log = log.Named("main")

	cfg := config.Load()

	var events kernel.EventSink
	if cfg.RedisAddr != "" {
		sink := telemetry.NewRedisSink(cfg.RedisAddr, cfg.RedisDB, "mlfqkernel:events", log)
		defer sink.Close()
		events = sink
	}

	k := kernel.New(log, cfg.Kernel, events)

	init := k.Userinit("init", func(k *kernel.Kernel, p *kernel.Process) {
		err := workload.RunFleet(k, p, map[string]kernel.Body{
			"cpu-io-mix":   workload.CPUIntensive(log, 20000),
			"io-bound":     workload.IOIntensive(log, 5, 15*time.Millisecond),
			"mixed":        workload.MixedProcess(log, 4, 5000, 10*time.Millisecond),
			"aging":        workload.AgingScenario(log, 5, 2),
			"priority-inv": workload.PriorityInversionScenario(log, 30000),
			"fork-bomb":    workload.ForkBombSimple(log, 3, 2),
		})
		if err != nil {
			log.Warn("demo fleet exited with error", zap.Error(err))
		}
	})
	_ = init

	k.Boot()

	sessionSecret := []byte(envOr("MLFQ_SESSION_SECRET", "dev-secret-change-me"))
	router := httpapi.New(k, httpapi.Options{
		Env:           cfg.Env,
		SessionSecret: sessionSecret,
		AdminUsername: envOr("MLFQ_ADMIN_USER", "admin"),
		AdminPassword: envOr("MLFQ_ADMIN_PASS", "admin"),
	}, log)

	httpserver := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 15,
		ErrorLog:       zap.NewStdLog(log.Named("http").WithOptions(zap.AddCallerSkip(1))),
	}

	go func() {
		log.Info("running HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := httpserver.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	k.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpserver.Shutdown(ctx)
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
