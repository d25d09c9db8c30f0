package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gwillem/armctl/internal/log"
	"github.com/gwillem/armctl/pkg/api"
	"github.com/gwillem/armctl/pkg/rig"
)

type ServeCommand struct {
	Listen string `short:"l" long:"listen" description:"Listen address (default: services.listen from the config)"`
}

func (c *ServeCommand) Execute(args []string) error {
	log.Init(opts.LogLevel)
	logger := log.With("cmd", "serve")
	cfg := loadConfig()

	listen := cfg.Services.Listen
	if c.Listen != "" {
		listen = c.Listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := rig.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open arms: %v\n", err)
		os.Exit(1)
	}
	defer r.Close()

	go func() {
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("feedback stopped", "err", err)
		}
	}()

	var limbs []api.Limb
	for _, l := range r.Limbs() {
		seq := l.Sequencer
		limbs = append(limbs, api.Limb{
			Limb:      seq.Limb(),
			Role:      seq.Role(),
			Behaviors: seq,
			Poses:     l.Poses,
			Proximity: l.Proximity,
		})
		logger.Info("limb ready", "limb", seq.Limb(), "role", seq.Role())
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              listen,
		Handler:           api.NewServer(logger, limbs...).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
