// Command ceprd serves CEP lookups on a Unix socket for the cepr CLI
// and any other local client.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lc/cepr/internal/buildinfo"
	"github.com/lc/cepr/internal/config"
	"github.com/lc/cepr/internal/log"
	"github.com/lc/cepr/pkg/api"
	"github.com/lc/cepr/pkg/lookup"
)

func main() {
	cfgPath := flag.String("config", "", "config file (default ~/.cepr/config.yaml)")
	flag.Parse()
	defer log.Sync()

	cfg, err := config.New(*cfgPath).Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	resolver, err := lookup.New(lookup.FromConfig(cfg, log.Named("cep").Desugar())...)
	if err != nil {
		log.Fatalf("building resolver: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	apiSrv := api.New(resolver, api.WithLogger(log.Named("api")))

	errc := make(chan error, 1)
	go func() {
		errc <- apiSrv.ListenAndServe(cfg.Socket.Path)
	}()
	log.Info("ceprd started",
		"socket", cfg.Socket.Path,
		"version", buildinfo.Version,
		"providers", resolver.Sources(),
		"custom_dns", len(cfg.DNS.Resolvers) > 0,
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		if err != nil {
			log.Fatalf("api listen: %v", err)
		}
		return
	case s := <-sig:
		log.Info("shutting down", "signal", s.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiSrv.Shutdown(ctx); err != nil {
		log.Errorf("api shutdown error: %v", err)
	}
}
