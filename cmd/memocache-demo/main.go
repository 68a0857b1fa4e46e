// Command memocache-demo serves memoized HTTP endpoints backed by whatever
// backend the configuration selects.
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

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/memocache"
	"github.com/unkn0wn-root/memocache/config"
	"github.com/unkn0wn-root/memocache/genstore"
	"github.com/unkn0wn-root/memocache/gincache"
	asynchook "github.com/unkn0wn-root/memocache/hooks/async"
	"github.com/unkn0wn-root/memocache/hooks/prom"
	"github.com/unkn0wn-root/memocache/log/charm"
)

var (
	configFile string
	addr       string
	debug      bool

	rootCmd = &cobra.Command{
		Use:          "memocache-demo",
		Short:        "Serve memoized endpoints over HTTP",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         execute,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (yaml, toml or json)")
	rootCmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func execute(cmd *cobra.Command, _ []string) error {
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	b, err := config.Open(cfg, func(op, key string, err error) {
		log.Warn("backend failure", "op", op, "key", key, "err", err)
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	hooks := asynchook.New(prom.New("memocache", reg), 1, 1024)
	defer hooks.Close()

	gens, err := generations(cfg)
	if err != nil {
		return err
	}

	m := memocache.New(memocache.Options{
		Logger:      charm.Default(),
		Hooks:       hooks,
		Generations: gens,
	})
	m.Register(b, cfg.DefaultTTL)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.Close(ctx); err != nil {
			log.Error("close", "err", err)
		}
	}()

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	gincache.Routes(r, m)
	newDemo(m).routes(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "backend", cfg.Backend, "namespace", cfg.Namespace)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// generations follows the backend: shared in Redis when entries are shared.
func generations(cfg config.Config) (genstore.GenStore, error) {
	if cfg.Backend != config.Redis {
		return genstore.NewLocal(time.Hour, 30*24*time.Hour), nil
	}
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return genstore.NewRedis(goredis.NewClient(opts), cfg.Namespace, 0).OwnClient(), nil
}
