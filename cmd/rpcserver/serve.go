package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synnergy-rpc/synnergy-rpc/internal/config"
	"github.com/synnergy-rpc/synnergy-rpc/internal/httprpc"
	"github.com/synnergy-rpc/synnergy-rpc/internal/httprpc/jsonrpc"
	"github.com/synnergy-rpc/synnergy-rpc/internal/httprpc/xmlrpc"
	applog "github.com/synnergy-rpc/synnergy-rpc/internal/log"
	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/reactor"
	"github.com/synnergy-rpc/synnergy-rpc/internal/rpc/registry"
)

var serveEnv string

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveEnv)
	if err != nil {
		cfg, err = config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	log := applog.New("rpcserver", cfg.Logging)
	reg := buildRegistry()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var reactors []*reactor.Reactor
	var servers []*http.Server

	for _, lc := range cfg.Listeners {
		lc := lc
		addr := net.JoinHostPort(lc.IP, fmt.Sprintf("%d", lc.Port))

		switch lc.Protocol {
		case "", "binary":
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			re := reactor.New(reg, log.WithField("listener", addr), reactor.Config{
				MinWorkers:    cfg.Pool.MinThreads,
				MaxWorkers:    cfg.Pool.MaxThreads,
				QueueCapacity: cfg.Pool.QueueCapacity,
				IdleWorkerTTL: cfg.Pool.IdleTimeout,
				KeepAlive:     cfg.Pool.KeepAliveTimeout,
			})
			mu.Lock()
			reactors = append(reactors, re)
			mu.Unlock()
			wg.Add(1)
			go func() {
				defer wg.Done()
				log.WithField("addr", addr).Info("binary rpc listener started")
				if err := re.Serve(ln); err != nil {
					log.WithError(err).Error("binary rpc listener stopped")
				}
			}()

		case "xmlrpc", "jsonrpc":
			srv := newHTTPServer(addr, lc.Protocol, reg, log.WithField("listener", addr))
			mu.Lock()
			servers = append(servers, srv)
			mu.Unlock()
			wg.Add(1)
			go func() {
				defer wg.Done()
				log.WithField("addr", addr).Infof("%s http listener started", lc.Protocol)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.WithError(err).Error("http listener stopped")
				}
			}()

		default:
			return fmt.Errorf("unknown listener protocol %q", lc.Protocol)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, re := range reactors {
		if err := re.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("reactor shutdown error")
		}
	}
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http server shutdown error")
		}
	}
	wg.Wait()
	return nil
}

// newHTTPServer builds the chi-routed http.Server for the XML-RPC or
// JSON-RPC adapter, plus the shared /healthz endpoint (§4.6).
func newHTTPServer(addr, protocol string, reg *registry.Registry, log *logrus.Entry) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(httprpc.Logger(log))

	var handler http.Handler
	if protocol == "jsonrpc" {
		handler = jsonrpc.Handler(reg, log)
	} else {
		handler = xmlrpc.Handler(reg, log)
	}

	r.Method(http.MethodPost, "/", httprpc.RequirePost(httprpc.LimitBody(handler)))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &http.Server{Addr: addr, Handler: r}
}

// RegisterServe installs the "serve" subcommand on root.
func RegisterServe(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the RPC listeners configured in config/",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&serveEnv, "env", "", "environment overlay (merges config/<env>.yaml)")
	root.AddCommand(cmd)
}
