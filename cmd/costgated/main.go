// Command costgated runs the cost-aware LLM gateway: a reverse proxy that
// routes OpenAI-style chat-completion requests across configured upstream
// providers by model support, request/token budget admission, and cost, in
// that order. Wiring mirrors cmd/agentflow/main.go and server.go — separate
// listeners for the API surface and the Prometheus scrape endpoint, a
// config file watched for hot reload, and graceful shutdown on
// SIGINT/SIGTERM via internal/server.Manager.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/BaSui01/agentflow/gateway"
	"github.com/BaSui01/agentflow/gateway/configsource"
	"github.com/BaSui01/agentflow/gateway/pricing"
	internalconfig "github.com/BaSui01/agentflow/internal/config"
	"github.com/BaSui01/agentflow/internal/obs"
	"github.com/BaSui01/agentflow/internal/server"
	"go.uber.org/zap"
)

var (
	// Version, BuildTime, and GitCommit are injected at build time via
	// -ldflags, matching cmd/agentflow/main.go's convention.
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to bootstrap config YAML (optional; env and defaults still apply)")
	flag.Parse()

	boot, err := internalconfig.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "costgated: load config: %v\n", err)
		os.Exit(1)
	}

	logger := obs.NewLogger(obs.LogConfig{Level: boot.LogLevel, Format: boot.LogFormat})
	defer logger.Sync()

	logger.Info("starting costgated",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	catalog := pricing.New()
	if boot.PriceCatalogURL != "" {
		if err := loadPriceCatalog(catalog, boot.PriceCatalogURL); err != nil {
			logger.Warn("failed to load remote price catalog, continuing with an empty catalog",
				zap.String("url", boot.PriceCatalogURL), zap.Error(err))
		}
	}

	cfgSource, err := configsource.NewFileSource(boot.ProvidersPath, logger)
	if err != nil {
		logger.Fatal("failed to load provider config", zap.String("path", boot.ProvidersPath), zap.Error(err))
	}
	defer cfgSource.Close()

	engine := gateway.New(cfgSource, catalog, logger)
	defer engine.Close()

	collector := obs.NewCollector(boot.MetricsNamespace)

	chatManager := server.NewManager(gateway.NewChatMux(engine, logger), server.Config{
		Addr:            boot.ListenAddr,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    0, // streaming responses can run far longer than a fixed write deadline
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: boot.ShutdownTimeout,
	}, logger)
	if err := chatManager.Start(); err != nil {
		logger.Fatal("failed to start chat server", zap.Error(err))
	}

	metricsManager := server.NewManager(gateway.NewMetricsMux(collector), server.Config{
		Addr:            metricsAddr(boot.ListenAddr),
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: boot.ShutdownTimeout,
	}, logger)
	if err := metricsManager.Start(); err != nil {
		logger.Fatal("failed to start metrics server", zap.Error(err))
	}

	logger.Info("costgated ready",
		zap.String("listen_addr", boot.ListenAddr),
		zap.String("metrics_addr", metricsAddr(boot.ListenAddr)),
	)

	chatManager.WaitForShutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), boot.ShutdownTimeout)
	defer cancel()
	if err := metricsManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", zap.Error(err))
	}
}

// metricsAddr derives a metrics listen address one port above the chat
// listener's, so ":8080" becomes ":8081" without requiring a separate
// config field for the common case. Falls back to ":9090" if listenAddr
// does not carry a numeric port.
func metricsAddr(listenAddr string) string {
	host, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return ":9090"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return ":9090"
	}
	return net.JoinHostPort(host, strconv.Itoa(port+1))
}

// loadPriceCatalog fetches the price feed over HTTP and loads it into
// catalog. The feed format and its refresh schedule are out of scope here;
// this is a best-effort one-shot load at startup, bounded by a 10s timeout.
func loadPriceCatalog(catalog *pricing.Catalog, url string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("fetch price catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch price catalog: unexpected status %d", resp.StatusCode)
	}
	return catalog.Load(resp.Body)
}
