package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/apispectre/internal/api"
	"github.com/ppiankov/apispectre/internal/config"
)

var (
	serveAddr          string
	serveMaxFiles      int
	serveMaxTotalBytes int64
	serveRateLimit     int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scan engine over HTTP",
	Long: `Serve starts an HTTP server exposing the scan engine.

Endpoints:
  POST /api/scan        scan {"files":[{"path","content"}],"options":{...}}
  GET  /api/rules       list the rule catalog
  GET  /api/rules/{id}  describe one rule
  GET  /healthz         liveness and version

The server keeps no state between requests and stops on SIGINT or SIGTERM.

Example:
  apispectre serve
  apispectre serve --addr 127.0.0.1:9090 --rate-limit 120`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"listen address (default from config, "+config.DefaultServerAddr+")")
	serveCmd.Flags().IntVar(&serveMaxFiles, "max-files", 0,
		"maximum files per scan request (default from config)")
	serveCmd.Flags().Int64Var(&serveMaxTotalBytes, "max-total-bytes", 0,
		"maximum total content bytes per scan request (default from config)")
	serveCmd.Flags().IntVar(&serveRateLimit, "rate-limit", 0,
		"scan requests per client IP per minute (default from config)")
}

// serverOptions merges flags over the configured server section.
func serverOptions() (string, api.Options) {
	sc := cfg.Server
	if serveAddr != "" {
		sc.Addr = serveAddr
	}
	if serveMaxFiles > 0 {
		sc.MaxFiles = serveMaxFiles
	}
	if serveMaxTotalBytes > 0 {
		sc.MaxTotalBytes = serveMaxTotalBytes
	}
	if serveRateLimit > 0 {
		sc.RateLimit = serveRateLimit
	}
	if sc.Addr == "" {
		sc.Addr = config.DefaultServerAddr
	}

	return sc.Addr, api.Options{
		Logger: log().Named("api"),
		Limits: api.Limits{
			MaxFiles:      sc.MaxFiles,
			MaxTotalBytes: sc.MaxTotalBytes,
		},
		RateLimit: sc.RateLimit,
		Version:   buildVersion,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr, opts := serverOptions()
	logVerbose("Serving on %s (max %d files, %d bytes, %d req/min)",
		addr, opts.Limits.MaxFiles, opts.Limits.MaxTotalBytes, opts.RateLimit)

	return api.NewServer(opts).ListenAndServe(ctx, addr)
}
