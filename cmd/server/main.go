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

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"sehlabs.com/history/internal/config"
	"sehlabs.com/history/internal/logging"
	"sehlabs.com/history/internal/store"
)

func fatal(code int, m string) {
	fmt.Fprintln(os.Stderr, m)
	os.Exit(code)
}

func fatalf(code int, format string, a ...interface{}) {
	w := os.Stderr
	if _, err := fmt.Fprintf(w, format, a...); err == nil {
		fmt.Fprintln(w)
	}
	os.Exit(code)
}

var (
	configFile         string
	serverAddress      net.IP
	serverPort         string
	tlsCertificateFile string
	tlsPrivateKeyFile  string
	logLevel           string
	logDevelopment     bool
)

func init() {
	flag.StringVar(&configFile, "config", "",
		`YAML file from which to read settings; flags given explicitly take precedence`)
	flag.IPVar(&serverAddress, "server-address", nil,
		`IP address on which to serve HTTP requests`)
	flag.StringVar(&serverPort, "server-port", "",
		`Port on which to serve HTTP requests`)
	flag.StringVar(&tlsCertificateFile, "tls-cert-file", "",
		`File containing the X.509 certificates with which to serve HTTPS,
containing certificates for this server, any intermediate CAs, and the CA`)
	flag.StringVar(&tlsPrivateKeyFile, "tls-private-key-file", "",
		`File containing the X.509 private key for the first X.509 certificate
in --tls-cert-file`)
	flag.StringVar(&logLevel, "log-level", "info",
		`Minimum level of log entries to emit: debug, info, warn, or error`)
	flag.BoolVar(&logDevelopment, "log-development", false,
		`Emit human-readable log entries rather than JSON`)
}

// loadConfig reads the configuration file, if any, and overlays the flags set on the command line.
func loadConfig(flags *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if len(configFile) > 0 {
		var err error
		if cfg, err = config.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server-address":
			cfg.Server.Address = serverAddress.String()
		case "server-port":
			cfg.Server.Port = serverPort
		case "tls-cert-file":
			cfg.Server.TLSCertificateFile = tlsCertificateFile
		case "tls-private-key-file":
			cfg.Server.TLSPrivateKeyFile = tlsPrivateKeyFile
		case "log-level":
			cfg.Log.Level = logLevel
		case "log-development":
			cfg.Log.Development = logDevelopment
		}
	})
	return cfg, cfg.Validate()
}

func runHTTPServer(cfg *config.Config, handler http.Handler, logger *zap.Logger, stop <-chan struct{}) error {
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Address, cfg.ListenPort()),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(logger),
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shut down HTTP server", zap.Error(err))
		}
	}()
	logger.Info("Serving entity histories",
		zap.String("address", server.Addr),
		zap.Bool("tls", cfg.UsesTLS()))
	var err error
	if cfg.UsesTLS() {
		err = server.ListenAndServeTLS(cfg.Server.TLSCertificateFile, cfg.Server.TLSPrivateKeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != http.ErrServerClosed {
		return err
	}
	wg.Wait()
	return nil
}

func main() {
	flag.Parse()

	cfg, err := loadConfig(flag.CommandLine)
	if err != nil {
		fatalf(2, "Invalid configuration: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fatal(2, err.Error())
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// TODO(seh): Load an initial set of entity histories from a file named on the command line.
	db, err := store.MakeShardedStore(
		store.WithInitialHistoryMapCapacity(cfg.Store.InitialHistoryMapCapacity),
		store.WithLogger(logger.Named("store")))
	if err != nil {
		fatalf(1, "Failed to create history store: %v", err)
	}
	handler := makeHandler(db, logger.Named("http"))
	if err := runHTTPServer(cfg, handler, logger, ctx.Done()); err != nil {
		logger.Error("HTTP server failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}
