// ABOUTME: Entry point for the voicelink relay server
// ABOUTME: Parses CLI flags and bridges relay clients to the configured backend
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/voicelink/voicelink-go/internal/app"
	"github.com/voicelink/voicelink-go/internal/config"
	"github.com/voicelink/voicelink-go/internal/metrics"
	"github.com/voicelink/voicelink-go/internal/version"
)

var (
	configPath string
	port       int
	name       string
	backend    string
	logFile    string
	noMDNS     bool
	noMetrics  bool
)

var rootCmd = &cobra.Command{
	Use:   "voicelink-relay",
	Short: "WebSocket relay between voicelink clients and a conversational backend",
	Long: `Accepts voicelink clients over WebSocket, advertises itself over mDNS
and bridges every client to its own backend session.

Backends:
  gemini    - Gemini Live API (needs GEMINI_API_KEY or gemini.api_key)
  loopback  - local echo peer`,
	SilenceUsage: true,
	RunE:         runRelay,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")
	f.IntVar(&port, "port", 0, "WebSocket server port")
	f.StringVar(&name, "name", "", "Server friendly name (default: hostname-voicelink-relay)")
	f.StringVar(&backend, "backend", "", "Backend: gemini or loopback")
	f.StringVar(&logFile, "log-file", "voicelink-relay.log", "Log file path")
	f.BoolVar(&noMDNS, "no-mdns", false, "Disable mDNS advertisement")
	f.BoolVar(&noMetrics, "no-metrics", false, "Disable the /metrics endpoint")
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Relay.Port = port
	}
	if f.Changed("backend") {
		cfg.Transport.Kind = backend
	}
	if cfg.Transport.Kind == config.TransportRelay {
		// A relay cannot bridge to another relay
		cfg.Transport.Kind = config.TransportLoopback
	}
	if noMDNS {
		cfg.Relay.EnableMDNS = false
	}
	if noMetrics {
		cfg.Relay.EnableMetrics = false
	}
	if name != "" {
		cfg.Relay.Name = name
	} else if !f.Changed("config") {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		cfg.Relay.Name = fmt.Sprintf("%s-voicelink-relay", hostname)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	lf, err := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	defer lf.Close()

	log.SetOutput(io.MultiWriter(os.Stdout, lf))

	log.Printf("Starting %s relay: %s on port %d (backend %s)",
		version.String(), cfg.Relay.Name, cfg.Relay.Port, cfg.Transport.Kind)
	log.Printf("Logging to: %s", logFile)
	log.Printf("Press Ctrl-C to stop")

	srv, err := app.NewRelay(cfg, metrics.Default, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Printf("Relay stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
