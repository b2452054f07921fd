// ABOUTME: Entry point for the voicelink voice client
// ABOUTME: Parses CLI flags and starts the client application
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voicelink/voicelink-go/internal/app"
	"github.com/voicelink/voicelink-go/internal/config"
	"github.com/voicelink/voicelink-go/internal/metrics"
	"github.com/voicelink/voicelink-go/internal/version"
)

var (
	configPath string
	transport  string
	relayAddr  string
	name       string
	inputKind  string
	toneHz     float64
	logFile    string
	noTUI      bool
)

var rootCmd = &cobra.Command{
	Use:   "voicelink",
	Short: "Real-time voice conversation client",
	Long: `Streams microphone audio to a conversational peer and plays its
spoken replies as they arrive.

Transports:
  gemini    - Gemini Live API (needs GEMINI_API_KEY or gemini.api_key)
  relay     - voicelink relay server (mDNS discovery when --relay is empty)
  loopback  - local echo peer, no network`,
	SilenceUsage: true,
	RunE:         runClient,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")
	f.StringVarP(&transport, "transport", "t", "", "Transport: gemini, relay or loopback")
	f.StringVar(&relayAddr, "relay", "", "Relay server address (skip mDNS)")
	f.StringVar(&name, "name", "", "Client friendly name (default: hostname-Voicelink)")
	f.StringVar(&inputKind, "input", "", "Input backend: malgo or tone")
	f.Float64Var(&toneHz, "tone-hz", 0, "Test tone frequency for the tone input")
	f.StringVar(&logFile, "log-file", "", "Log file path")
	f.BoolVar(&noTUI, "no-tui", false, "Disable TUI, use streaming logs instead")

	rootCmd.AddCommand(versionCmd)
}

// applyFlags layers explicitly set flags over the loaded configuration
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("transport") {
		cfg.Transport.Kind = transport
	}
	if f.Changed("relay") {
		cfg.Relay.Addr = relayAddr
		if !f.Changed("transport") {
			cfg.Transport.Kind = config.TransportRelay
		}
	}
	if f.Changed("input") {
		cfg.Input.Backend = inputKind
	}
	if f.Changed("tone-hz") {
		cfg.Input.ToneHz = toneHz
	}
	if f.Changed("log-file") {
		cfg.Log.File = logFile
	}
	if noTUI {
		cfg.Log.TUI = false
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if cfg.Log.TUI {
		// TUI owns the terminal: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	clientName := name
	if clientName == "" {
		hostname, _ := os.Hostname()
		clientName = app.DefaultName(hostname)
	}

	log.Printf("Starting %s: %s (transport %s)", version.String(), clientName, cfg.Transport.Kind)

	client, err := app.NewClient(cfg, clientName, metrics.Default)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Run(ctx); err != nil {
		return err
	}

	log.Printf("Client stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
