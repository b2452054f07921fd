// ABOUTME: Voice client application orchestration
// ABOUTME: Coordinates output device, session and the TUI
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/voicelink/voicelink-go/internal/config"
	"github.com/voicelink/voicelink-go/internal/metrics"
	"github.com/voicelink/voicelink-go/internal/session"
	"github.com/voicelink/voicelink-go/internal/ui"
	"github.com/voicelink/voicelink-go/pkg/audio/output"
)

// statusInterval is how often status is refreshed without other updates
const statusInterval = 250 * time.Millisecond

// Client is the voice client application
type Client struct {
	config   *config.Config
	name     string
	timeline *output.Timeline
	backend  output.Backend
	session  *session.Session
	controls *ui.Controls
	tuiProg  *tea.Program
}

// NewClient wires every component from configuration
func NewClient(cfg *config.Config, name string, m *metrics.Metrics) (*Client, error) {
	tl := output.NewTimeline(cfg.Audio.PlaybackSampleRate)
	tl.SetVolume(cfg.Output.Volume)
	tl.SetMuted(cfg.Output.Muted)

	backend, err := BuildBackend(cfg, tl)
	if err != nil {
		return nil, err
	}
	source, err := BuildSource(cfg)
	if err != nil {
		return nil, err
	}
	dialer, err := BuildDialer(cfg, name)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(SessionConfig(cfg), dialer, source, tl, m)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:   cfg,
		name:     name,
		timeline: tl,
		backend:  backend,
		session:  sess,
	}, nil
}

// Session returns the client's session
func (c *Client) Session() *session.Session {
	return c.session
}

// Run opens the output device, connects and serves until ctx ends or the
// user quits. Headless runs end when the connection ends.
func (c *Client) Run(ctx context.Context) error {
	if err := c.backend.Open(); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer c.backend.Close()

	if c.config.Log.TUI {
		return c.runTUI(ctx)
	}
	return c.runHeadless(ctx)
}

func (c *Client) runHeadless(ctx context.Context) error {
	log.Printf("Connecting via %s...", c.config.Transport.Kind)
	if err := c.session.Connect(ctx); err != nil {
		return err
	}
	defer c.session.Disconnect()

	ended := make(chan struct{})
	go func() {
		c.session.Wait()
		close(ended)
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Shutting down...")
			return nil
		case <-ended:
			if err := c.session.Status().LastError; err != nil {
				return fmt.Errorf("session ended: %w", err)
			}
			return nil
		case <-ticker.C:
			st := c.session.Status()
			log.Printf("Stats: sent=%d received=%d scheduled=%d dropped=%d lead=%v",
				st.Sent, st.Received, st.Playback.Scheduled, st.Capture.Dropped, st.Lead)
		}
	}
}

func (c *Client) runTUI(ctx context.Context) error {
	c.controls = ui.NewControls()
	model := ui.NewModel(c.controls, c.config.Transport.Kind, c.timeline.GetVolume(), c.timeline.IsMuted())
	c.tuiProg = ui.Run(model)

	tuiDone := make(chan error, 1)
	go func() {
		_, err := c.tuiProg.Run()
		tuiDone <- err
	}()
	defer c.session.Disconnect()

	c.connectAsync(ctx)

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.tuiProg.Quit()
			<-tuiDone
			return nil

		case err := <-tuiDone:
			if err != nil {
				return fmt.Errorf("TUI failed: %w", err)
			}
			return nil

		case <-c.controls.Quit:
			<-tuiDone
			return nil

		case <-c.controls.Connect:
			if c.session.Connected() {
				go c.session.Disconnect()
			} else {
				c.connectAsync(ctx)
			}

		case change := <-c.controls.Volume:
			c.timeline.SetVolume(change.Volume)
			c.timeline.SetMuted(change.Muted)

		case <-c.session.Updates():
			c.sendStatus()

		case <-ticker.C:
			c.sendStatus()
		}
	}
}

func (c *Client) connectAsync(ctx context.Context) {
	go func() {
		if err := c.session.Connect(ctx); err != nil {
			log.Printf("Connect failed: %v", err)
		}
	}()
}

func (c *Client) sendStatus() {
	c.tuiProg.Send(ui.StatusMsg{
		Status:      c.session.Status(),
		Transcripts: c.session.Transcripts(),
	})
}
