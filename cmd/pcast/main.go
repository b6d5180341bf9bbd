// Pcast generates two-speaker podcasts: a script is written by a text
// service, split into speaker turns, synthesized per speaker and assembled
// into one WAV file.
//
// Usage:
//
//	pcast --topic "The history of coffee" [flags]
//	pcast --serve --config /path/to/pcast.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/4xachi/pcast/internal/artifact"
	localstore "github.com/4xachi/pcast/internal/artifact/local"
	miniostore "github.com/4xachi/pcast/internal/artifact/minio"
	"github.com/4xachi/pcast/internal/audio"
	"github.com/4xachi/pcast/internal/config"
	"github.com/4xachi/pcast/internal/dispatch"
	"github.com/4xachi/pcast/internal/health"
	"github.com/4xachi/pcast/internal/pipeline"
	"github.com/4xachi/pcast/internal/podcast"
	"github.com/4xachi/pcast/internal/scriptgen"
	geminigen "github.com/4xachi/pcast/internal/scriptgen/gemini"
	localgen "github.com/4xachi/pcast/internal/scriptgen/local"
	openaigen "github.com/4xachi/pcast/internal/scriptgen/openai"
	"github.com/4xachi/pcast/internal/synth"
	"github.com/4xachi/pcast/internal/transport"
	grpctransport "github.com/4xachi/pcast/internal/transport/grpc"
	httptransport "github.com/4xachi/pcast/internal/transport/http"
	mqtttransport "github.com/4xachi/pcast/internal/transport/mqtt"
	"github.com/4xachi/pcast/internal/tts"
	geminitts "github.com/4xachi/pcast/internal/tts/gemini"
	"github.com/4xachi/pcast/internal/tts/piper"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	flags := pflag.CommandLine
	showVersion := flags.Bool("version", false, "print version and exit")
	configFile := flags.String("config", "", "path to config file (e.g. configs/pcast.yaml)")
	serve := flags.Bool("serve", false, "run as a service on the enabled transports")
	flags.String("topic", "", "podcast topic")
	flags.String("speaker-a", "", "first speaker's name")
	flags.String("speaker-b", "", "second speaker's name")
	flags.String("voice-a", "", "voice category for speaker A (male, female, neutral)")
	flags.String("voice-b", "", "voice category for speaker B (male, female, neutral)")
	flags.String("language", "", "script language (english, tagalog, taglish)")
	flags.String("accent", "", "delivery accent (english, tagalog, neutral)")
	flags.String("duration", "", "target length (short, medium)")
	flags.String("output", "", "output directory for the local store")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	pflag.Parse()

	if *showVersion {
		fmt.Printf("pcast %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile, flags)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("pcast starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *serve); err != nil {
		slog.Error("pcast failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, serve bool) error {
	gen, err := newGenerator(ctx, cfg.Generation)
	if err != nil {
		return err
	}
	defer gen.Close()

	speech, err := newSpeech(cfg.TTS)
	if err != nil {
		return err
	}
	defer speech.Close()

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	coordinator := pipeline.New(
		scriptgen.New(gen, cfg.Generation.Timeout),
		synth.New(speech, synth.Options{
			MaxRetries:  cfg.TTS.MaxRetries,
			Backoff:     cfg.TTS.Backoff,
			Timeout:     cfg.TTS.Timeout,
			Concurrency: cfg.TTS.Concurrency,
			SampleRate:  cfg.Audio.SampleRate,
		}),
		audio.NewAssembler(cfg.Audio.SampleRate, cfg.Audio.Gap),
		store,
	)

	if serve {
		return runServer(ctx, cfg, dispatch.New(coordinator))
	}
	return runOnce(ctx, coordinator, podcastConfig(cfg.Podcast))
}

// runOnce generates a single podcast from the configured defaults and flags.
func runOnce(ctx context.Context, coordinator *pipeline.Coordinator, pc podcast.Config) error {
	art, err := coordinator.Run(ctx, pc, func(evt pipeline.Event) {
		switch {
		case evt.Turn != nil:
			slog.Info("turn synthesized",
				"turn", evt.Turn.Index,
				"speaker", evt.Turn.Speaker,
				"substituted", evt.Turn.Substituted,
				"completed", evt.Completed,
				"total", evt.Total)
		default:
			slog.Info("pipeline state", "state", evt.State)
		}
	})
	if err != nil {
		return err
	}

	for _, f := range art.SubstitutedTurns {
		slog.Warn("turn replaced by silence", "turn", f.Index, "speaker", f.Speaker, "error", f.Error)
	}
	for _, w := range art.Warnings {
		slog.Warn("podcast warning", "warning", w)
	}

	fmt.Printf("%s\t%.1fs\t%s\n", art.ID, art.Duration.Seconds(), art.Location)
	return nil
}

// runServer serves requests on the enabled transports until shutdown.
func runServer(ctx context.Context, cfg *config.Config, dispatcher *dispatch.Dispatcher) error {
	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port))
	}
	if cfg.Transports.MQTT.Enabled {
		transports = append(transports, mqtttransport.New(cfg.Transports.MQTT))
	}

	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort, dispatcher)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, dispatcher.Handle); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("pcast ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("pcast stopped")
	return nil
}

func newGenerator(ctx context.Context, cfg config.GenerationConfig) (scriptgen.Generator, error) {
	switch cfg.Backend {
	case "gemini":
		slog.Info("using Gemini script generator", "model", cfg.Gemini.Model)
		return geminigen.New(ctx, cfg.Gemini)
	case "openai":
		slog.Info("using OpenAI script generator", "model", cfg.OpenAI.Model)
		return openaigen.New(cfg.OpenAI), nil
	case "local":
		slog.Info("using local script generator", "endpoint", cfg.Local.Endpoint, "model", cfg.Local.Model)
		return localgen.New(cfg.Local), nil
	default:
		return nil, fmt.Errorf("unknown generation backend %q", cfg.Backend)
	}
}

func newSpeech(cfg config.TTSConfig) (tts.Synthesizer, error) {
	switch cfg.Backend {
	case "gemini":
		slog.Info("using Gemini speech", "model", cfg.Gemini.Model)
		return geminitts.New(cfg.Gemini), nil
	case "piper":
		slog.Info("using Piper speech", "endpoint", cfg.Piper.Endpoint)
		return piper.New(cfg.Piper), nil
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.Backend)
	}
}

// newStore returns the configured artifact store, or nil for "none".
func newStore(ctx context.Context, cfg config.StorageConfig) (artifact.Store, error) {
	switch cfg.Backend {
	case "local":
		slog.Info("storing artifacts on disk", "dir", cfg.Local.Dir)
		return localstore.New(cfg.Local.Dir), nil
	case "minio":
		slog.Info("storing artifacts in object storage", "endpoint", cfg.MinIO.Endpoint, "bucket", cfg.MinIO.Bucket)
		s, err := miniostore.New(ctx, cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func podcastConfig(d config.PodcastDefaults) podcast.Config {
	return podcast.Config{
		SpeakerA: d.SpeakerA,
		SpeakerB: d.SpeakerB,
		VoiceA:   podcast.VoiceCategory(d.VoiceA),
		VoiceB:   podcast.VoiceCategory(d.VoiceB),
		Language: podcast.Language(d.Language),
		Accent:   podcast.Accent(d.Accent),
		Duration: podcast.DurationClass(d.Duration),
		Topic:    d.Topic,
	}
}
