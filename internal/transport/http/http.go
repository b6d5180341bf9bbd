// Package http implements the HTTP transport for pcast.
//
// This transport exposes a REST API for podcast generation plus the voice
// catalog and a Swagger UI. It is best suited for web clients and services
// that prefer HTTP-based communication.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/4xachi/pcast/docs" // registers the OpenAPI spec served at /swagger/doc.json
	"github.com/4xachi/pcast/internal/message"
	"github.com/4xachi/pcast/internal/podcast"
	"github.com/4xachi/pcast/internal/transport"
	"github.com/4xachi/pcast/internal/voice"
)

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port   int
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Routes returns the HTTP routes served by the transport.
func (t *Transport) Routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	// POST /podcasts: generate a podcast, JSON or raw WAV response.
	mux.HandleFunc("POST /podcasts", func(w http.ResponseWriter, r *http.Request) {
		t.handleGenerate(w, r, handler)
	})

	// GET /voices: the voice catalog by category.
	mux.HandleFunc("GET /voices", t.handleVoices)

	// Swagger UI: serves the registered OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleGenerate processes a POST /podcasts request.
//
// @Summary     Generate a podcast
// @Description Generates a two-speaker podcast for the topic in the request: the script is written by the
// @Description text service, split into turns, synthesized per speaker and assembled into one WAV file.
// @Description Send "Accept: audio/wav" to receive the audio itself instead of the JSON result.
// @Tags        podcasts
// @Accept      json
// @Produce     json
// @Produce     audio/wav
// @Param       request  body      message.Request  true  "Podcast request. Empty podcast fields take their defaults."
// @Success     200  {object}  message.Result  "Generated podcast"
// @Failure     400  {object}  message.Result  "Invalid request or configuration"
// @Failure     502  {object}  message.Result  "The text or speech service failed"
// @Failure     500  {object}  message.Result  "Audio could not be assembled"
// @Router      /podcasts [post]
func (t *Transport) handleGenerate(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	var req message.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = r.RemoteAddr
	}

	wantWAV := strings.Contains(r.Header.Get("Accept"), "audio/wav")
	if wantWAV {
		req.ResponseMode = message.ResponseModeAudio
	}

	result, err := handler(r.Context(), &req, nil)
	if err != nil {
		slog.Error("podcast request failed", "error", err)
		http.Error(w, "dispatch error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	status := statusFor(result)
	if wantWAV && status == http.StatusOK {
		wav, err := result.AudioBytes()
		if err != nil {
			http.Error(w, "decoding audio: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.ArtifactID+".wav"))
		w.Header().Set("X-Pcast-Artifact-Id", result.ArtifactID)
		w.Header().Set("X-Pcast-Substituted-Turns", strconv.Itoa(len(result.SubstitutedTurns)))
		_, _ = w.Write(wav)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}

// statusFor maps a result's error kind to an HTTP status.
func statusFor(res *message.Result) int {
	if res.Error == "" {
		return http.StatusOK
	}
	switch podcast.Kind(res.Kind) {
	case podcast.KindConfiguration:
		return http.StatusBadRequest
	case podcast.KindGeneration, podcast.KindParse, podcast.KindSynthesis:
		return http.StatusBadGateway
	case podcast.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// VoiceCatalog lists voice ids by category.
type VoiceCatalog struct {
	Male    []string `json:"male"`
	Female  []string `json:"female"`
	Neutral []string `json:"neutral"`
}

// handleVoices processes a GET /voices request.
//
// @Summary     List voices
// @Description Returns the synthesizer voice ids available for each voice category.
// @Tags        voices
// @Produce     json
// @Success     200  {object}  VoiceCatalog
// @Router      /voices [get]
func (t *Transport) handleVoices(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(VoiceCatalog{
		Male:    voice.Voices(podcast.VoiceMale),
		Female:  voice.Voices(podcast.VoiceFemale),
		Neutral: voice.Voices(podcast.VoiceNeutral),
	})
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}
