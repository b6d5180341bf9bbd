// Package dispatch turns transport requests into pipeline runs.
//
// Every transport hands its decoded requests to Dispatcher.Handle. The
// dispatcher runs the pipeline, trims the artifact to the requested response
// mode and always returns a Result to the sender: run failures are reported
// inside the Result, not as an error.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/4xachi/pcast/internal/message"
	"github.com/4xachi/pcast/internal/pipeline"
	"github.com/4xachi/pcast/internal/podcast"
)

// Runner runs one podcast generation. *pipeline.Coordinator implements it.
type Runner interface {
	Run(ctx context.Context, cfg podcast.Config, progress pipeline.ProgressFunc) (*podcast.Artifact, error)
}

// Dispatcher is the entry point shared by all transports.
type Dispatcher struct {
	runner   Runner
	inflight atomic.Int64
}

// New creates a new Dispatcher.
func New(runner Runner) *Dispatcher {
	return &Dispatcher{runner: runner}
}

// InFlight returns the number of runs in progress.
func (d *Dispatcher) InFlight() int { return int(d.inflight.Load()) }

// Handle processes a single request through the pipeline. progress may be nil.
// This function is passed as the transport.Handler to each transport.
func (d *Dispatcher) Handle(ctx context.Context, req *message.Request, progress func(message.Progress)) (*message.Result, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	d.inflight.Add(1)
	defer d.inflight.Add(-1)

	start := time.Now()
	mode := req.Mode()
	logger := slog.With("request_id", req.ID, "source", req.Source)
	logger.Info("dispatch started", "response_mode", mode, "in_flight", d.InFlight())

	result := &message.Result{RequestID: req.ID}

	art, err := d.runner.Run(ctx, req.Podcast, func(evt pipeline.Event) {
		if result.RunID == "" {
			result.RunID = evt.RunID
		}
		if progress != nil {
			progress(toProgress(req.ID, evt))
		}
	})
	if err != nil {
		result.Error = err.Error()
		result.Kind = string(podcast.KindOf(err))
		var pe *pipeline.PipelineError
		if errors.As(err, &pe) {
			result.RunID = pe.RunID
			result.Stage = pe.Stage.String()
		}
		logger.Error("dispatch failed", "stage", result.Stage, "kind", result.Kind, "error", err)
		return result, nil
	}

	result.ArtifactID = art.ID
	result.Topic = art.Topic
	result.DurationSeconds = art.Duration.Seconds()
	result.SampleRate = art.SampleRate
	result.Turns = len(art.Turns)
	result.SubstitutedTurns = art.SubstitutedTurns
	result.Warnings = art.Warnings
	result.Location = art.Location
	result.GeneratedAt = art.GeneratedAt

	if mode.WantText() {
		result.Transcript = art.Transcript
	}
	if mode.WantAudio() {
		result.SetAudioBytes(art.Audio)
		result.ContentType = art.ContentType
	}

	logger.Info("dispatch complete", "duration", time.Since(start), "artifact_id", art.ID, "substituted", len(art.SubstitutedTurns))
	return result, nil
}

func toProgress(requestID string, evt pipeline.Event) message.Progress {
	p := message.Progress{
		RequestID: requestID,
		RunID:     evt.RunID,
		State:     evt.State.String(),
		Completed: evt.Completed,
		Total:     evt.Total,
		Time:      evt.Time,
	}
	if evt.Turn != nil {
		idx := evt.Turn.Index
		p.TurnIndex = &idx
		p.Substituted = evt.Turn.Substituted
	}
	if evt.Err != nil {
		p.Error = evt.Err.Error()
	}
	return p
}
