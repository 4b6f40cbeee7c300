package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raccommode/P-StreamRec/internal/backend"
	"github.com/raccommode/P-StreamRec/internal/errs"
	"github.com/raccommode/P-StreamRec/internal/model"
)

// AutoRecorder is the recurring evaluator that starts a recording session
// for every tracked model that is online and not already being recorded.
// It only ever fires the start edge; everything else (session end, status
// transitions) is driven by the backend and observed through polling.
type AutoRecorder struct {
	syncer *Synchronizer
	gw     backend.Gateway
	log    *zap.Logger
	fanOut int
}

// NewAutoRecorder creates the evaluator. fanOut bounds how many per-model
// probes run concurrently within one cycle.
func NewAutoRecorder(syncer *Synchronizer, gw backend.Gateway, fanOut int, log *zap.Logger) *AutoRecorder {
	if fanOut <= 0 {
		fanOut = 4
	}
	return &AutoRecorder{syncer: syncer, gw: gw, log: log, fanOut: fanOut}
}

// Run evaluates immediately, then on every tick until ctx is cancelled.
// The cadence itself is the retry throttle: a failed model is simply
// looked at again next cycle, no backoff.
func (a *AutoRecorder) Run(ctx context.Context, interval time.Duration) {
	a.RunCycle(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.RunCycle(ctx)
		}
	}
}

// RunCycle performs one evaluation pass. Failures never escape: a broken
// model list or session list just ends the cycle, and one model's probe
// failure never aborts the remaining models.
func (a *AutoRecorder) RunCycle(ctx context.Context) {
	models, err := a.syncer.Models(ctx)
	if err != nil {
		a.log.Warn("auto-record: model list unavailable", zap.Error(err))
		return
	}
	if len(models) == 0 {
		return
	}

	sessions, err := a.gw.FetchActiveSessions(ctx)
	if err != nil {
		a.log.Warn("auto-record: session list unavailable", zap.Error(err))
		return
	}
	recording := make(map[string]bool, len(sessions))
	for i := range sessions {
		if sessions[i].Running {
			recording[model.Key(sessions[i].Person)] = true
		}
	}

	// Per-model checks are independent and idempotent, so they fan out.
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.fanOut)
	for i := range models {
		m := models[i]
		username := model.Key(m.Username)
		if username == "" {
			continue
		}
		if !m.AutoRecord {
			a.log.Debug("auto-record: disabled for model", zap.String("username", username))
			continue
		}
		if recording[username] {
			a.log.Debug("auto-record: already recording", zap.String("username", username))
			continue
		}
		g.Go(func() error {
			a.evaluate(ctx, username)
			return nil
		})
	}
	_ = g.Wait()
}

// evaluate re-probes one idle model live (cache-bypassing) and starts a
// session if it is online.
func (a *AutoRecorder) evaluate(ctx context.Context, username string) {
	st, err := a.syncer.ModelStatus(ctx, username, true)
	if err != nil {
		a.log.Warn("auto-record: status probe failed",
			zap.String("username", username), zap.Error(err))
		return
	}
	if !st.IsOnline {
		a.log.Debug("auto-record: offline", zap.String("username", username))
		return
	}

	sess, err := a.gw.StartSession(ctx, username)
	switch {
	case err == nil:
		a.log.Info("auto-record: session started",
			zap.String("username", username),
			zap.String("session_id", sess.ID))
	case errors.Is(err, errs.ErrAlreadyRunning):
		// Normal outcome of racing a manual start or an overlapping
		// cycle; the backend arbitrated, nothing to do.
		a.log.Debug("auto-record: session already running", zap.String("username", username))
	default:
		a.log.Warn("auto-record: start failed",
			zap.String("username", username), zap.Error(err))
	}
}
