// Package sundaecron runs a task on a schedule: once per invocation as a
// Lambda behind an EventBridge rule, or once immediately in console mode.
package sundaecron

import (
	"context"
	"encoding/json"
	"time"

	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
)

type RunCallback func(ctx context.Context) error

type Handler struct {
	service sundaecli.Service
	logger  zerolog.Logger

	runOnce RunCallback
}

func NewHandler(
	service sundaecli.Service,
	runOnce RunCallback,
) *Handler {
	return &Handler{
		service: service,
		logger:  sundaecli.Logger(service),
		runOnce: runOnce,
	}
}

func (h *Handler) RunOnce(ctx context.Context, _ json.RawMessage) error {
	started := time.Now()
	h.logger.Info().Msg("running scheduled task")
	if err := h.runOnce(ctx); err != nil {
		h.logger.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("scheduled task failed")
		return err
	}
	h.logger.Info().Dur("elapsed", time.Since(started)).Msg("scheduled task finished")
	return nil
}

func (h *Handler) Start() error {
	switch {
	case sundaecli.CommonOpts.Console:
		return h.RunOnce(context.Background(), nil)

	default:
		lambda.Start(h.RunOnce)
	}
	return nil
}
