package irq

import (
	"context"

	"github.com/linkpm/linkpm-go/pkg/action"
)

// Line names.
const (
	LineWake     = "WAKE"
	LinePerst    = "PERST"
	LineLinkDown = "LINKDOWN"
)

// WakeHandler receives WAKE bottom halves. Implemented by
// *host.Controller.
type WakeHandler interface {
	HandleWake(ctx context.Context, asserted bool)
}

// LinkDownHandler receives link-down bottom halves. Implemented by
// *host.Controller.
type LinkDownHandler interface {
	HandleLinkDown(ctx context.Context, asserted bool)
}

// NewWake creates the host-side WAKE front-end.
func NewWake(cfg Config, h WakeHandler) (*FrontEnd, error) {
	if cfg.Name == "" {
		cfg.Name = LineWake
	}
	return New(cfg, h.HandleWake)
}

// NewLinkDown creates the host-side link-down front-end.
func NewLinkDown(cfg Config, h LinkDownHandler) (*FrontEnd, error) {
	if cfg.Name == "" {
		cfg.Name = LineLinkDown
	}
	return New(cfg, h.HandleLinkDown)
}

// NewPerst creates the endpoint-side PERST front-end. Its bottom half
// enqueues Reinit when PERST is asserted and Shutdown when deasserted.
func NewPerst(cfg Config, q action.Enqueuer) (*FrontEnd, error) {
	if cfg.Name == "" {
		cfg.Name = LinePerst
	}
	f, err := New(cfg, nil)
	if err != nil {
		return nil, err
	}
	f.handler = func(_ context.Context, asserted bool) {
		kind := action.Shutdown
		if asserted {
			kind = action.Reinit
		}
		if err := q.Enqueue(kind); err != nil {
			f.logger.Warn("enqueue failed", "action", kind.String(), "error", err)
		}
	}
	return f, nil
}
