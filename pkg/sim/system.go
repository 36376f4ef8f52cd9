package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/linkpm/linkpm-go/pkg/config"
	"github.com/linkpm/linkpm-go/pkg/endpoint"
	"github.com/linkpm/linkpm-go/pkg/host"
	"github.com/linkpm/linkpm-go/pkg/irq"
	"github.com/linkpm/linkpm-go/pkg/log"
)

// SystemOptions configures a System.
type SystemOptions struct {
	// Logger receives operational logs. Nil discards.
	Logger *slog.Logger

	// Trace receives lifecycle trace events from both sides.
	Trace log.Logger

	// AutoConfigure makes the slot owner answer a WAKE from an unpowered
	// endpoint with ConfigureDevice, and an unexpected link loss with
	// RecoverLink.
	AutoConfigure bool
}

// System is a simulated board with both controllers and their interrupt
// front-ends wired together.
type System struct {
	Board    *Board
	Host     *host.Controller
	Endpoint *endpoint.Controller
	WakeIRQ  *irq.FrontEnd
	PerstIRQ *irq.FrontEnd

	// LinkDownIRQ delivers the host's link-down status.
	LinkDownIRQ *irq.FrontEnd

	logger        *slog.Logger
	autoConfigure bool

	mu       sync.Mutex
	ctx      context.Context
	reg      *host.Registration
	stopping bool
	owner    sync.WaitGroup
	lastErr  error
}

// NewSystem builds a system from cfg. The GPIO chip names in cfg are
// ignored; both lines are simulated.
func NewSystem(cfg *config.Config, opts SystemOptions) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	identity := cfg.Host.ExpectedIdentity
	if identity.IsZero() {
		identity = cfg.Endpoint.ExpectedIdentity
	}
	board := NewBoard(BoardOptions{
		Identity:          identity,
		HostSequences:     cfg.Host.Sequences,
		EndpointSequences: cfg.Endpoint.Sequences,
		WakeActiveLow:     cfg.Lines.Wake.ActiveLow,
		PerstActiveLow:    cfg.Lines.Perst.ActiveLow,
	})

	hc := cfg.HostControllerConfig()
	hc.Logger = logger
	hc.TraceLogger = opts.Trace
	hostCtrl, err := host.New(hc, board.HostDeps())
	if err != nil {
		return nil, fmt.Errorf("host controller: %w", err)
	}

	ec := cfg.EndpointControllerConfig()
	ec.Logger = logger
	ec.TraceLogger = opts.Trace
	epCtrl, err := endpoint.New(ec, board.EndpointDeps())
	if err != nil {
		return nil, fmt.Errorf("endpoint controller: %w", err)
	}

	wake, err := irq.NewWake(irq.Config{
		Line:      board.Wake,
		ActiveLow: cfg.Lines.Wake.ActiveLow,
		WakeLock:  board.HostWakeLock,
		StayAwake: cfg.Lines.Wake.StayAwake,
		Logger:    logger.With("side", "host"),
		Recorder:  log.NewRecorder(opts.Trace, hostCtrl.ID(), log.SideHost),
	}, hostCtrl)
	if err != nil {
		return nil, err
	}
	perst, err := irq.NewPerst(irq.Config{
		Line:      board.Perst,
		ActiveLow: cfg.Lines.Perst.ActiveLow,
		WakeLock:  board.EndpointWakeLock,
		StayAwake: cfg.Lines.Perst.StayAwake,
		Logger:    logger.With("side", "endpoint"),
		Recorder:  log.NewRecorder(opts.Trace, epCtrl.ID(), log.SideEndpoint),
	}, epCtrl)
	if err != nil {
		return nil, err
	}
	linkDown, err := irq.NewLinkDown(irq.Config{
		Line:      board.LinkDown,
		WakeLock:  board.HostWakeLock,
		StayAwake: cfg.Lines.Wake.StayAwake,
		Logger:    logger.With("side", "host"),
		Recorder:  log.NewRecorder(opts.Trace, hostCtrl.ID(), log.SideHost),
	}, hostCtrl)
	if err != nil {
		return nil, err
	}
	board.Wake.OnEdge(wake.Fire)
	board.Perst.OnEdge(perst.Fire)
	board.LinkDown.OnEdge(linkDown.Fire)

	return &System{
		Board:         board,
		Host:          hostCtrl,
		Endpoint:      epCtrl,
		WakeIRQ:       wake,
		PerstIRQ:      perst,
		LinkDownIRQ:   linkDown,
		logger:        logger,
		autoConfigure: opts.AutoConfigure,
		ctx:           context.Background(),
	}, nil
}

// Start brings both sides up: the endpoint worker and the interrupt
// front-ends start, and the slot owner registers for host events.
func (s *System) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.stopping = false
	s.mu.Unlock()

	if err := s.Endpoint.Start(ctx); err != nil {
		return err
	}
	s.PerstIRQ.Start(ctx)
	s.PerstIRQ.Enable()
	s.WakeIRQ.Start(ctx)
	s.WakeIRQ.Enable()
	s.LinkDownIRQ.Start(ctx)
	s.LinkDownIRQ.Enable()

	reg, err := s.Host.RegisterEvent(host.EventAll, s.onHostEvent)
	if err != nil {
		s.Stop()
		return err
	}
	s.mu.Lock()
	s.reg = reg
	s.mu.Unlock()
	return nil
}

// Stop removes both sides: interrupt sources are quiesced before the
// endpoint worker stops.
func (s *System) Stop() {
	s.mu.Lock()
	reg := s.reg
	s.reg = nil
	s.stopping = true
	s.mu.Unlock()
	if reg != nil {
		_ = s.Host.DeregisterEvent(reg)
	}
	s.owner.Wait()

	s.LinkDownIRQ.Stop()
	s.WakeIRQ.Stop()
	s.PerstIRQ.Stop()
	s.Endpoint.Stop()
}

// LastOwnerError returns the error of the last owner-initiated operation.
func (s *System) LastOwnerError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// WaitOwner waits for owner-initiated work started by host events.
func (s *System) WaitOwner() {
	s.owner.Wait()
}

// onHostEvent is the slot owner. It runs on an interrupt bottom half, so
// configuring happens on its own goroutine.
func (s *System) onHostEvent(ev host.Event) {
	s.logger.Info("host event", "event", ev.String())
	if !s.autoConfigure {
		return
	}

	var op func(context.Context) error
	switch {
	case ev&host.EventWake != 0:
		op = s.Host.ConfigureDevice
	case ev&host.EventLinkDown != 0 && s.Host.LinkLost():
		// An orderly unconfigure also reports EventLinkDown; only a lost
		// link needs recovering.
		op = s.Host.RecoverLink
	default:
		return
	}

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.owner.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.owner.Done()
		err := op(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("owner operation failed", "event", ev.String(), "error", err)
		}
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
	}()
}
