package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/postcache/internal/record"
	"github.com/roach88/postcache/internal/remote"
	"github.com/roach88/postcache/internal/render"
	"github.com/roach88/postcache/internal/store"
)

// Display is the surface the orchestrator draws on. It has an error region
// and a data region; showing one hides the other.
type Display interface {
	Reset()
	ShowRecords(records []record.Record)
	ShowPlaceholder(text string)
	ShowError(code, message string)
}

// Config holds the orchestrator's collaborators.
type Config struct {
	Provider remote.Provider
	Store    store.Options
	Display  Display

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Flows defaults to UUIDv7Generator.
	Flows FlowTokenGenerator
}

// Orchestrator runs the load and view-stored actions.
type Orchestrator struct {
	provider  remote.Provider
	storeOpts store.Options
	display   Display
	logger    *slog.Logger
	flows     FlowTokenGenerator

	mu     sync.Mutex
	state  State
	bgErrs []error

	// openMu serializes the lazy open so one handle serves the session.
	// It also orders pending.Add against pending.Wait and Close.
	openMu sync.Mutex
	handle *store.Handle
	closed bool

	pending sync.WaitGroup
}

// ErrClosed is returned by actions issued after Close.
var ErrClosed = errors.New("app: orchestrator closed")

// New validates cfg and returns an idle orchestrator. The store is not
// opened until the first action needs it.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Provider == nil {
		return nil, errors.New("app: provider is required")
	}
	if cfg.Display == nil {
		return nil, errors.New("app: display is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	flows := cfg.Flows
	if flows == nil {
		flows = UUIDv7Generator{}
	}
	storeOpts := cfg.Store
	if storeOpts.Logger == nil {
		storeOpts.Logger = logger
	}

	return &Orchestrator{
		provider:  cfg.Provider,
		storeOpts: storeOpts,
		display:   cfg.Display,
		logger:    logger,
		flows:     flows,
		state:     StateIdle,
	}, nil
}

// State returns the current load state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Load fetches fresh records, renders them and starts persisting them.
//
// Fetch and parse failures are shown on the display and returned; the
// stored collection is left untouched. Persistence failures are logged and
// reported by Wait only. Load does not wait for the write to commit.
func (o *Orchestrator) Load(ctx context.Context) error {
	log := o.logger.With("flow", o.flows.Generate())

	o.setState(StateFetching)
	o.display.Reset()
	log.Debug("fetching records")

	records, err := o.provider.Fetch(ctx)
	if err != nil {
		o.setState(StateFailed)
		code, message := describeLoadError(err)
		o.display.ShowError(code, message)
		log.Error("load failed", "error", err)
		return err
	}

	o.setState(StatePopulated)
	o.display.ShowRecords(records)
	log.Info("records fetched", "count", len(records))

	o.persist(context.WithoutCancel(ctx), log, records)
	return nil
}

// persist issues the write and tracks its completion in the background.
// The caller's cancellation does not abort a write that is already issued.
func (o *Orchestrator) persist(ctx context.Context, log *slog.Logger, records []record.Record) {
	o.openMu.Lock()
	defer o.openMu.Unlock()

	h, err := o.openStoreLocked(ctx)
	if err != nil {
		log.Error("records not persisted", "error", err)
		o.recordBackground(err)
		return
	}

	done := h.WriteAllAsync(ctx, records)
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		if err := <-done; err != nil {
			log.Error("records not persisted", "error", err)
			o.recordBackground(err)
			return
		}
		log.Debug("records persisted", "count", len(records))
	}()
}

func (o *Orchestrator) recordBackground(err error) {
	o.mu.Lock()
	o.bgErrs = append(o.bgErrs, err)
	o.mu.Unlock()
}

// ViewStored renders the stored collection without touching the network.
// An empty collection renders the placeholder. Open and read failures are
// shown on the display and returned; nothing partial is rendered.
func (o *Orchestrator) ViewStored(ctx context.Context) error {
	o.display.Reset()

	h, err := o.openStore(ctx)
	if err != nil {
		o.display.ShowError(CodeStoreOpen, msgStoreOpen)
		o.logger.Error("view stored failed", "error", err)
		return err
	}

	records, err := h.ReadAll(ctx)
	if err != nil {
		o.display.ShowError(CodeRead, msgRead)
		o.logger.Error("view stored failed", "error", err)
		return err
	}

	if len(records) == 0 {
		o.display.ShowPlaceholder(render.Placeholder)
		return nil
	}
	o.display.ShowRecords(records)
	o.logger.Debug("stored records shown", "count", len(records))
	return nil
}

// openStore returns the session handle, opening it on first use. A failed
// open is not remembered; the next call tries again.
func (o *Orchestrator) openStore(ctx context.Context) (*store.Handle, error) {
	o.openMu.Lock()
	defer o.openMu.Unlock()
	return o.openStoreLocked(ctx)
}

func (o *Orchestrator) openStoreLocked(ctx context.Context) (*store.Handle, error) {
	if o.closed {
		return nil, ErrClosed
	}
	if o.handle != nil {
		return o.handle, nil
	}
	h, err := store.Open(ctx, o.storeOpts)
	if err != nil {
		return nil, err
	}
	o.handle = h
	return h, nil
}

// Wait blocks until every issued background write has finished and
// returns the background failures collected since the previous Wait.
// Writes issued by a Load that starts after Wait returns are not covered.
func (o *Orchestrator) Wait() error {
	o.openMu.Lock()
	o.pending.Wait()
	o.openMu.Unlock()

	return o.drainBackground()
}

func (o *Orchestrator) drainBackground() error {
	o.mu.Lock()
	errs := o.bgErrs
	o.bgErrs = nil
	o.mu.Unlock()

	return errors.Join(errs...)
}

// Close waits for background writes and closes the store handle. It is
// safe to call while other actions run; actions that reach the store after
// Close fail with ErrClosed. Further calls return nil.
func (o *Orchestrator) Close() error {
	o.openMu.Lock()
	defer o.openMu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.pending.Wait()
	waitErr := o.drainBackground()

	if o.handle == nil {
		return waitErr
	}
	closeErr := o.handle.Close()
	o.handle = nil
	if closeErr != nil {
		closeErr = fmt.Errorf("close store: %w", closeErr)
	}
	return errors.Join(waitErr, closeErr)
}
