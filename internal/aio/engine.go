package aio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/bcache/device"
	"github.com/hupe1980/bcache/resource"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrQueueFull is returned by Submit when Depth requests are in flight.
	ErrQueueFull = errors.New("aio: queue full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("aio: engine closed")
)

// DefaultWorkers is the worker count used when Config.Workers is zero.
const DefaultWorkers = 4

// Request is one block transfer.
type Request struct {
	Tag    int32
	Op     device.Op
	Buf    []byte
	Offset int64
}

// Completion is the result of a Request.
type Completion struct {
	Tag      int32
	Op       device.Op
	N        int
	Err      error
	Duration time.Duration
}

// Config configures an Engine.
type Config struct {
	// Workers is the number of goroutines issuing transfers.
	Workers int
	// Depth bounds the number of requests in flight.
	Depth int
	// Controller caps in-flight transfers and throttles writes. May be nil.
	Controller *resource.Controller
}

// Engine runs transfers on worker goroutines.
type Engine struct {
	dev   device.Device
	admit device.Admitter
	rc    *resource.Controller

	reqs chan Request
	done chan Completion

	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group

	depth   int
	pending int
	closed  bool
}

// New starts an engine over dev.
func New(dev device.Device, cfg Config) (*Engine, error) {
	if dev == nil {
		return nil, errors.New("aio: nil device")
	}
	if cfg.Depth <= 0 {
		return nil, fmt.Errorf("aio: depth must be positive, got %d", cfg.Depth)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	e := &Engine{
		dev:    dev,
		rc:     cfg.Controller,
		reqs:   make(chan Request, cfg.Depth),
		done:   make(chan Completion, cfg.Depth),
		ctx:    ctx,
		cancel: cancel,
		g:      g,
		depth:  cfg.Depth,
	}
	if a, ok := dev.(device.Admitter); ok {
		e.admit = a
	}

	for range cfg.Workers {
		g.Go(e.worker)
	}
	return e, nil
}

// Submit queues r. It never blocks.
func (e *Engine) Submit(r Request) error {
	if e.closed {
		return ErrClosed
	}
	if e.pending >= e.depth {
		return ErrQueueFull
	}
	if e.admit != nil {
		if err := e.admit.Admit(r.Op, r.Offset); err != nil {
			return err
		}
	}
	e.reqs <- r
	e.pending++
	return nil
}

// Pending returns the number of submitted requests not yet returned by Wait.
func (e *Engine) Pending() int { return e.pending }

// Wait blocks until at least one completion is available, then returns it
// together with any others already finished, appended to dst. It returns
// dst unchanged when nothing is pending.
func (e *Engine) Wait(dst []Completion) []Completion {
	if e.pending == 0 {
		return dst
	}
	dst = append(dst, <-e.done)
	e.pending--
	for e.pending > 0 {
		select {
		case c := <-e.done:
			dst = append(dst, c)
			e.pending--
		default:
			return dst
		}
	}
	return dst
}

// Close stops accepting requests, lets queued transfers finish and stops
// the workers. Completions not yet collected are discarded.
func (e *Engine) Close() error {
	if e.closed {
		return ErrClosed
	}
	e.closed = true
	close(e.reqs)
	err := e.g.Wait()
	e.cancel()
	e.pending = 0
	return err
}

func (e *Engine) worker() error {
	for r := range e.reqs {
		e.done <- e.transfer(r)
	}
	return nil
}

func (e *Engine) transfer(r Request) Completion {
	c := Completion{Tag: r.Tag, Op: r.Op}

	if err := e.rc.AcquireTransfer(e.ctx); err != nil {
		c.Err = err
		return c
	}
	defer e.rc.ReleaseTransfer()

	if r.Op == device.OpWrite {
		if err := e.rc.AcquireIO(e.ctx, len(r.Buf)); err != nil {
			c.Err = err
			return c
		}
	}

	start := time.Now()
	switch r.Op {
	case device.OpWrite:
		c.N, c.Err = e.dev.WriteAt(r.Buf, r.Offset)
	default:
		c.N, c.Err = e.dev.ReadAt(r.Buf, r.Offset)
	}
	c.Duration = time.Since(start)

	if isShortTransfer(c.Err) {
		c.Err = nil
	}
	return c
}

func isShortTransfer(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrShortWrite) || errors.Is(err, io.ErrUnexpectedEOF)
}
