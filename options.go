package bcache

import (
	"log/slog"

	"github.com/hupe1980/bcache/internal/aio"
	"github.com/hupe1980/bcache/resource"
)

const (
	// DefaultWritebackBatch is the number of writes issued when a miss finds
	// no reclaimable slot and nothing is in flight.
	DefaultWritebackBatch = 16
	// DefaultWritebackLow is the available-capacity percentage under which
	// a dirty release starts writeback.
	DefaultWritebackLow = 33
	// DefaultWritebackHigh is the available-capacity percentage writeback
	// aims for once started.
	DefaultWritebackHigh = 66
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	resources        *resource.Controller
	ioWorkers        int
	writebackBatch   int
	writebackLow     int
	writebackHigh    int
}

// Option configures Open.
type Option func(*options)

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := bcache.NewJSONLogger(slog.LevelInfo)
//	c, _ := bcache.Open(dev, 8, n, 64<<20, bcache.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
//
// Example:
//
//	metrics := &bcache.BasicMetricsCollector{}
//	c, _ := bcache.Open(dev, 8, n, 64<<20, bcache.WithMetricsCollector(metrics))
//	// ... use c ...
//	fmt.Println(metrics.GetStats().ReadHits)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController shares a memory budget, transfer cap and write
// rate limit with other caches. The slot pool is reserved against the
// controller's memory limit when the cache opens.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithIOWorkers sets how many goroutines issue device transfers.
func WithIOWorkers(n int) Option {
	return func(o *options) {
		o.ioWorkers = n
	}
}

// WithWritebackBatch sets how many dirty blocks a miss writes back when no
// slot is reclaimable and nothing is in flight.
func WithWritebackBatch(n int) Option {
	return func(o *options) {
		o.writebackBatch = n
	}
}

// WithWritebackThresholds sets the preemptive writeback water marks as
// percentages of capacity. Writeback starts when available slots fall
// under low and issues enough writes to reach high.
func WithWritebackThresholds(low, high int) Option {
	return func(o *options) {
		o.writebackLow = low
		o.writebackHigh = high
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		ioWorkers:        aio.DefaultWorkers,
		writebackBatch:   DefaultWritebackBatch,
		writebackLow:     DefaultWritebackLow,
		writebackHigh:    DefaultWritebackHigh,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o *options) validate() error {
	if o.ioWorkers <= 0 {
		return &optionError{"io workers must be positive"}
	}
	if o.writebackBatch <= 0 {
		return &optionError{"writeback batch must be positive"}
	}
	if o.writebackLow < 0 || o.writebackHigh > 100 || o.writebackLow > o.writebackHigh {
		return &optionError{"writeback thresholds must satisfy 0 <= low <= high <= 100"}
	}
	return nil
}

type optionError struct{ msg string }

func (e *optionError) Error() string { return "invalid option: " + e.msg }

func (e *optionError) Unwrap() error { return ErrInvalidArgument }
