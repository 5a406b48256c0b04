package lifecycle

import (
	"time"

	"github.com/san-kum/simrun/internal/logging"
	"go.uber.org/zap/zapcore"
)

type options struct {
	seed        *int64
	trial       *int
	strictTrial bool
	mode        logging.Mode
	console     zapcore.WriteSyncer
	now         func() time.Time
}

type Option func(*options)

// WithSeed overrides the trial-derived seed.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = &seed }
}

// WithTrial pins the trial instead of allocating the next free one.
func WithTrial(trial int) Option {
	return func(o *options) { o.trial = &trial }
}

// WithStrictTrial makes a pinned trial fail when its directory already exists.
func WithStrictTrial() Option {
	return func(o *options) { o.strictTrial = true }
}

// WithLogInfo parses a free-form descriptor such as "test_debug".
func WithLogInfo(logInfo string) Option {
	return func(o *options) { o.mode = logging.ParseMode(logInfo) }
}

func WithMode(mode logging.Mode) Option {
	return func(o *options) { o.mode = mode }
}

// WithConsole redirects human-readable log output, stderr by default.
func WithConsole(w zapcore.WriteSyncer) Option {
	return func(o *options) { o.console = w }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func defaultOptions() *options {
	return &options{now: time.Now}
}
