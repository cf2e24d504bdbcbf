package dataset

import "github.com/himanishpuri/ECGSegmenter/pkg/logger"

type options struct {
	classes   int
	overwrite bool
	log       logger.Leveled
}

// Option configures a Writer or a Load call.
type Option func(*options)

// WithClasses sets the number of class partitions (default 5).
func WithClasses(n int) Option {
	return func(o *options) { o.classes = n }
}

// WithOverwrite makes the Writer replace window files that already exist.
// Without it existing files are never touched.
func WithOverwrite(overwrite bool) Option {
	return func(o *options) { o.overwrite = overwrite }
}

// WithLogger sets the logger used for per-window debug output.
func WithLogger(log logger.Leveled) Option {
	return func(o *options) { o.log = log }
}

func buildOptions(opts []Option) *options {
	o := &options{classes: DefaultClasses}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.GetLogger()
	}
	return o
}
