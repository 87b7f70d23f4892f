package worker

import "github.com/joeycumines/logiface"

type workerOptions struct {
	logger *logiface.Logger[logiface.Event]
}

// Option configures a worker at construction time.
type Option interface {
	applyWorker(*workerOptions)
}

type optionImpl struct {
	applyWorkerFunc func(*workerOptions)
}

func (o *optionImpl) applyWorker(opts *workerOptions) {
	o.applyWorkerFunc(opts)
}

// WithLogger sets the structured logger used for diagnostics, shared with
// any scheduler the worker starts. A nil logger (the default) disables
// logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *workerOptions) {
		opts.logger = logger
	}}
}

func resolveOptions(options []Option) *workerOptions {
	cfg := &workerOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt.applyWorker(cfg)
	}
	return cfg
}
