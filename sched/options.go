package sched

import "github.com/joeycumines/logiface"

type schedOptions struct {
	logger *logiface.Logger[logiface.Event]
}

// Option configures a Scheduler instance.
type Option interface {
	applySched(*schedOptions)
}

type optionImpl struct {
	applySchedFunc func(*schedOptions)
}

func (o *optionImpl) applySched(opts *schedOptions) {
	o.applySchedFunc(opts)
}

// WithLogger sets the structured logger used for diagnostics. A nil logger
// (the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *schedOptions) {
		opts.logger = logger
	}}
}

func resolveOptions(options []Option) *schedOptions {
	cfg := &schedOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt.applySched(cfg)
	}
	return cfg
}
