package ulib

import (
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/monitoring"
)

// Options configures a Lib.
type Options struct {
	// Discipline is config.DisciplineBlock or config.DisciplineRetry.
	Discipline string
	Logger     *logging.Logger
	Metrics    *monitoring.Metrics
}

// Lib is the user-space library shared by every env of one system. It holds
// no per-env state: every operation takes the calling env explicitly.
type Lib struct {
	discipline string
	log        *logging.Logger
	metrics    *monitoring.Metrics
}

// New creates a library. An unknown discipline falls back to block.
func New(opts Options) *Lib {
	if opts.Discipline != config.DisciplineRetry {
		opts.Discipline = config.DisciplineBlock
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}
	return &Lib{
		discipline: opts.Discipline,
		log:        opts.Logger.Named("ulib"),
		metrics:    opts.Metrics,
	}
}

// Discipline returns the send discipline in use.
func (l *Lib) Discipline() string {
	return l.discipline
}
