package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/kernel"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/programs"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/ulib"
)

// Format is a scenario file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var (
	ErrUnknownFormat = errors.New("unknown scenario format")
	ErrNoRuns        = errors.New("scenario has no runs")
)

// Scenario is a set of programs booted side by side in one kernel.
type Scenario struct {
	Name   string `yaml:"name" toml:"name"`
	Kernel Kernel `yaml:"kernel" toml:"kernel"`
	Runs   []Run  `yaml:"runs" toml:"runs"`
}

// Kernel overrides the configured kernel size. Zero keeps the configuration.
type Kernel struct {
	MaxEnvs   int `yaml:"max_envs" toml:"max_envs"`
	MaxFrames int `yaml:"max_frames" toml:"max_frames"`
}

// Run boots one program, Copies times.
type Run struct {
	Program    string `yaml:"program" toml:"program"`
	Discipline string `yaml:"discipline" toml:"discipline"`
	Copies     int    `yaml:"copies" toml:"copies"`
	Params     Params `yaml:"params" toml:"params"`
}

// Params mirrors programs.Params for the file formats.
type Params struct {
	Depth  int `yaml:"depth" toml:"depth"`
	Rounds int `yaml:"rounds" toml:"rounds"`
	Limit  int `yaml:"limit" toml:"limit"`
	Pages  int `yaml:"pages" toml:"pages"`
}

func (p Params) program() programs.Params {
	return programs.Params{Depth: p.Depth, Rounds: p.Rounds, Limit: p.Limit, Pages: p.Pages}
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes and validates a scenario. Unknown keys are errors.
func Parse(data []byte, format Format) (*Scenario, error) {
	var s Scenario
	switch format {
	case FormatYAML:
		if err := yaml.UnmarshalWithOptions(data, &s, yaml.DisallowUnknownField()); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every run names a known program and discipline.
func (s *Scenario) Validate() error {
	if len(s.Runs) == 0 {
		return ErrNoRuns
	}
	for i, r := range s.Runs {
		if _, err := programs.Lookup(r.Program); err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
		switch r.Discipline {
		case "", config.DisciplineBlock, config.DisciplineRetry:
		default:
			return fmt.Errorf("run %d: invalid discipline %q", i, r.Discipline)
		}
		if r.Copies < 0 {
			return fmt.Errorf("run %d: negative copies", i)
		}
	}
	if s.Kernel.MaxEnvs < 0 || s.Kernel.MaxFrames < 0 {
		return fmt.Errorf("negative kernel size")
	}
	return nil
}

// Apply writes the scenario's kernel sizes into cfg.
func (s *Scenario) Apply(cfg *config.Config) {
	if s.Kernel.MaxEnvs > 0 {
		cfg.Kernel.MaxEnvs = s.Kernel.MaxEnvs
	}
	if s.Kernel.MaxFrames > 0 {
		cfg.Kernel.MaxFrames = s.Kernel.MaxFrames
	}
}

// BootOptions are shared by every run. Discipline applies to runs that
// name none.
type BootOptions struct {
	Discipline string
	Logger     *logging.Logger
	Metrics    *monitoring.Metrics
}

// Boot starts every run in k, printing to con, and returns the boot env ids
// in file order. On error the envs already booted keep running.
func (s *Scenario) Boot(k *kernel.Kernel, con *programs.Console, opts BootOptions) ([]kernel.EnvID, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var ids []kernel.EnvID
	for i, r := range s.Runs {
		prog, err := programs.Lookup(r.Program)
		if err != nil {
			return ids, fmt.Errorf("run %d: %w", i, err)
		}
		discipline := r.Discipline
		if discipline == "" {
			discipline = opts.Discipline
		}
		lib := ulib.New(ulib.Options{Discipline: discipline, Logger: opts.Logger, Metrics: opts.Metrics})

		copies := max(r.Copies, 1)
		for range copies {
			id, err := k.Boot(kernel.RoleUser, prog.Entry(lib, con, r.Params.program()))
			if err != nil {
				return ids, fmt.Errorf("run %d: boot %s: %w", i, prog.Name, err)
			}
			ids = append(ids, id)
		}
		logger.Info("Booted run",
			zap.String("scenario", s.Name),
			zap.String("program", prog.Name),
			zap.String("discipline", lib.Discipline()),
			zap.Int("copies", copies),
		)
	}
	return ids, nil
}
