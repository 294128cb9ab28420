// Package scenario loads scenario files: several programs booted side by
// side in one kernel, each with its own IPC discipline and sizes.
//
// Files are YAML (.yaml, .yml) or TOML (.toml):
//
//	kernel:
//	  max_envs: 128
//	runs:
//	  - program: pingpong
//	    discipline: retry
//	    params: {rounds: 5}
//	  - program: forktree
//	    copies: 2
//
// Example Usage:
//
//	s, err := scenario.Load("mixed.yaml")
//	s.Apply(cfg)
//	ids, err := s.Boot(k, console, scenario.BootOptions{Discipline: cfg.IPC.Discipline})
package scenario
