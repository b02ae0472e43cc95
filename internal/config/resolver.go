package config

import (
	"errors"
	"fmt"
	"sort"
)

// UnknownEnvironmentError is returned when a requested environment is not
// in the configured table.
type UnknownEnvironmentError struct {
	Name string
}

func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("unknown environment %q", e.Name)
}

// IsUnknownEnvironment reports whether err wraps an UnknownEnvironmentError.
func IsUnknownEnvironment(err error) bool {
	var target *UnknownEnvironmentError
	return errors.As(err, &target)
}

// ResolvedEnvironment is the effective configuration for one deployment
// target after "from" links are applied.
type ResolvedEnvironment struct {
	// Name is the environment name as requested.
	Name string
	// Region is the effective region.
	Region string
	// VarFile is the variable file passed to plan, relative to the checkout.
	VarFile string
	// EscalatedApproval requires a second confirmation before destructive actions.
	EscalatedApproval bool
}

// DefaultEnvironments returns the built-in deployment target table used when
// the config file defines none.
func DefaultEnvironments() map[string]Environment {
	escalated := true
	return map[string]Environment{
		"dev":  {Region: defaultRegion, VarFile: "envs/dev.tfvars"},
		"stg":  {Region: defaultRegion, VarFile: "envs/stg.tfvars"},
		"prod": {Region: defaultRegion, VarFile: "envs/prod.tfvars", EscalatedApproval: &escalated},
	}
}

// Names returns the configured environment names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveEnvironment returns the effective environment configuration for the
// given name, following optional "from" links and applying overrides.
func ResolveEnvironment(cfg *Config, name string) (ResolvedEnvironment, error) {
	if cfg == nil {
		return ResolvedEnvironment{}, fmt.Errorf("config is nil")
	}

	visited := make(map[string]struct{})
	var resolve func(current string) (Environment, error)

	resolve = func(current string) (Environment, error) {
		if _, seen := visited[current]; seen {
			return Environment{}, fmt.Errorf("environment inheritance cycle detected at %q", current)
		}
		visited[current] = struct{}{}

		envCfg, ok := cfg.Environments[current]
		if !ok {
			return Environment{}, &UnknownEnvironmentError{Name: current}
		}

		if envCfg.From == "" {
			return envCfg, nil
		}

		base, err := resolve(envCfg.From)
		if err != nil {
			return Environment{}, err
		}

		merged := base
		if envCfg.Region != "" {
			merged.Region = envCfg.Region
		}
		if envCfg.VarFile != "" {
			merged.VarFile = envCfg.VarFile
		}
		if envCfg.EscalatedApproval != nil {
			merged.EscalatedApproval = envCfg.EscalatedApproval
		}
		return merged, nil
	}

	envCfg, err := resolve(name)
	if err != nil {
		return ResolvedEnvironment{}, err
	}

	res := ResolvedEnvironment{
		Name:    name,
		Region:  envCfg.Region,
		VarFile: envCfg.VarFile,
	}
	if envCfg.EscalatedApproval != nil {
		res.EscalatedApproval = *envCfg.EscalatedApproval
	}
	return res, nil
}
