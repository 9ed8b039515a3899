/*
 * config.go, part of chemlive.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package modifier

import (
	"fmt"

	"github.com/rmera/chemlive/opt"
)

// Kind identifies a run kind, as registered with the service.
type Kind string

const (
	MolecularDynamics Kind = "MolecularDynamics"
	GeomOpt           Kind = "GeomOpt"
)

// Model selects the backend that computes energies and forces for a run.
type Model string

const (
	ModelDefault Model = "default" //the backend given to the controller
	ModelLJ      Model = "LJ"      //a Lennard-Jones potential, for cheap runs
)

// Resource limits.
const (
	MaxDynamicsSteps = 1000
	MaxAtoms         = 1000
	DynamicsCeiling  = 1000
	OptCeiling       = 100
)

// RunConfig is the configuration of one run. Only the fields relevant to the Kind are used.
// Ceiling is the largest frame index a run can produce before it is stopped, whatever
// the other parameters. It is set by the operator, never by the user who requests the run,
// and it can only lower the fixed limits, DynamicsCeiling and OptCeiling.
type RunConfig struct {
	Kind           Kind     `json:"-" yaml:"-"`
	Model          Model    `json:"model" yaml:"model"`
	Temperature    float64  `json:"temperature,omitempty" yaml:"temperature,omitempty"` //K
	TimeStep       float64  `json:"time_step,omitempty" yaml:"time_step,omitempty"`     //fs
	NSteps         int      `json:"n_steps,omitempty" yaml:"n_steps,omitempty"`
	Friction       float64  `json:"friction,omitempty" yaml:"friction,omitempty"`
	Optimizer      opt.Kind `json:"optimizer,omitempty" yaml:"optimizer,omitempty"`
	FMax           float64  `json:"fmax,omitempty" yaml:"fmax,omitempty"` //eV/A
	UploadInterval int      `json:"upload_interval" yaml:"upload_interval"`
	Seed           int64    `json:"seed,omitempty" yaml:"seed,omitempty"` //0 means a random seed
	Ceiling        int      `json:"-" yaml:"ceiling"`
}

// DefaultDynamics returns the default configuration for a Langevin dynamics run.
func DefaultDynamics() RunConfig {
	return RunConfig{
		Kind:           MolecularDynamics,
		Model:          ModelDefault,
		Temperature:    300,
		TimeStep:       0.5,
		NSteps:         100,
		Friction:       0.002,
		UploadInterval: 10,
		Ceiling:        DynamicsCeiling,
	}
}

// DefaultOptimization returns the default configuration for a geometry optimization.
func DefaultOptimization() RunConfig {
	return RunConfig{
		Kind:           GeomOpt,
		Model:          ModelDefault,
		Optimizer:      opt.LBFGS,
		FMax:           0.05,
		UploadInterval: 10,
		Ceiling:        OptCeiling,
	}
}

// Defaults returns the default configuration for kind, and false if the kind is unknown.
func Defaults(kind Kind) (RunConfig, bool) {
	switch kind {
	case MolecularDynamics:
		return DefaultDynamics(), true
	case GeomOpt:
		return DefaultOptimization(), true
	}
	return RunConfig{}, false
}

// Validate checks the parameters that don't depend on the structure.
// The returned error, if any, is a *ConfigurationError.
func (c RunConfig) Validate() error {
	if c.Model != ModelDefault && c.Model != ModelLJ {
		return &ConfigurationError{Field: "model", Value: c.Model, Reason: fmt.Sprintf("must be %q or %q", ModelDefault, ModelLJ)}
	}
	if c.UploadInterval < 1 {
		return &ConfigurationError{Field: "upload_interval", Value: c.UploadInterval, Reason: "must be at least 1"}
	}
	if c.Ceiling < 1 {
		return &ConfigurationError{Field: "ceiling", Value: c.Ceiling, Reason: "must be at least 1"}
	}
	switch c.Kind {
	case MolecularDynamics:
		if c.Ceiling > DynamicsCeiling {
			return &ConfigurationError{Field: "ceiling", Value: c.Ceiling, Reason: fmt.Sprintf("must not exceed %d", DynamicsCeiling)}
		}
		if c.NSteps > MaxDynamicsSteps {
			return &ConfigurationError{Field: "n_steps", Value: c.NSteps, Reason: fmt.Sprintf("must not exceed %d", MaxDynamicsSteps)}
		}
		if c.NSteps < 0 {
			return &ConfigurationError{Field: "n_steps", Value: c.NSteps, Reason: "must not be negative"}
		}
		if c.TimeStep <= 0 {
			return &ConfigurationError{Field: "time_step", Value: c.TimeStep, Reason: "must be positive"}
		}
		if c.Temperature < 0 {
			return &ConfigurationError{Field: "temperature", Value: c.Temperature, Reason: "must not be negative"}
		}
		if c.Friction < 0 {
			return &ConfigurationError{Field: "friction", Value: c.Friction, Reason: "must not be negative"}
		}
	case GeomOpt:
		if c.Ceiling > OptCeiling {
			return &ConfigurationError{Field: "ceiling", Value: c.Ceiling, Reason: fmt.Sprintf("must not exceed %d", OptCeiling)}
		}
		if !c.Optimizer.Valid() {
			return &ConfigurationError{Field: "optimizer", Value: c.Optimizer, Reason: fmt.Sprintf("must be one of %s, %s, %s", opt.LBFGS, opt.FIRE, opt.BFGS)}
		}
		if c.FMax <= 0 {
			return &ConfigurationError{Field: "fmax", Value: c.FMax, Reason: "must be positive"}
		}
	default:
		return &ConfigurationError{Field: "kind", Value: c.Kind, Reason: "unknown run kind"}
	}
	return nil
}

// label is the bookmark set at the start of a run of the given kind.
func (k Kind) label() string {
	switch k {
	case MolecularDynamics:
		return "Molecular dynamics"
	case GeomOpt:
		return "Geometric optimization"
	}
	return string(k)
}
