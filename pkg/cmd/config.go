// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/consensys/go-karr/pkg/karr"
)

// AnalysisConfig mirrors the engine budgets which can be set from a YAML
// configuration file.
type AnalysisConfig struct {
	// MaxRounds bounds chaotic iteration per saturation pass.
	MaxRounds uint `yaml:"max_rounds"`
	// SaturatorSteps bounds each Hilbert-basis saturation run.
	SaturatorSteps uint `yaml:"saturator_steps"`
}

// ReadConfig loads an analysis configuration from a YAML file, merging it
// over the default configuration.
func ReadConfig(filename string) (karr.Config, error) {
	cfg := karr.DefaultConfig()
	//
	if filename == "" {
		return cfg, nil
	}
	//
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", filename)
	}
	//
	var ac AnalysisConfig
	//
	if err := yaml.Unmarshal(bytes, &ac); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", filename)
	}
	//
	cfg.MaxRounds = ac.MaxRounds
	cfg.MaxSteps = ac.SaturatorSteps
	//
	return cfg, nil
}
