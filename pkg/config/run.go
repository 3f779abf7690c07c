/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"

	"github.com/tickharness/tickharness/pkg/catalog"
	"github.com/tickharness/tickharness/pkg/report"
)

// EnvPrefix prefixes every environment variable of a RunConfig.
const EnvPrefix = "TICKHARNESS_"

// RunConfig selects what a single run does.  Values come from the
// environment first and are overridden by command line flags.
type RunConfig struct {
	TestName        string `env:"TEST_NAME"`         // run only this scene
	TestTags        string `env:"TEST_TAGS"`         // Tag1;Tag2, scenes having any of them
	TestPriority    string `env:"TEST_PRIORITY"`     // scenes of at least this priority
	ReportPath      string `env:"REPORT_PATH"`       // directory for reports
	JUnitReportPath string `env:"JUNIT_REPORT_PATH"` // explicit JUnit file
}

// RunConfigFromEnv reads the run configuration from environ, or from the
// process environment if environ is nil.
func RunConfigFromEnv(environ map[string]string) (RunConfig, error) {
	rc := RunConfig{}
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}

	if err := env.ParseWithOptions(&rc, opts); err != nil {
		return RunConfig{}, errors.WithMessage(err, "parse env")
	}
	return rc, nil
}

func (rc RunConfig) Filter() catalog.Filter {
	return catalog.NewFilter(rc.TestName, rc.TestTags, rc.TestPriority)
}

// Writers are the report writers the run adds to those of every suite.
func (rc RunConfig) Writers() []report.Writer {
	if rc.JUnitReportPath == "" {
		return nil
	}
	return []report.Writer{&report.JUnitWriter{Path: rc.JUnitReportPath}}
}
