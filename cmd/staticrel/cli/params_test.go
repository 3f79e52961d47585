// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

type configFlags struct {
	path string
}

func (flags *configFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&flags.path, "config", "c", "", "definition file")
}

func TestBindFlags(t *testing.T) {
	var params struct {
		JSONOutput
		Config     configFlags
		Dir        string        `flag:"dir" desc:"results directory" default:"results"`
		Force      bool          `flag:"force,f" desc:"overwrite"`
		Jobs       int           `flag:"jobs" default:"8"`
		Timeout    time.Duration `flag:"timeout" default:"2h"`
		Toolchains []string      `flag:"toolchain" desc:"toolchain ids"`
		Untagged   string
	}

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&params, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if params.Dir != "results" || params.Jobs != 8 || params.Timeout != 2*time.Hour {
		t.Errorf("defaults not applied: %+v", params)
	}

	err := flagSet.Parse([]string{
		"--json", "-f", "-c", "staticrel.yaml",
		"--jobs", "2", "--timeout", "90m",
		"--toolchain", "gcc,clang",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !params.OutputJSON || !params.Force || params.Config.path != "staticrel.yaml" {
		t.Errorf("params = %+v", params)
	}
	if params.Jobs != 2 || params.Timeout != 90*time.Minute {
		t.Errorf("jobs = %d, timeout = %v", params.Jobs, params.Timeout)
	}
	if strings.Join(params.Toolchains, " ") != "gcc clang" {
		t.Errorf("toolchains = %v", params.Toolchains)
	}
	if flagSet.Lookup("untagged") != nil {
		t.Error("untagged field was bound")
	}
}

func TestBindFlags_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params any
		want   string
	}{
		{"not a pointer", struct{}{}, "pointer to a struct"},
		{"bad default", &struct {
			Jobs int `flag:"jobs" default:"many"`
		}{}, "default for --jobs"},
		{"unsupported type", &struct {
			Ratio float32 `flag:"ratio"`
		}{}, "unsupported type"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := BindFlags(test.params, pflag.NewFlagSet("test", pflag.ContinueOnError))
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("err = %v, want it to contain %q", err, test.want)
			}
		})
	}
}
