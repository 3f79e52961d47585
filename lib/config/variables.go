// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/bureau-foundation/staticrel/lib/toolchain"
)

// variablePattern matches ${NAME} references. Only the braced form is
// recognized; bare $NAME is left for the shell.
var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

var variableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// BuiltinVariables are the names every job defines. User variables may
// not redefine them.
var BuiltinVariables = []string{"VERSION", "REF", "TOOLCHAIN", "TARGET_ARCH", "PLATFORM", "OS"}

// JobVariables returns the variables for one job: user variables
// overlaid with the built-ins.
func (c *Config) JobVariables(version, ref, toolchainID string) map[string]string {
	variables := make(map[string]string, len(c.Variables)+len(BuiltinVariables))
	maps.Copy(variables, c.Variables)
	variables["VERSION"] = version
	variables["REF"] = ref
	variables["TOOLCHAIN"] = toolchainID
	variables["TARGET_ARCH"] = c.Build.TargetArch
	variables["PLATFORM"] = c.Package.Platform
	variables["OS"] = c.Package.OS
	return variables
}

// Expand replaces ${NAME} references in input with values from
// variables. Every reference without a value is reported in one error.
func Expand(input string, variables map[string]string) (string, error) {
	var unresolved []string
	result := variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[2 : len(match)-1]
		if value, exists := variables[name]; exists {
			return value
		}
		unresolved = append(unresolved, name)
		return match
	})
	if len(unresolved) > 0 {
		return "", fmt.Errorf("unresolved pipeline variables: %s", strings.Join(unresolved, ", "))
	}
	return result, nil
}

// ExpandArgs expands every element of args. The input is not modified.
func ExpandArgs(args []string, variables map[string]string) ([]string, error) {
	if args == nil {
		return nil, nil
	}
	expanded := make([]string, len(args))
	for index, arg := range args {
		value, err := Expand(arg, variables)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", index, err)
		}
		expanded[index] = value
	}
	return expanded, nil
}

// ExpandToolchain returns a copy of spec with variables expanded in the
// compiler names, env values, and pre-step commands. The ID is never
// expanded: it names the job before any variables exist.
func ExpandToolchain(spec toolchain.Spec, variables map[string]string) (toolchain.Spec, error) {
	var err error
	if spec.CC, err = Expand(spec.CC, variables); err != nil {
		return toolchain.Spec{}, fmt.Errorf("cc: %w", err)
	}
	if spec.CXX, err = Expand(spec.CXX, variables); err != nil {
		return toolchain.Spec{}, fmt.Errorf("cxx: %w", err)
	}

	if spec.Env != nil {
		env := make(map[string]string, len(spec.Env))
		for name, value := range spec.Env {
			if env[name], err = Expand(value, variables); err != nil {
				return toolchain.Spec{}, fmt.Errorf("env[%s]: %w", name, err)
			}
		}
		spec.Env = env
	}

	if spec.PreSteps != nil {
		steps := make([]toolchain.PreStep, len(spec.PreSteps))
		for index, step := range spec.PreSteps {
			if step.Run, err = Expand(step.Run, variables); err != nil {
				return toolchain.Spec{}, fmt.Errorf("pre_steps[%d] run: %w", index, err)
			}
			if step.Check, err = Expand(step.Check, variables); err != nil {
				return toolchain.Spec{}, fmt.Errorf("pre_steps[%d] check: %w", index, err)
			}
			steps[index] = step
		}
		spec.PreSteps = steps
	}
	return spec, nil
}
