// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildjob

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bureau-foundation/staticrel/lib/command"
)

// cmakeGracePeriod is how long cmake (and the build tool under it) gets
// to exit after SIGTERM when a job is cancelled.
const cmakeGracePeriod = 10 * time.Second

// llvmTargets maps architecture names to LLVM backend target names.
var llvmTargets = map[string]string{
	"x86_64":  "X86",
	"amd64":   "X86",
	"aarch64": "AArch64",
	"arm64":   "AArch64",
	"riscv64": "RISCV",
	"ppc64le": "PowerPC",
	"s390x":   "SystemZ",
}

// CMake drives a CMake project. Option flags use the LLVM cache
// variable names; other CMake projects ignore the ones they do not
// define.
type CMake struct {
	// Path is the cmake binary. Defaults to "cmake" on PATH.
	Path string
}

func (backend CMake) binary() string {
	if backend.Path == "" {
		return "cmake"
	}
	return backend.Path
}

// ConfigureArgs returns the cmake configure arguments for a tree.
func (backend CMake) ConfigureArgs(sourceTree, buildDir, installPrefix string, options Options) []string {
	source := sourceTree
	if options.SourceSubdir != "" {
		source = filepath.Join(sourceTree, options.SourceSubdir)
	}
	args := []string{"-S", source, "-B", buildDir}
	if options.Generator != "" {
		args = append(args, "-G", options.Generator)
	}

	buildType := options.BuildType
	if buildType == "" {
		buildType = "Release"
	}
	args = append(args,
		"-DCMAKE_BUILD_TYPE="+buildType,
		"-DCMAKE_INSTALL_PREFIX="+installPrefix,
	)
	if options.Component != "" {
		args = append(args, "-DLLVM_ENABLE_PROJECTS="+options.Component)
	}
	if target, ok := llvmTargets[options.TargetArch]; ok {
		args = append(args, "-DLLVM_TARGETS_TO_BUILD="+target)
	} else if options.TargetArch != "" {
		args = append(args, "-DLLVM_TARGETS_TO_BUILD="+options.TargetArch)
	}
	if options.Static {
		args = append(args,
			"-DBUILD_SHARED_LIBS=OFF",
			"-DLLVM_BUILD_LLVM_DYLIB=OFF",
			"-DLLVM_LINK_LLVM_DYLIB=OFF",
			"-DLLVM_ENABLE_PIC="+onOff(options.PIC),
		)
	}
	args = append(args, "-DCMAKE_POSITION_INDEPENDENT_CODE="+onOff(options.PIC))
	if options.CompressDebugSections {
		args = append(args, "-DLLVM_USE_SPLIT_DWARF=OFF",
			"-DCMAKE_C_FLAGS=-gz", "-DCMAKE_CXX_FLAGS=-gz")
	}
	return append(args, options.ExtraArgs...)
}

// Configure runs the cmake configure step.
func (backend CMake) Configure(ctx context.Context, sourceTree, buildDir, installPrefix string, options BackendOptions) error {
	return backend.run(ctx, options, backend.ConfigureArgs(sourceTree, buildDir, installPrefix, options.Options))
}

// CompileAndInstall runs "cmake --build" and then "cmake --install".
func (backend CMake) CompileAndInstall(ctx context.Context, buildDir, installPrefix string, options BackendOptions) error {
	build := []string{"--build", buildDir}
	if options.Jobs > 0 {
		build = append(build, "--parallel", strconv.Itoa(options.Jobs))
	}
	if err := backend.run(ctx, options, build); err != nil {
		return err
	}
	return backend.run(ctx, options, []string{"--install", buildDir, "--prefix", installPrefix})
}

func (backend CMake) run(ctx context.Context, options BackendOptions, args []string) error {
	return command.Run(ctx, command.Spec{
		Path:        backend.binary(),
		Args:        args,
		Env:         options.Env,
		Stdout:      options.Log,
		Stderr:      options.Log,
		GracePeriod: cmakeGracePeriod,
	})
}

func onOff(value bool) string {
	if value {
		return "ON"
	}
	return "OFF"
}
