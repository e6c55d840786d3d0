//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/pkg/errors"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// Ray tracing stages need SPIR-V 1.4, hence the Vulkan 1.2 target.
var shaderSources = []string{
	"raytrace.rgen",
	"raytrace.rmiss",
	"raytrace.rchit",
	"composite.vert",
	"composite.frag",
}

// Compiles every GLSL shader in assets/shaders to <name>.spv with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and then builds the binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	// The Vulkan backend binds the ray tracing entry points through cgo.
	if _, err := executeCmd("go", withArgs("build", "-o", "reina", "."), withEnv("CGO_ENABLED=1"), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	for _, src := range shaderSources {
		if _, err := os.Stat(filepath.Join(shaderDir, src)); err != nil {
			return errors.Wrapf(err, "missing shader source %s", src)
		}
		args := withArgs("--target-env=vulkan1.2", "-O", src, "-o", src+".spv")
		if _, err := executeCmd("glslc", args, withDir(shaderDir), withStream()); err != nil {
			return err
		}
	}
	return nil
}
