//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the engine with reina.toml.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "reina.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the engine for a fixed number of frames with validation layers on.
func (Run) Smoke() error {
	if err := buildShaders(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "reina.toml", "-validation", "-frames", "120"), withStream()); err != nil {
		return err
	}
	return nil
}
