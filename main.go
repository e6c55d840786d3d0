/*
Reina traces a small procedural scene with Vulkan ray tracing and presents
the result through a fullscreen composite pass.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/reina/engine"
	"github.com/spaghettifunk/reina/engine/core"
)

func main() {
	configPath := flag.String("config", "reina.toml", "path to the TOML configuration file")
	validation := flag.Bool("validation", false, "enable the Vulkan validation layer")
	frames := flag.Uint64("frames", 0, "stop after this many frames (0 runs until the window closes)")
	flag.Parse()

	if err := run(*configPath, *validation, *frames); err != nil {
		core.LogError("%+v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, validation bool, frames uint64) error {
	config, err := engine.LoadApplicationConfig(configPath)
	if err != nil {
		return err
	}
	if validation {
		config.Renderer.Validation = true
	}
	if frames > 0 {
		config.Renderer.MaxFrames = frames
	}

	e, err := engine.New(config)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		return err
	}
	defer e.Shutdown()

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		core.LogInfo("received %s, closing", sig)
		e.RequestClose()
	}()

	return e.Run()
}
