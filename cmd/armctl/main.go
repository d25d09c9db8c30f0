package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/armctl/internal/log"
	"github.com/gwillem/armctl/pkg/robot"
)

type Options struct {
	Config   string `short:"c" long:"config" description:"Configuration file (default: armctl.json)"`
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`

	Setup SetupCommand `command:"setup" description:"Scan for arms, assign roles and calibrate them"`
	Run   RunCommand   `command:"run" description:"Run one behavior with a live monitor"`
	Serve ServeCommand `command:"serve" description:"Serve the behaviors over HTTP"`
	Info  InfoCommand  `command:"info" description:"List connected arms and their joint angles"`
}

var opts = Options{Config: robot.DefaultConfigFile}
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "armctl - closed-loop controller for a board-game manipulator"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration, exiting when the arms
// have not been set up yet.
func loadConfig() *robot.Config {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No configuration found in %s. Run 'armctl setup' first.\n", opts.Config)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration in %s:\n%v\n", opts.Config, err)
		os.Exit(1)
	}
	for _, arm := range []robot.ArmConfig{cfg.Player, cfg.Spectator} {
		if arm.Port != "" && !arm.Calibration.Complete() {
			fmt.Fprintf(os.Stderr, "The %s arm is not calibrated. Run 'armctl setup' first.\n", arm.Limb)
			os.Exit(1)
		}
	}
	log.L().Debug("config loaded", "path", opts.Config)
	return cfg
}
