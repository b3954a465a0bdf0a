// SPDX-License-Identifier: MIT

// Package cmd defines the command line surface: argument parsing only, no
// processing logic.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voicepipe/pkg/build"
)

// Options carries everything the CLI collected. Zero-valued fields mean
// "not given"; the configuration file supplies the rest.
type Options struct {
	ConfigPath    string
	Mode          string
	Frames        int
	Telemetry     bool
	TelemetryPort int
	Verbose       bool

	// Command selects what to run: "enhance" for offline file processing,
	// empty when only help/version output was requested.
	Command    string
	InputFile  string
	OutputFile string
}

// ParseArgs parses os.Args into Options. Flag defaults deliberately stay
// zero so main can tell a flag the user set apart from one they left alone.
func ParseArgs() (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time voice enhancement pipeline",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	enhanceCmd := &cobra.Command{
		Use:   "enhance <input.wav> <output.wav>",
		Short: "Enhance a WAV file offline through the full pipeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = "enhance"
			options.InputFile = args[0]
			options.OutputFile = args[1]
			if options.TelemetryPort < 0 || options.TelemetryPort > 65535 {
				return fmt.Errorf("invalid telemetry port %d", options.TelemetryPort)
			}
			return nil
		},
	}
	rootCmd.AddCommand(enhanceCmd)

	rootCmd.PersistentFlags().StringVarP(&options.ConfigPath, "config", "f", "",
		"Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&options.Mode, "mode", "m", "",
		"Processing mode: voice_chat, conference, broadcast, music, noise_reduction")
	rootCmd.PersistentFlags().IntVarP(&options.Frames, "frames-per-buffer", "b", 0,
		"Samples per processing buffer (power of two)")
	rootCmd.PersistentFlags().BoolVar(&options.Telemetry, "telemetry", false,
		"Serve metrics over websocket while processing")
	rootCmd.PersistentFlags().IntVar(&options.TelemetryPort, "telemetry-port", 0,
		"Port for the websocket metrics endpoint")
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}
