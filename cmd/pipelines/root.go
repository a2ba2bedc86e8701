// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianPipelines/pkg/logging"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/config"
	"github.com/spf13/cobra"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger *logging.Logger
}

// newRootCmd builds the command tree. A fresh tree per call keeps flag
// state out of package globals, so tests can execute it repeatedly.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pipelines",
		Short: "Analyze pipeline graphs for cycles",
		Long: `pipelines serves an HTTP API that accepts a pipeline of nodes and
edges and reports its size and whether it is a directed acyclic graph.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: auto, json, text")

	rootCmd.AddCommand(
		newServeCmd(a),
		newCheckCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// setup loads the configuration and installs the process logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	format := logging.Format(cfg.Logging.Format)
	switch format {
	case logging.FormatAuto, logging.FormatJSON, logging.FormatText:
	default:
		return fmt.Errorf("invalid --log-format %q: must be auto, json or text", cfg.Logging.Format)
	}

	a.cfg = cfg
	a.logger = logging.New(logging.Config{
		Level:   level,
		Format:  format,
		Service: cfg.Telemetry.ServiceName,
		LogDir:  cfg.Logging.Dir,
		Output:  cmd.ErrOrStderr(),
	})
	slog.SetDefault(a.logger.Slog())
	return nil
}
