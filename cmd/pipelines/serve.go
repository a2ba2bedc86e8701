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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/AleutianPipelines/services/pipelines"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host          string
		port          int
		allowedOrigin string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the pipelines HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("allowed-origin") {
				cfg.CORS.AllowedOrigin = allowedOrigin
			}

			svc, err := pipelines.New(cfg, a.logger.Slog())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return svc.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "interface to bind (default all)")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "port to listen on (0 picks a free port)")
	cmd.Flags().StringVar(&allowedOrigin, "allowed-origin", "", "front-end origin allowed by CORS")
	return cmd
}

// cmdContext returns the command's context, or Background when the command
// was executed without one.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
