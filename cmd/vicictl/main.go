// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

// vicictl is a small demonstration client for charon's VICI socket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the application version string, set at build time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var socketPath string

var rootCmd = &cobra.Command{
	Use:     "vicictl",
	Short:   "vicictl talks to strongSwan's charon over its VICI socket",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("vicictl v%s (built: %s)\n", Version, BuildTime))
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "/var/run/charon.vici", "path to charon's VICI socket")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
