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

package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/strongswan/govici"
)

var callCmd = &cobra.Command{
	Use:   "call <command> [key=value...]",
	Short: "Issue a single VICI command and print the response",
	Long: `Issues a single named VICI command, optionally with flat key/value
arguments, and prints charon's response.

Examples:
  vicictl call version
  vicictl call get-conns
  vicictl call initiate child=net-a ike=gw-a`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	command := args[0]

	req := govici.NewMessage()
	for _, kv := range args[1:] {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				req.AddKVString(kv[:i], kv[i+1:])
				break
			}
		}
	}

	c, err := govici.Connect(socketPath, govici.ConnectOptions{})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer c.Close()

	started := time.Now()
	resp, err := c.Call(command, req)
	if err != nil {
		return fmt.Errorf("call %s: %w", command, err)
	}
	elapsed := time.Since(started)

	cmd.Printf("%s", resp.String())
	cmd.Printf("(%s, %s)\n", humanize.Time(started), elapsed)
	return nil
}
