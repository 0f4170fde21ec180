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
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/strongswan/govici"
)

var monitorEvents []string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Subscribe to VICI events and chart their arrival rate",
	Long: `Registers for one or more VICI event names and renders a live
chart of how many events per second arrive, similar to charon's own
"swanctl --log" but rate-plotted instead of printed line by line.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().StringSliceVar(&monitorEvents, "event", []string{"ike-updown", "child-updown"}, "event names to subscribe to")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	c, err := govici.Connect(socketPath, govici.ConnectOptions{})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer c.Close()

	for _, name := range monitorEvents {
		if err := c.Register(name); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}

	const window = 5 * time.Second
	const points = 40

	rates := make([]float64, 0, points)
	var total uint64
	bucket := 0

	tick := time.NewTicker(window)
	defer tick.Stop()

	errCh := make(chan error, 1)
	countCh := make(chan struct{})
	go func() {
		for {
			if _, err := c.ReadEvent(); err != nil {
				errCh <- err
				return
			}
			countCh <- struct{}{}
		}
	}()

	for {
		select {
		case err := <-errCh:
			return fmt.Errorf("read event: %w", err)
		case <-countCh:
			bucket++
			total++
		case <-tick.C:
			rate := float64(bucket) / window.Seconds()
			rates = append(rates, rate)
			if len(rates) > points {
				rates = rates[len(rates)-points:]
			}
			bucket = 0

			cmd.Println("\033[H\033[2J")
			cmd.Printf("vici events: %.1f/sec (%s total)\n\n", rate, humanize.Comma(int64(total)))
			if len(rates) > 1 {
				graph := asciigraph.Plot(rates,
					asciigraph.Height(8),
					asciigraph.Width(60),
					asciigraph.Caption("events/sec"))
				cmd.Println(graph)
			} else {
				cmd.Println("collecting data...")
			}
		}
	}
}
