package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matt-g-everett/ledmotion/anim"
	"github.com/matt-g-everett/ledmotion/stream"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config and build the scene without playing it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		a.config.Redis.Addr = ""
		if err := a.setupEngine(anim.NewManualClock()); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, n := range a.nodes {
			fmt.Fprintln(out, describe(n))
		}
		for _, id := range a.cycleIDs() {
			if _, err := a.engine.Node(id); err != nil {
				return fmt.Errorf("cycle: %w", err)
			}
		}
		fmt.Fprintf(out, "%s is valid\n", a.config.Scene)
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the animation presets scenes can use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, name := range stream.Presets() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, presetsCmd)
}
