package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"followup/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var network bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check files, credentials and services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Config", colorize) {
				fmt.Fprintln(out, line)
			}
			source := ctx.configPath
			if source == "" {
				source = "defaults"
			}
			fmt.Fprintln(out, renderStatusLine("Config file", statusInfo, source, colorize))
			fmt.Fprintln(out, renderStatusLine("Owner", statusInfo, cfg.Owner.Email+" ("+cfg.Owner.InternalDomain+")", colorize))
			fmt.Fprintln(out, renderStatusLine("Gmail drafts", statusInfo, yesNo(cfg.Gmail.Enabled), colorize))
			fmt.Fprintln(out, renderStatusLine("History", statusInfo, yesNo(cfg.History.Enabled), colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Network: network})
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			if failed := preflight.Failed(results); failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&network, "network", false, "Also verify the Granola token and LLM key against their APIs")
	return cmd
}
