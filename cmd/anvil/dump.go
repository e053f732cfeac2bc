package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"anvil/internal/observ"
	"anvil/internal/pipeline"
	"anvil/internal/snapshot"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] [manifest|dir]...",
	Short: "Print the catalog built from host modules and manifests",
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().String("format", "json", "output format (json|msgpack)")
	dumpCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
}

func runDump(cmd *cobra.Command, args []string) error {
	counters := observ.DefaultCounters()
	cleanup, err := setupTracing(cmd, counters)
	if err != nil {
		return err
	}
	crashed := false
	defer func() { cleanup(crashed) }()

	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := snapshot.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if format == snapshot.FormatMsgpack && output == "" && isTerminal(stdoutFile(cmd)) {
		return fmt.Errorf("refusing to write msgpack to a terminal; use --output")
	}

	var files []string
	if len(args) > 0 {
		if files, err = collectFiles(args); err != nil {
			return err
		}
	}
	req, err := checkRequest(cmd, files, counters)
	if err != nil {
		return err
	}
	res, err := pipeline.Check(cmd.Context(), req)
	if err != nil {
		return err
	}
	crashed = res.Fatal() != nil
	for _, f := range res.Files {
		if err := printFile(cmd.ErrOrStderr(), f, false, false); err != nil {
			return err
		}
	}

	snap := snapshot.Take(res.Engine.Catalog())
	if output != "" {
		return snapshot.WriteFile(output, snap, format)
	}
	return snapshot.Encode(cmd.OutOrStdout(), snap, format)
}
