package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"anvil/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Current()
		asJSON, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		return info.Write(cmd.OutOrStdout())
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "print build information as JSON")
}
