package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"anvil/internal/prof"
)

var profSession *prof.Session

// setupProfiling starts the profilers named by the persistent flags. They
// are stopped by stopProfiling once the command returns.
func setupProfiling(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	var cfg prof.Config
	for _, f := range []struct {
		name string
		dst  *string
	}{{"cpu-profile", &cfg.CPU}, {"mem-profile", &cfg.Mem}, {"runtime-trace", &cfg.Trace}} {
		v, err := flags.GetString(f.name)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", f.name, err)
		}
		*f.dst = v
	}
	if cfg == (prof.Config{}) {
		return nil
	}
	s, err := prof.Start(cfg)
	if err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}
	profSession = s
	return nil
}

func stopProfiling() error {
	return profSession.Stop()
}
