package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"anvil/internal/diag"
	"anvil/internal/diagfmt"
	"anvil/internal/engine"
	"anvil/internal/observ"
	"anvil/internal/pipeline"
	"anvil/internal/trace"
	"anvil/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <manifest|dir>...",
	Short: "Load manifests and evaluate their queries",
	Long: `check applies the declarations of every manifest to one shared catalog, in
argument order, then evaluates each manifest's queries. Directories expand to
the *.toml files they contain.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("ui", "off", "progress UI (auto|on|off)")
	checkCmd.Flags().Bool("queries", false, "print every query result, not only failures")
	checkCmd.Flags().Bool("notes", true, "print diagnostic notes")
	checkCmd.Flags().String("format", "short", "report format (short|json)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	counters := observ.DefaultCounters()
	cleanup, err := setupTracing(cmd, counters)
	if err != nil {
		return err
	}
	crashed := false
	defer func() { cleanup(crashed) }()

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	req, err := checkRequest(cmd, files, counters)
	if err != nil {
		return err
	}

	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	uiValue, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "short" && format != "json" {
		return fmt.Errorf("invalid --format value %q (expected short|json)", format)
	}
	if format == "json" {
		quiet = true
	}
	if showTimings {
		req.Timer = observ.NewTimer()
	}

	var res pipeline.Result
	if !quiet && shouldUseTUI(mode) {
		res, err = runCheckWithUI(cmd.Context(), "anvil check", files, req)
	} else {
		res, err = pipeline.Check(cmd.Context(), req)
	}
	if err != nil {
		return err
	}
	crashed = res.Fatal() != nil

	out := cmd.OutOrStdout()
	allQueries, _ := cmd.Flags().GetBool("queries")
	notes, _ := cmd.Flags().GetBool("notes")
	if format == "json" {
		if err := writeJSONReport(out, &res, notes); err != nil {
			return err
		}
		if res.Failed() {
			return fmt.Errorf("check failed")
		}
		return nil
	}
	for _, f := range res.Files {
		if err := printFile(out, f, allQueries, notes); err != nil {
			return err
		}
	}
	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
		fmt.Fprint(cmd.ErrOrStderr(), req.Timer.Summary())
		for _, c := range counters.Snapshot() {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %-24s %d\n", c.Name, c.Value)
		}
	}
	if !quiet {
		printSummary(out, &res)
	}
	if res.Failed() {
		return fmt.Errorf("check failed")
	}
	return nil
}

func checkRequest(cmd *cobra.Command, files []string, counters *observ.Counters) (pipeline.Request, error) {
	flags := cmd.Root().PersistentFlags()
	modules, err := flags.GetStringSlice("modules")
	if err != nil {
		return pipeline.Request{}, err
	}
	maxDiagnostics, err := flags.GetInt("max-diagnostics")
	if err != nil {
		return pipeline.Request{}, err
	}
	jobs, err := flags.GetInt("jobs")
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{
		Files:          files,
		Modules:        modules,
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		EngineOptions: []engine.Option{
			engine.WithTracer(trace.FromContext(cmd.Context())),
			engine.WithCounters(counters),
		},
	}, nil
}

type checkOutcome struct {
	result pipeline.Result
	err    error
}

func runCheckWithUI(ctx context.Context, title string, files []string, req pipeline.Request) (pipeline.Result, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		req.Progress = pipeline.ChannelSink{Ch: events}
		res, err := pipeline.Check(ctx, req)
		outcomeCh <- checkOutcome{result: res, err: err}
		close(events)
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, files, events), tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

func printFile(out io.Writer, f *pipeline.FileResult, allQueries, notes bool) error {
	if f.Err != nil {
		if _, err := fmt.Fprintf(out, "%s: %s %v\n", f.Path, color.RedString("fatal:"), f.Err); err != nil {
			return err
		}
	}
	if items := f.Diagnostics.Items(); len(items) > 0 {
		if _, err := fmt.Fprintf(out, "%s:\n%s\n", f.Path, indent(diag.FormatShort(items, nil, notes))); err != nil {
			return err
		}
	}
	if allQueries {
		return ui.WriteQueryTable(out, f.Path, f.Queries, !color.NoColor)
	}
	return nil
}

func writeJSONReport(out io.Writer, res *pipeline.Result, notes bool) error {
	files := make([]diagfmt.File, len(res.Files))
	for i, f := range res.Files {
		files[i] = diagfmt.File{Path: f.Path, Fatal: f.Err, Diagnostics: f.Diagnostics, Queries: f.Queries}
	}
	return diagfmt.JSON(out, files, nil, diagfmt.Opts{IncludeNotes: notes})
}

func printSummary(out io.Writer, res *pipeline.Result) {
	var queries, failed, diags int
	for _, f := range res.Files {
		queries += len(f.Queries)
		diags += f.Diagnostics.Len()
		for _, q := range f.Queries {
			if !q.Pass {
				failed++
			}
		}
	}
	status := color.GreenString("ok")
	if res.Failed() {
		status = color.RedString("FAILED")
	}
	fmt.Fprintf(out, "%s: %d files, %d queries, %d failed, %d diagnostics\n",
		status, len(res.Files), queries, failed, diags)
}

func indent(text string) string {
	if text == "" {
		return text
	}
	out := make([]byte, 0, len(text)+16)
	out = append(out, "  "...)
	for i := 0; i < len(text); i++ {
		out = append(out, text[i])
		if text[i] == '\n' {
			out = append(out, "  "...)
		}
	}
	return string(out)
}
