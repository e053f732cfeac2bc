// Package pipeline runs the check command: it loads manifests, applies
// their declarations to one shared engine and evaluates their queries in
// parallel, one compilation unit per file.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"anvil/internal/diag"
	"anvil/internal/engine"
	"anvil/internal/hostmod"
	"anvil/internal/manifest"
	"anvil/internal/observ"
	"anvil/internal/source"
	"anvil/internal/trace"
)

// DefaultMaxDiagnostics caps each file's diagnostics when a request
// leaves MaxDiagnostics unset.
const DefaultMaxDiagnostics = 200

// Request describes a check run.
type Request struct {
	Files          []string
	Modules        []string // host modules installed before any file
	Jobs           int
	MaxDiagnostics int
	EngineOptions  []engine.Option
	Progress       ProgressSink
	// Timer, when set, receives one phase per stage and per queried file.
	Timer *observ.Timer
}

// FileResult is the outcome for one manifest.
type FileResult struct {
	Path        string
	Manifest    *manifest.Manifest
	Diagnostics *diag.Bag
	Queries     []manifest.Result
	// Err is the fatal error that stopped the file's unit, if any.
	Err error

	unit *engine.Unit
}

// Failed reports whether the file has errors or failing queries.
func (r *FileResult) Failed() bool {
	if r.Err != nil || (r.Diagnostics != nil && r.Diagnostics.HasErrors()) {
		return true
	}
	for _, q := range r.Queries {
		if !q.Pass {
			return true
		}
	}
	return false
}

// Result is the outcome of Check.
type Result struct {
	Engine  *engine.Engine
	Files   []*FileResult
	Timings Timings
}

// Failed reports whether any file failed.
func (r *Result) Failed() bool {
	for _, f := range r.Files {
		if f.Failed() {
			return true
		}
	}
	return false
}

// Fatal returns the first fatal unit error, if any.
func (r *Result) Fatal() error {
	for _, f := range r.Files {
		if f.Err != nil {
			return f.Err
		}
	}
	return nil
}

// Check runs the pipeline. The returned error covers cancellation and
// host module failures; problems inside files are in the file results.
func Check(ctx context.Context, req Request) (Result, error) {
	eng := engine.NewEngine(req.EngineOptions...)
	res := Result{Engine: eng, Files: make([]*FileResult, len(req.Files))}
	for i, path := range req.Files {
		res.Files[i] = &FileResult{Path: path}
		emit(req.Progress, Event{File: path, Stage: StageLoad, Status: StatusQueued})
	}

	pass := trace.Begin(eng.Tracer(), trace.ScopeDriver, "check", 0).
		WithExtra("files", strconv.Itoa(len(req.Files)))
	defer pass.End("")

	for _, name := range req.Modules {
		mod, ok := hostmod.ByName(name)
		if !ok {
			return res, fmt.Errorf("unknown host module %q", name)
		}
		if err := eng.Install(mod); err != nil {
			return res, err
		}
	}

	stages := []struct {
		stage Stage
		run   func(context.Context, Request, *Result) error
	}{
		{StageLoad, load},
		{StageRegister, register},
		{StageQuery, query},
	}
	for _, s := range stages {
		span := trace.Begin(eng.Tracer(), trace.ScopePass, string(s.stage), 0)
		phase := beginPhase(req.Timer, string(s.stage))
		start := time.Now()
		err := s.run(ctx, req, &res)
		res.Timings.Set(s.stage, time.Since(start))
		endPhase(req.Timer, phase, "")
		span.End("")
		if err != nil {
			return res, err
		}
	}
	for _, f := range res.Files {
		f.Err = f.unit.Err()
		f.unit.Close()
	}
	return res, nil
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}

func jobs(n, files int) int {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return max(1, min(n, files))
}

// load decodes every file in parallel. A file that fails to load keeps an
// empty manifest and carries the error as a diagnostic.
func load(ctx context.Context, req Request, res *Result) error {
	limit := req.MaxDiagnostics
	if limit <= 0 {
		limit = DefaultMaxDiagnostics
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs(req.Jobs, len(res.Files)))
	for _, f := range res.Files {
		f.unit = res.Engine.NewUnit(f.Path, limit)
		f.Diagnostics = f.unit.Diagnostics()
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			emit(req.Progress, Event{File: f.Path, Stage: StageLoad, Status: StatusWorking})
			m, err := manifest.Load(f.Path)
			if err != nil {
				f.unit.Report(err, source.NoSpan)
				f.Manifest = &manifest.Manifest{Path: f.Path}
				emit(req.Progress, Event{File: f.Path, Stage: StageLoad, Status: StatusError, Err: err, Elapsed: time.Since(start)})
				return nil
			}
			f.Manifest = m
			emit(req.Progress, Event{File: f.Path, Stage: StageLoad, Status: StatusDone, Elapsed: time.Since(start)})
			return nil
		})
	}
	return g.Wait()
}

// register applies declarations in file order so later files see earlier
// ones.
func register(ctx context.Context, req Request, res *Result) error {
	for _, f := range res.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		emit(req.Progress, Event{File: f.Path, Stage: StageRegister, Status: StatusWorking})
		manifest.Apply(f.unit, f.Manifest)
		emit(req.Progress, Event{File: f.Path, Stage: StageRegister, Status: statusOf(f.unit), Err: f.unit.Err(), Elapsed: time.Since(start)})
	}
	return nil
}

// query evaluates each file's queries in its own unit.
func query(ctx context.Context, req Request, res *Result) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs(req.Jobs, len(res.Files)))
	for _, f := range res.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			phase := beginPhase(req.Timer, "query "+f.Path)
			emit(req.Progress, Event{File: f.Path, Stage: StageQuery, Status: StatusWorking})
			f.Queries = manifest.Run(f.unit, f.Manifest)
			endPhase(req.Timer, phase, fmt.Sprintf("%d queries", len(f.Queries)))
			emit(req.Progress, Event{File: f.Path, Stage: StageQuery, Status: statusOf(f.unit), Err: f.unit.Err(), Elapsed: time.Since(start)})
			return nil
		})
	}
	return g.Wait()
}

func beginPhase(t *observ.Timer, name string) int {
	if t == nil {
		return -1
	}
	return t.Begin(name)
}

func endPhase(t *observ.Timer, idx int, note string) {
	if t != nil {
		t.End(idx, note)
	}
}

func statusOf(u *engine.Unit) Status {
	if u.Stopped() || u.Diagnostics().HasErrors() {
		return StatusError
	}
	return StatusDone
}
