// Package farm runs the front-end over many source files concurrently. It
// implements the driver's parallel compiler contract; the front-end itself
// stays behind the FrontEnd interface.
package farm

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"flux/internal/driver"
)

// CompiledModule is one module produced by compiling a file.
type CompiledModule struct {
	Name   string
	Binary []byte
}

// FileOutput is everything the front-end reports for one file.
type FileOutput struct {
	Modules  []CompiledModule
	Warnings []driver.Note
	Errors   []driver.Note
}

// FrontEnd compiles a single file. Implementations must be safe for
// concurrent use.
type FrontEnd interface {
	CompileFile(ctx context.Context, path, dest string, extra map[string]string) (FileOutput, error)
}

// Farm fans the front-end out over a worker pool.
type Farm struct {
	front    FrontEnd
	root     string
	jobs     int
	progress driver.ProgressSink
}

// New builds a Farm. Files handed to Compile are root-relative; jobs <= 0
// means one worker per CPU.
func New(front FrontEnd, root string, jobs int, progress driver.ProgressSink) *Farm {
	return &Farm{front: front, root: root, jobs: jobs, progress: progress}
}

// Compile implements driver.Compiler. Module callbacks fire from worker
// goroutines as files finish; the order is unspecified.
func (f *Farm) Compile(ctx context.Context, files []string, opts driver.CompileOptions) driver.Result {
	if len(files) == 0 {
		return driver.Result{Ok: true}
	}
	jobs := f.jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]FileOutput, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, file := range files {
		g.Go(func(i int, file string) func() error {
			return func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				f.emit(file, driver.EventCompiling)
				if opts.LongCompilationThreshold > 0 && opts.EachLongCompilation != nil {
					slow := time.AfterFunc(opts.LongCompilationThreshold, func() {
						opts.EachLongCompilation(file)
					})
					defer slow.Stop()
				}

				out, err := f.front.CompileFile(gctx, f.absPath(file), opts.Dest, opts.Extra)
				if err != nil {
					results[i] = FileOutput{Errors: []driver.Note{{
						File:    f.absPath(file),
						Message: err.Error(),
					}}}
					f.emit(file, driver.EventFailed)
					return nil
				}
				results[i] = out

				if len(out.Errors) > 0 {
					f.emit(file, driver.EventFailed)
					return nil
				}
				if opts.EachModule != nil {
					for _, m := range out.Modules {
						opts.EachModule(file, m.Name, m.Binary)
					}
				}
				f.emit(file, driver.EventDone)
				return nil
			}
		}(i, file))
	}

	if err := g.Wait(); err != nil {
		return driver.Result{Errors: []driver.Note{{Message: err.Error()}}}
	}

	var res driver.Result
	for i := range results {
		res.Warnings = append(res.Warnings, results[i].Warnings...)
		res.Errors = append(res.Errors, results[i].Errors...)
	}
	res.Ok = len(res.Errors) == 0
	return res
}

func (f *Farm) absPath(file string) string {
	return filepath.Join(f.root, filepath.FromSlash(file))
}

func (f *Farm) emit(file string, status driver.EventStatus) {
	if f.progress != nil {
		f.progress.OnEvent(driver.Event{File: file, Status: status})
	}
}
