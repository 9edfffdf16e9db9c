// Package pipeline runs a batch check: every file crossed with every selected
// provider, drained by a fixed pool of workers.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"

	"rcheck/internal/logger"
	"rcheck/internal/media"
	"rcheck/internal/progress"
	"rcheck/internal/recognition"
	"rcheck/internal/segment"
)

// Preparer reads what the pipeline needs to know about a source file and
// produces the sample sent to a provider.
type Preparer interface {
	MeasureDuration(ctx context.Context, path string) float64
	ReadTags(path string) (title, artist string)
	Prepare(ctx context.Context, path string, spec segment.TrimSpec, total float64) segment.Segment
}

// Task is one (file, provider) unit of work.
type Task struct {
	Index    int
	Path     string
	Provider recognition.Provider
}

// Outcome is the result of one Task.
type Outcome struct {
	Index    int
	File     string // base name
	Path     string
	Provider recognition.Kind
	Result   recognition.Result

	// Embedded tags of the source file, empty when it has none.
	Title  string
	Artist string
}

// Tags renders the embedded tags as "Artist - Title", or whichever of the
// two is present.
func (o Outcome) Tags() string {
	switch {
	case o.Artist != "" && o.Title != "":
		return o.Artist + " - " + o.Title
	case o.Title != "":
		return o.Title
	default:
		return o.Artist
	}
}

// Hooks observe a run. OnTaskStart runs on the worker goroutine before the
// task is processed. OnResult runs once per outcome, serialized, in
// emission order.
type Hooks struct {
	OnTaskStart func(worker int, t Task)
	OnResult    func(o Outcome)
}

// Pipeline holds the shared state of one run.
type Pipeline struct {
	Preparer  Preparer
	Providers []recognition.Provider
	Reporter  *progress.Reporter
	Logger    *logger.Logger
	Workers   int
	Trim      segment.TrimSpec
	// Format renders the final line of a task. Defaults to defaultLine.
	Format func(o Outcome) string
	Hooks  Hooks
}

// defaultLine renders "<status> | <service> | <file>" with the status padded
// to 3 and the service to 40 columns.
func defaultLine(o Outcome) string {
	return fmt.Sprintf("%-3s | %-40s | %s", o.Result.Status.Code(), o.Result.Service, o.File)
}

// Tasks expands files into tasks, file-major then provider order.
func (p *Pipeline) Tasks(files []string) []Task {
	tasks := make([]Task, 0, len(files)*len(p.Providers))
	for _, f := range files {
		for _, prov := range p.Providers {
			tasks = append(tasks, Task{Index: len(tasks), Path: f, Provider: prov})
		}
	}
	return tasks
}

// Run processes every task and returns the outcomes in emission order. With
// a single worker that is submission order. Cancelling ctx stops new tasks
// from starting; tasks already running finish and clean up.
func (p *Pipeline) Run(ctx context.Context, files []string) []Outcome {
	tasks := p.Tasks(files)
	if len(tasks) == 0 {
		return nil
	}
	if p.Reporter == nil {
		p.Reporter = progress.New(os.Stdout)
	}

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}
	p.Logger.Debug("running %d tasks on %d workers", len(tasks), workers)

	queue := make(chan Task)
	go func() {
		defer close(queue)
		for _, t := range tasks {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case queue <- t:
			}
		}
	}()

	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, len(tasks))
		wg       sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for t := range queue {
				if ctx.Err() != nil {
					continue
				}
				if p.Hooks.OnTaskStart != nil {
					p.Hooks.OnTaskStart(worker, t)
				}

				o := p.process(ctx, worker, t)

				p.Reporter.Update(worker, p.format(o))
				p.Reporter.Finish(worker)

				mu.Lock()
				outcomes = append(outcomes, o)
				if p.Hooks.OnResult != nil {
					p.Hooks.OnResult(o)
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	return outcomes
}

func (p *Pipeline) format(o Outcome) string {
	if p.Format != nil {
		return p.Format(o)
	}
	return defaultLine(o)
}

// process runs Prepare, Dispatch and Cleanup for one task. It never panics:
// a panicking provider yields Unknown "internal error".
func (p *Pipeline) process(ctx context.Context, worker int, t Task) (o Outcome) {
	name := filepath.Base(t.Path)
	o = Outcome{Index: t.Index, File: name, Path: t.Path, Provider: t.Provider.Kind()}

	defer func() {
		if r := recover(); r != nil {
			p.Logger.Error("%s with %s: panic: %v", name, t.Provider.Name(), r)
			o.Result = recognition.UnknownResult("internal error")
		}
	}()

	file, err := media.Read(t.Path)
	if err != nil {
		p.Logger.Warn("Skipping %s: %v", name, err)
		o.Result = recognition.UnknownResult("file not readable")
		return o
	}
	file.Duration = p.Preparer.MeasureDuration(ctx, t.Path)
	file.Title, file.Artist = p.Preparer.ReadTags(t.Path)
	o.Title, o.Artist = file.Title, file.Artist

	line := &statusLine{
		reporter: p.Reporter,
		worker:   worker,
		prefix:   fmt.Sprintf("%s | size: %s | time: %s", name, humanize.IBytes(uint64(file.Size)), media.FormatClock(file.Duration)),
	}
	line.Stage("preparing...")

	sample := recognition.Sample{Path: t.Path, Size: file.Size, Observer: line}
	if !p.Trim.IsZero() {
		line.Stage("Creating temp file...")
		seg := p.Preparer.Prepare(ctx, t.Path, p.Trim, file.Duration)
		defer func() {
			if err := seg.Release(); err != nil {
				p.Logger.Warn("%v", err)
			}
		}()
		sample.Path = seg.Path
		if info, err := os.Stat(seg.Path); err == nil {
			sample.Size = info.Size()
		}
	}
	line.prefix += " | cut block: " + humanize.IBytes(uint64(sample.Size))

	o.Result = t.Provider.Recognize(ctx, sample)
	if tags := o.Tags(); tags != "" {
		p.Logger.Debug("%s with %s: %s %s (tagged %s)", name, t.Provider.Name(), o.Result.Status, o.Result.Service, tags)
	} else {
		p.Logger.Debug("%s with %s: %s %s", name, t.Provider.Name(), o.Result.Status, o.Result.Service)
	}
	return o
}

// statusLine routes provider notifications to the worker's progress line.
type statusLine struct {
	reporter *progress.Reporter
	worker   int
	prefix   string
}

func (s *statusLine) Stage(text string) {
	s.reporter.Update(s.worker, s.prefix+" | "+text)
}

func (s *statusLine) Sent(sent, total int64) {
	s.Stage("sending " + progress.Bar(sent, total, progress.DefaultBarWidth))
}

// Summary counts outcomes per status.
type Summary struct {
	Total       int
	Copyrighted int
	Free        int
	Unknown     int
}

func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Result.Status {
		case recognition.Copyrighted:
			s.Copyrighted++
		case recognition.Free:
			s.Free++
		default:
			s.Unknown++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("Total: %d, Copyrighted: %d, Free: %d, Unknown: %d", s.Total, s.Copyrighted, s.Free, s.Unknown)
}
