package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bitspec/internal/diag"
	"bitspec/internal/layout"
	"bitspec/internal/observ"
	"bitspec/internal/resolve"
	"bitspec/internal/schema"
	"bitspec/internal/source"
	"bitspec/internal/trace"
)

// Options configure a check run.
type Options struct {
	// Target supplies the fallback byte order; zero means layout.DefaultTarget.
	Target layout.Target
	// Jobs bounds concurrent files in CheckDir; <= 0 means GOMAXPROCS.
	Jobs int
	// Cache, when set, short-circuits files whose content was checked before.
	Cache *DiskCache
	// Timings records per-file phase durations in FileResult.Timing.
	Timings bool
	// Progress, when set, receives per-file stage events.
	Progress ProgressSink
}

// FileResult is the outcome of checking one schema file.
type FileResult struct {
	Path   string
	FileID source.FileID
	Schema *schema.Schema
	// Plan is nil for cache hits and for files that failed to load.
	Plan       *layout.Plan
	Bag        *diag.Bag
	Containers int
	Cached     bool
	// Err is a loader failure (*schema.LoadError) or an I/O error.
	Err    error
	Timing *observ.Report
}

// Failed reports whether the file produced diagnostics or could not be read.
func (r *FileResult) Failed() bool {
	return r.Err != nil || r.Bag.HasErrors()
}

// Check loads and resolves one schema file.
func Check(ctx context.Context, path string, opts Options) (*source.FileSet, *FileResult, error) {
	fileSet := source.NewFileSetWithBase(filepath.Dir(path))
	id, err := fileSet.Load(path)
	if err != nil {
		return fileSet, nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	res := checkFile(ctx, fileSet, id, normalize(opts))
	if res.Err != nil {
		return fileSet, &res, res.Err
	}
	return fileSet, &res, nil
}

// CheckSource checks in-memory content (stdin, tests) under a virtual name.
func CheckSource(ctx context.Context, name string, content []byte, opts Options) (*source.FileSet, *FileResult, error) {
	fileSet := source.NewFileSet()
	id := fileSet.AddVirtual(name, content)
	res := checkFile(ctx, fileSet, id, normalize(opts))
	if res.Err != nil {
		return fileSet, &res, res.Err
	}
	return fileSet, &res, nil
}

// CheckDir checks every *.yaml and *.yml file under dir concurrently. Results
// are in path order. Per-file failures land in FileResult.Err; the returned
// error is for walking the tree and cancellation only.
func CheckDir(ctx context.Context, dir string, opts Options) (*source.FileSet, []FileResult, error) {
	opts = normalize(opts)
	tracer := trace.FromContext(ctx)
	dirSpan := trace.Begin(tracer, trace.ScopeDriver, "check_dir", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, dirSpan)

	files, err := ListSchemaFiles(dir)
	if err != nil {
		dirSpan.End("walk failed")
		return nil, nil, err
	}

	// FileSet не потокобезопасен: загружаем всё до запуска горутин
	fileSet := source.NewFileSetWithBase(dir)
	results := make([]FileResult, len(files))
	ids := make([]source.FileID, len(files))
	loaded := make([]bool, len(files))
	for i, path := range files {
		id, err := fileSet.Load(path)
		if err != nil {
			results[i] = FileResult{Path: path, Bag: diag.NewBag(0), Err: fmt.Errorf("failed to load %s: %w", path, err)}
			emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusError, Err: results[i].Err})
			continue
		}
		ids[i] = id
		loaded[i] = true
	}

	if len(files) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(opts.Jobs, len(files)))
		for i := range files {
			if !loaded[i] {
				continue
			}
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				// индекс i уникален для горутины, мьютекс не нужен
				results[i] = checkFile(gctx, fileSet, ids[i], opts)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			dirSpan.End("cancelled")
			return fileSet, results, err
		}
	}

	failed := 0
	for i := range results {
		if results[i].Failed() {
			failed++
		}
	}
	dirSpan.WithExtra("files", strconv.Itoa(len(files))).WithExtra("failed", strconv.Itoa(failed)).End("")
	return fileSet, results, nil
}

func normalize(opts Options) Options {
	if opts.Target.Endian == layout.EndianUnset {
		opts.Target = layout.DefaultTarget()
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	return opts
}

// ListSchemaFiles возвращает отсортированный список всех *.yaml/*.yml файлов.
func ListSchemaFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas in %s: %w", dir, err)
	}
	// Сортируем для детерминированного порядка
	sort.Strings(files)
	return files, nil
}

// checkFile runs cache lookup, load and resolve for a file already in fileSet.
// It only reads fileSet.
func checkFile(ctx context.Context, fileSet *source.FileSet, id source.FileID, opts Options) (res FileResult) {
	file := fileSet.Get(id)
	res = FileResult{Path: file.Path, FileID: id, Bag: diag.NewBag(8)}

	if opts.Progress != nil {
		started := time.Now()
		defer func() {
			status := StatusDone
			if res.Failed() {
				status = StatusError
			}
			opts.Progress.OnEvent(Event{File: file.Path, Status: status, Err: res.Err, Elapsed: time.Since(started)})
		}()
	}

	var timer *observ.Timer
	if opts.Timings {
		timer = observ.NewTimer()
		defer func() {
			report := timer.Report()
			res.Timing = &report
		}()
	}

	tracer := trace.FromContext(ctx)
	fileSpan := trace.Begin(tracer, trace.ScopeFile, "file:"+file.Path, trace.CurrentSpan(ctx))
	defer func() {
		fileSpan.WithExtra("diags", strconv.Itoa(res.Bag.Len())).
			WithExtra("cached", strconv.FormatBool(res.Cached)).
			End("")
	}()

	key := CacheKey(file, opts.Target)
	if opts.Cache != nil {
		emit(opts.Progress, Event{File: file.Path, Stage: StageCache, Status: StatusWorking})
		idx := timer.Begin("cache_get")
		span := trace.Begin(tracer, trace.ScopePass, "cache", fileSpan.ID())
		var payload DiskPayload
		hit, err := opts.Cache.Get(key, &payload)
		switch {
		case err != nil:
			span.End("miss: " + err.Error())
		case hit:
			span.End("hit")
		default:
			span.End("miss")
		}
		timer.End(idx, "")
		if hit {
			res.Bag = bagFromPayload(&payload, id)
			res.Containers = payload.Containers
			res.Cached = true
			return res
		}
	}

	emit(opts.Progress, Event{File: file.Path, Stage: StageLoad, Status: StatusWorking})
	idx := timer.Begin("load")
	span := trace.Begin(tracer, trace.ScopePass, "load", fileSpan.ID())
	s, err := schema.Load(fileSet, id, diag.BagReporter{Bag: res.Bag})
	span.End("")
	timer.End(idx, "")
	if err != nil {
		var lerr *schema.LoadError
		if !errors.As(err, &lerr) {
			err = fmt.Errorf("failed to load %s: %w", file.Path, err)
		}
		res.Err = err
		return res
	}
	res.Schema = s
	res.Containers = len(s.Containers)

	emit(opts.Progress, Event{File: file.Path, Stage: StageResolve, Status: StatusWorking})
	idx = timer.Begin("resolve")
	span = trace.Begin(tracer, trace.ScopePass, "resolve", fileSpan.ID())
	res.Plan = resolve.ResolveWith(s, resolve.Options{Target: opts.Target}, diag.BagReporter{Bag: res.Bag})
	span.WithExtra("plans", strconv.Itoa(res.Plan.Len())).End("")
	timer.End(idx, fmt.Sprintf("diags=%d", res.Bag.Len()))

	if opts.Cache != nil {
		idx := timer.Begin("cache_put")
		span := trace.Begin(tracer, trace.ScopePass, "cache", fileSpan.ID())
		// кеш best-effort: ошибка записи не делает проверку неуспешной
		if err := opts.Cache.Put(key, toDiskPayload(file, opts.Target, res.Containers, res.Bag)); err != nil {
			span.End("store failed: " + err.Error())
		} else {
			span.End("stored")
		}
		timer.End(idx, "")
	}
	return res
}
