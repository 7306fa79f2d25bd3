package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/peyecoder/peyecoder/internal/config"
	"github.com/peyecoder/peyecoder/internal/datafile"
	"github.com/peyecoder/peyecoder/internal/dispatcher"
	"github.com/peyecoder/peyecoder/internal/export"
	"github.com/peyecoder/peyecoder/internal/geo"
	"github.com/peyecoder/peyecoder/internal/influx"
	"github.com/peyecoder/peyecoder/internal/reliability"
	"github.com/peyecoder/peyecoder/internal/tabular"
	"github.com/peyecoder/peyecoder/internal/timecode"
	"github.com/peyecoder/peyecoder/pkg/core"
	"golang.org/x/sync/errgroup"
)

var errUsage = errors.New("usage")

func usageError(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

func (a *app) registerHandlers(d *dispatcher.Dispatcher) {
	d.Register("export", a.handleExport, dispatcher.Logged(),
		dispatcher.Usage("export [-format long|wide] [-invert trialorder|responses|none] [-out file.csv|file.xlsx] <datafile>"))
	d.Register("batch-export", a.handleBatchExport, dispatcher.Logged(),
		dispatcher.Usage("batch-export [-format long|wide] [-invert ...] [-xlsx] <datafile>..."))
	d.Register("compare", a.handleCompare, dispatcher.Logged(),
		dispatcher.Usage("compare <your datafile> <other datafile>"))
	d.Register("validate", a.handleValidate, dispatcher.Logged(),
		dispatcher.Usage("validate <datafile>"))
	d.Register("render", a.handleRender, dispatcher.Logged(),
		dispatcher.Usage("render <datafile>"))
	d.Register("trialorder", a.handleTrialOrder, dispatcher.Logged(),
		dispatcher.Usage("trialorder <datafile> <table.csv|.tsv|.xlsx>"))
	d.Register("remove-offset", a.handleRemoveOffset, dispatcher.Logged(),
		dispatcher.Usage("remove-offset <datafile> <frames|timecode>"))
	d.Register("reset-offset", a.handleResetOffset, dispatcher.Logged(),
		dispatcher.Usage("reset-offset <datafile>"))
	d.Register("archive", a.handleArchive, dispatcher.Logged(),
		dispatcher.Usage("archive <datafile>..."))
	d.Register("restore", a.handleRestore, dispatcher.Logged(),
		dispatcher.Usage("restore <number> <datafile>"))
	d.Register("delete", a.handleDelete, dispatcher.Logged(),
		dispatcher.Usage("delete <number>"))
	d.Register("list", a.handleList,
		dispatcher.Usage("list"))
	d.Register("snapshot", a.handleSnapshot, dispatcher.Logged(),
		dispatcher.Usage("snapshot <file.db>"))
}

// loadSubject reads a data file and tags subsequent log records with its number.
func (a *app) loadSubject(path string) (*core.Subject, error) {
	s, err := datafile.Load(path)
	if err != nil {
		return nil, err
	}
	a.subject = s.Info.Number
	return s, nil
}

type exportOptions struct {
	format export.Format
	invert export.Invert
	out    string
	xlsx   bool
}

func parseExportFlags(name string, args []string, withOut bool) (exportOptions, []string, error) {
	cfg := config.GetExportConfig()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", cfg.Format, "long or wide")
	invert := fs.String("invert", cfg.Invert, "trialorder, responses or none")
	var out *string
	var xlsx *bool
	if withOut {
		out = fs.String("out", "", "output file")
	} else {
		xlsx = fs.Bool("xlsx", false, "write Excel workbooks")
	}
	if err := fs.Parse(args); err != nil {
		return exportOptions{}, nil, usageError(err.Error())
	}

	var opts exportOptions
	var err error
	if opts.format, err = export.ParseFormat(*format); err != nil {
		return opts, nil, err
	}
	if opts.invert, err = export.ParseInvert(*invert); err != nil {
		return opts, nil, err
	}
	if out != nil {
		opts.out = *out
	}
	if xlsx != nil {
		opts.xlsx = *xlsx
	}
	return opts, fs.Args(), nil
}

// exportPath names an export after the data file: s12.vcx becomes
// <outputDir>/s12_long.csv.
func exportPath(outputDir, source string, format export.Format, xlsx bool) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	ext := ".csv"
	if xlsx {
		ext = ".xlsx"
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s%s", base, format, ext))
}

// batchExportPaths names one export per data file. Data files sharing a base
// name get _2, _3, ... suffixes in argument order so that no two exports
// write the same file. Names are compared case-insensitively.
func batchExportPaths(outputDir string, files []string, format export.Format, xlsx bool) []string {
	used := make(map[string]bool, len(files))
	paths := make([]string, len(files))
	for i, file := range files {
		path := exportPath(outputDir, file, format, xlsx)
		ext := filepath.Ext(path)
		stem := strings.TrimSuffix(path, ext)
		for n := 2; used[strings.ToLower(path)]; n++ {
			path = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		used[strings.ToLower(path)] = true
		paths[i] = path
	}
	return paths
}

func (a *app) exportOne(ctx context.Context, source, dest string, opts exportOptions) (string, error) {
	s, err := datafile.Load(source)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	start := time.Now()
	table, err := export.Export(dest, s, opts.format, opts.invert)
	if err != nil {
		return "", err
	}
	took := time.Since(start)

	a.log.Info("Exported subject", "subject", s.Info.Number, "format", opts.format, "rows", len(table.Rows), "path", dest)
	if m := a.initInflux(); m != nil {
		point := influx.ExportPoint(s.Info.Number, opts.format, opts.invert, table, took, time.Now())
		if err := m.WritePoint(ctx, influx.BucketExports, point); err != nil {
			a.log.Warn("Failed to record export metrics", "error", err)
		}
	}
	return fmt.Sprintf("Wrote %d rows (%d trials) to %s", len(table.Rows), table.Trials, dest), nil
}

func (a *app) handleExport(ctx context.Context, c dispatcher.Command) (any, error) {
	opts, rest, err := parseExportFlags(c.Name, c.Args, true)
	if err != nil {
		return nil, err
	}
	if len(rest) != 1 {
		return nil, usageError("export [flags] <datafile>")
	}
	dest := opts.out
	if dest == "" {
		dest = exportPath(config.GetExportConfig().OutputDir, rest[0], opts.format, false)
	}
	return a.exportOne(ctx, rest[0], dest, opts)
}

// handleBatchExport exports every data file concurrently, at most
// export.workers at a time. Each subject is owned by one goroutine.
func (a *app) handleBatchExport(ctx context.Context, c dispatcher.Command) (any, error) {
	opts, files, err := parseExportFlags(c.Name, c.Args, false)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, usageError("batch-export [flags] <datafile>...")
	}
	cfg := config.GetExportConfig()

	dests := batchExportPaths(cfg.OutputDir, files, opts.format, opts.xlsx)
	lines := make([]string, len(files))
	var mu sync.Mutex
	var failed []error

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			line, err := a.exportOne(ctx, file, dests[i], opts)
			if err != nil {
				// one bad file does not stop the batch
				a.log.Error("Export failed", "file", file, "error", err)
				mu.Lock()
				failed = append(failed, fmt.Errorf("%s: %w", file, err))
				mu.Unlock()
				line = fmt.Sprintf("Failed %s: %v", file, err)
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lines = append(lines, fmt.Sprintf("Exported %d of %d subjects", len(files)-len(failed), len(files)))
	if len(failed) > 0 {
		a.print(lines)
		return nil, errors.Join(failed...)
	}
	return lines, nil
}

func (a *app) handleCompare(ctx context.Context, c dispatcher.Command) (any, error) {
	if len(c.Args) != 2 {
		return nil, usageError("compare <your datafile> <other datafile>")
	}
	yours, err := a.loadSubject(c.Args[0])
	if err != nil {
		return nil, err
	}
	other, err := datafile.Load(c.Args[1])
	if err != nil {
		return nil, err
	}

	res := reliability.Compare(yours, other, timecode.Renderer{})
	if res.Stats == nil {
		a.log.Warn("Subjects are not comparable", "other", other.Info.Number)
		return res.Lines, nil
	}

	a.log.Info("Compared codings",
		"frameAgreement", res.Stats.FrameAgreement,
		"comparableTrials", res.Stats.ComparableTrials,
		"shiftAgreement", res.Stats.ShiftAgreement)
	if m := a.initInflux(); m != nil {
		point := influx.ReliabilityPoint(yours.Info.Number, yours.Info.Coder, other.Info.Coder, *res.Stats, time.Now())
		if err := m.WritePoint(ctx, influx.BucketReliability, point); err != nil {
			a.log.Warn("Failed to record reliability metrics", "error", err)
		}
	}
	return res.Lines, nil
}

func (a *app) handleValidate(_ context.Context, c dispatcher.Command) (any, error) {
	if len(c.Args) != 1 {
		return nil, usageError("validate <datafile>")
	}
	s, err := a.loadSubject(c.Args[0])
	if err != nil {
		return nil, err
	}
	return validateSubject(s)
}

func validateSubject(s *core.Subject) ([]string, error) {
	var lines []string

	rows, msgs := s.ErrorItems()
	for _, msg := range msgs {
		lines = append(lines, "Events: "+msg)
	}
	if len(rows) > 0 {
		lines = append(lines, "Events to check: "+joinRows(rows))
	}

	_, trials := s.Reasons.ErrorItems(core.Both)
	for _, t := range trials {
		lines = append(lines, fmt.Sprintf("Prescreen: trial %d differs between prescreeners", t))
	}

	overlaps, err := geo.Overlaps(s.Occluders)
	if err != nil {
		return nil, err
	}
	for _, o := range overlaps {
		lines = append(lines, fmt.Sprintf("Occluders: %d and %d overlap by %.0f px", o.A+1, o.B+1, o.Area))
	}
	if len(s.Occluders) > 0 {
		area, err := geo.CoveredArea(s.Occluders)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("Occluders: %d covering %.0f px", len(s.Occluders), area))
	}

	if len(msgs) == 0 && len(trials) == 0 && len(overlaps) == 0 {
		lines = append([]string{"No problems found"}, lines...)
	}
	return lines, nil
}

// joinRows lists event rows 1-based, without repeats, in report order.
func joinRows(rows []int) string {
	seen := make(map[int]bool, len(rows))
	var parts []string
	for _, r := range rows {
		if !seen[r] {
			seen[r] = true
			parts = append(parts, strconv.Itoa(r+1))
		}
	}
	return strings.Join(parts, ", ")
}

func (a *app) handleRender(_ context.Context, c dispatcher.Command) (any, error) {
	if len(c.Args) != 1 {
		return nil, usageError("render <datafile>")
	}
	s, err := a.loadSubject(c.Args[0])
	if err != nil {
		return nil, err
	}
	lines := []string{"Trial\tStatus\tResponse\tTimecode"}
	for _, e := range s.RenderEvents(timecode.Renderer{}) {
		lines = append(lines, fmt.Sprintf("%d\t%s\t%s\t%s", e.Trial, e.Status, e.Response, e.Timecode))
	}
	return lines, nil
}

func (a *app) handleTrialOrder(_ context.Context, c dispatcher.Command) (any, error) {
	if len(c.Args) != 2 {
		return nil, usageError("trialorder <datafile> <table>")
	}
	s, err := a.loadSubject(c.Args[0])
	if err != nil {
		return nil, err
	}
	order, err := tabular.LoadTrialOrder(c.Args[1])
	if err != nil {
		return nil, err
	}
	s.TrialOrder = order
	if err := datafile.Save(c.Args[0], s); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Loaded %d trials of order %q", len(order.Trials), order.Name())
	if unused := order.UnusedDisplay(); unused != "" {
		msg += "; unused: " + unused
	}
	return msg, nil
}

// handleRemoveOffset subtracts an offset, given in frames or as a timecode,
// from every event imported with an absolute timecode and saves the result.
func (a *app) handleRemoveOffset(_ context.Context, c dispatcher.Command) (any, error) {
	if len(c.Args) != 2 {
		return nil, usageError("remove-offset <datafile> <frames|timecode>")
	}
	s, err := a.loadSubject(c.Args[0])
	if err != nil {
		return nil, err
	}
	offset, err := strconv.Atoi(c.Args[1])
	if err != nil {
		frame, tcErr := timecode.Parse(c.Args[1], timecode.MustRate(s.Framerate()), s.Settings.DropFrame)
		if tcErr != nil {
			return nil, tcErr
		}
		offset = frame - 1
	}
	s.Timeline.RemoveOffset(offset)
	if err := datafile.Save(c.Args[0], s); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Removed offset of %d frames", offset), nil
}

// handleResetOffset puts back the offset saved by the last remove-offset.
func (a *app) handleResetOffset(_ context.Context, c dispatcher.Command) (any, error) {
	if len(c.Args) != 1 {
		return nil, usageError("reset-offset <datafile>")
	}
	s, err := a.loadSubject(c.Args[0])
	if err != nil {
		return nil, err
	}
	offset, ok := s.Timeline.RemovedOffset()
	if !ok {
		return "No offset to reset", nil
	}
	s.Timeline.ResetOffset()
	if err := datafile.Save(c.Args[0], s); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Restored offset of %d frames", offset), nil
}

func (a *app) handleArchive(_ context.Context, c dispatcher.Command) (any, error) {
	if len(c.Args) == 0 {
		return nil, usageError("archive <datafile>...")
	}
	backend, err := a.initStorage()
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, path := range c.Args {
		s, err := a.loadSubject(path)
		if err != nil {
			return nil, err
		}
		if err := backend.SaveSubject(s); err != nil {
			return nil, fmt.Errorf("archive %s: %w", path, err)
		}
		lines = append(lines, fmt.Sprintf("Archived subject %s", s.Info.Number))
	}
	return lines, nil
}

func (a *app) handleRestore(_ context.Context, c dispatcher.Command) (any, error) {
	if len(c.Args) != 2 {
		return nil, usageError("restore <number> <datafile>")
	}
	backend, err := a.initStorage()
	if err != nil {
		return nil, err
	}
	a.subject = c.Args[0]
	s, err := backend.LoadSubject(c.Args[0])
	if err != nil {
		return nil, err
	}
	if err := datafile.Save(c.Args[1], s); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Restored subject %s to %s", s.Info.Number, c.Args[1]), nil
}

func (a *app) handleDelete(_ context.Context, c dispatcher.Command) (any, error) {
	if len(c.Args) != 1 {
		return nil, usageError("delete <number>")
	}
	backend, err := a.initStorage()
	if err != nil {
		return nil, err
	}
	if err := backend.DeleteSubject(c.Args[0]); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Deleted subject %s", c.Args[0]), nil
}

func (a *app) handleList(_ context.Context, _ dispatcher.Command) (any, error) {
	backend, err := a.initStorage()
	if err != nil {
		return nil, err
	}
	return backend.ListSubjects()
}

func (a *app) handleSnapshot(_ context.Context, c dispatcher.Command) (any, error) {
	if len(c.Args) != 1 {
		return nil, usageError("snapshot <file.db>")
	}
	backend, err := a.initStorage()
	if err != nil {
		return nil, err
	}
	snap, ok := backend.(snapshotter)
	if !ok {
		return nil, fmt.Errorf("storage type %q does not support snapshots", config.GetStorageConfig().Type)
	}
	if err := snap.Snapshot(c.Args[0]); err != nil {
		return nil, err
	}
	return "Snapshot written to " + c.Args[0], nil
}
