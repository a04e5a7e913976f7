// Package batch converts a list of files, keeping going when one fails and
// reporting a per-file outcome plus a success/failure tally.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nconklindev/sheet2csv/internal/config"
	"github.com/nconklindev/sheet2csv/internal/converter"
	"github.com/nconklindev/sheet2csv/internal/logging"
	"github.com/nconklindev/sheet2csv/internal/naming"
	"github.com/nconklindev/sheet2csv/internal/normalize"
	"github.com/nconklindev/sheet2csv/internal/types"
)

// Options controls a batch run.
type Options struct {
	// Format selects a naming template; nil keeps each input's base name.
	Format *config.OutputFormat
	// Date is embedded in templated output names.
	Date       time.Time
	Normalizer *normalize.Normalizer
	Read       converter.Options
	// Workers bounds parallel conversions. Values below 1 mean sequential.
	Workers int
}

// Summary is the outcome of a batch run. Results keep input order.
type Summary struct {
	Results   []types.FileResult
	Succeeded int
	Failed    int
}

// Errors returns the failed results.
func (s *Summary) Errors() []types.FileResult {
	var out []types.FileResult
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Run converts every file and never stops on a per-file error. After each
// file a done/total fraction is offered on progress without blocking.
// Cancelling ctx stops new files from starting; those are recorded as failed.
func Run(ctx context.Context, files []string, opts Options, progress chan<- float64) *Summary {
	files = dedupe(files)
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]types.FileResult, len(files))
	outputs := make(map[string]string, len(files))
	for i, in := range files {
		out := naming.OutputPath(in, opts.Format, opts.Date)
		if prev, ok := outputs[out]; ok {
			logging.WithFields("output", out).Warn("output collision, later file overwrites", "first", prev, "second", in)
		}
		outputs[out] = in
		results[i] = types.FileResult{InputFile: in, OutputFile: out}
	}

	total := len(files)
	var (
		mu   sync.Mutex
		done int
	)
	reportProgress := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if progress != nil && total > 0 {
			select {
			case progress <- float64(done) / float64(total):
			default:
			}
		}
	}

	// Outputs that collide must be written in input order, so colliding
	// batches fall back to sequential processing.
	if len(outputs) < len(files) {
		workers = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i := range results {
		if ctx.Err() != nil {
			results[i].Err = ctx.Err()
			reportProgress()
			continue
		}
		g.Go(func() error {
			defer reportProgress()
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Result, results[i].Err = convertOne(results[i].InputFile, results[i].OutputFile, opts)
			return nil
		})
	}
	_ = g.Wait()

	s := &Summary{Results: results}
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}

	logging.WithFields("files", total).Info("batch complete", "succeeded", s.Succeeded, "failed", s.Failed)
	return s
}

func convertOne(in, out string, opts Options) (*types.ConversionResult, error) {
	log := logging.WithFields("input", in, "output", out)
	log.Debug("conversion started")

	res, err := converter.Convert(in, out, opts.Normalizer, opts.Read)
	if err != nil {
		log.Error("conversion failed", "error", err)
		return nil, fmt.Errorf("converting %s: %w", filepath.Base(in), err)
	}

	log.Info("conversion completed", "rows", res.RowsProcessed, "date_columns", len(res.TemporalColumns), "cell_misses", res.CellMisses)
	return res, nil
}

func dedupe(files []string) []string {
	seen := make(map[string]bool, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
