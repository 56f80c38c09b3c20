// Package batch runs the extraction pipeline over JSONL record streams with
// a bounded worker pool.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/jsonsift/jsonsift/internal/extract"
	"github.com/jsonsift/jsonsift/internal/metrics"
)

// Record is one JSONL input line. A missing id gets a generated UUID so
// every output line is addressable.
type Record struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// Outcome is one JSONL output line. Value has no omitempty so a recovered
// JSON null still appears in the output; Found signals presence.
type Outcome struct {
	ID       string `json:"id"`
	Found    bool   `json:"found"`
	Strategy string `json:"strategy,omitempty"`
	Value    any    `json:"value"`
	Error    string `json:"error,omitempty"` // input line could not be decoded
}

// Stats summarizes one batch run
type Stats struct {
	Total   int
	Found   int
	Absent  int
	Invalid int
}

// Runner fans extraction jobs out to a worker pool
type Runner struct {
	concurrency  int
	showProgress bool
	collector    *metrics.Collector
	logger       *slog.Logger
}

// NewRunner creates a batch runner with the given worker count
func NewRunner(concurrency int, showProgress bool, logger *slog.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		concurrency:  concurrency,
		showProgress: showProgress,
		collector:    metrics.NewCollector(),
		logger:       logger,
	}
}

type job struct {
	index  int
	record Record
	err    error // decode failure carried through to the outcome
}

// Run reads JSONL records from in, extracts a value from each record's text
// and writes one JSONL outcome per record to out, preserving input order.
// Lines that do not decode produce an outcome with an error field instead of
// aborting the run.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) (Stats, error) {
	runLogger := r.logger.With("run_id", uuid.NewString())

	jobs, err := readJobs(in)
	if err != nil {
		return Stats{}, err
	}
	runLogger.Info("Batch run started", "records", len(jobs), "concurrency", r.concurrency)

	var bar *progressbar.ProgressBar
	if r.showProgress {
		bar = progressbar.Default(int64(len(jobs)), "extracting")
	}

	jobCh := make(chan job)
	outcomes := make([]Outcome, len(jobs))

	var wg sync.WaitGroup
	var mu sync.Mutex
	stats := Stats{Total: len(jobs)}

	for workerID := 0; workerID < r.concurrency; workerID++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			workerLogger := runLogger.With("worker_id", workerID)

			for j := range jobCh {
				select {
				case <-ctx.Done():
					return
				default:
				}

				outcome := r.process(j)
				outcomes[j.index] = outcome

				mu.Lock()
				switch {
				case outcome.Error != "":
					stats.Invalid++
				case outcome.Found:
					stats.Found++
				default:
					stats.Absent++
					workerLogger.Debug("No value recovered", "id", outcome.ID)
				}
				mu.Unlock()

				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}(workerID)
	}

	for _, j := range jobs {
		select {
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			return stats, ctx.Err()
		case jobCh <- j:
		}
	}
	close(jobCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	writer := bufio.NewWriter(out)
	enc := json.NewEncoder(writer)
	for _, outcome := range outcomes {
		if err := enc.Encode(outcome); err != nil {
			return stats, fmt.Errorf("failed to write outcome: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return stats, fmt.Errorf("failed to flush output: %w", err)
	}

	runLogger.Info("Batch run finished",
		"found", stats.Found,
		"absent", stats.Absent,
		"invalid", stats.Invalid)

	return stats, nil
}

func (r *Runner) process(j job) Outcome {
	if j.err != nil {
		return Outcome{ID: j.record.ID, Error: j.err.Error()}
	}

	start := time.Now()
	res, found := extract.Extract(j.record.Text)
	r.collector.RecordExtraction(string(res.Strategy), found, time.Since(start))

	outcome := Outcome{ID: j.record.ID, Found: found}
	if found {
		outcome.Strategy = string(res.Strategy)
		outcome.Value = res.Value
	}
	return outcome
}

// readJobs decodes all input lines up front so output can preserve order.
// Blank lines are skipped; undecodable lines become error jobs.
func readJobs(in io.Reader) ([]job, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var jobs []job
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec Record
		j := job{index: len(jobs)}
		if err := json.Unmarshal(line, &rec); err != nil {
			j.err = fmt.Errorf("line %d: %w", lineNo, err)
		} else {
			j.record = rec
		}
		if j.record.ID == "" {
			j.record.ID = uuid.NewString()
		}
		jobs = append(jobs, j)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	return jobs, nil
}
