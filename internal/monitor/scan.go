// Package monitor reconstructs workflow status from the append-only event log.
package monitor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/sink"
	"github.com/maxbolgarin/errm"
	"github.com/panjf2000/ants/v2"
)

const defaultScanWorkers = 4

// States maps workflow id to its derived state
type States map[string]*model.WorkflowState

// Apply folds an event into the matching workflow state.
func (s States) Apply(e model.WorkflowEvent) {
	st, ok := s[e.WorkflowID]
	if !ok {
		st = model.NewWorkflowState(e.WorkflowID)
		s[e.WorkflowID] = st
	}
	st.Apply(e)
}

// Active returns workflows with pending requests sorted by id.
func (s States) Active() []*model.WorkflowState {
	return s.filter(func(st *model.WorkflowState) bool { return st.IsActive() })
}

// Count returns the number of workflows with the given status.
func (s States) Count(status model.WorkflowStatus) int {
	return len(s.filter(func(st *model.WorkflowState) bool { return st.Status() == status }))
}

func (s States) filter(fn func(*model.WorkflowState) bool) []*model.WorkflowState {
	out := make([]*model.WorkflowState, 0)
	for _, st := range s {
		if fn(st) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkflowID < out[j].WorkflowID })
	return out
}

// ScanStats counts what a scan has read
type ScanStats struct {
	Lines      int
	Records    int
	Malformed  int
	Incomplete int
}

func (s *ScanStats) add(other ScanStats) {
	s.Lines += other.Lines
	s.Records += other.Records
	s.Malformed += other.Malformed
	s.Incomplete += other.Incomplete
}

// Scan reads every record from r and folds them per workflow.
// Lines without the record tag, malformed records and events without
// workflow_id, request_id or event_type are skipped. Only read errors are returned.
func Scan(r io.Reader) (States, ScanStats, error) {
	events, stats, err := readEvents(r)
	if err != nil {
		return nil, stats, err
	}

	states := make(States)
	for _, e := range events {
		states.Apply(e)
	}

	return states, stats, nil
}

// ScanFile scans a single log file, a missing file yields empty states.
func ScanFile(path string) (States, ScanStats, error) {
	return ScanFiles(context.Background(), []string{path})
}

// ScanFiles reads log segments concurrently and folds them in the given order,
// oldest segment first. Missing segments are skipped.
func ScanFiles(ctx context.Context, paths []string) (States, ScanStats, error) {
	type segment struct {
		events []model.WorkflowEvent
		stats  ScanStats
		err    error
	}

	pool, err := ants.NewPool(defaultScanWorkers)
	if err != nil {
		return nil, ScanStats{}, errm.Wrap(err, "failed to create scan pool")
	}
	defer pool.Release()

	segments := make([]segment, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				segments[i].err = ctx.Err()
				return
			}
			segments[i].events, segments[i].stats, segments[i].err = readFile(path)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, ScanStats{}, errm.Wrap(err, "failed to submit scan task")
		}
	}
	wg.Wait()

	var stats ScanStats
	states := make(States)
	for i, seg := range segments {
		if seg.err != nil {
			return nil, stats, errm.Wrap(seg.err, "failed to read log segment", "path", paths[i])
		}
		stats.add(seg.stats)
		for _, e := range seg.events {
			states.Apply(e)
		}
	}

	return states, stats, nil
}

func readFile(path string) ([]model.WorkflowEvent, ScanStats, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ScanStats{}, nil
		}
		return nil, ScanStats{}, err
	}
	defer f.Close()

	return readEvents(f)
}

func readEvents(r io.Reader) ([]model.WorkflowEvent, ScanStats, error) {
	var (
		stats  ScanStats
		events []model.WorkflowEvent
		br     = bufio.NewReader(r)
	)

	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			stats.Lines++
			e, perr := sink.ParseRecord(line)
			switch {
			case perr == nil && e.HasIdentity():
				stats.Records++
				events = append(events, e)
			case perr == nil:
				stats.Incomplete++
			case errors.Is(perr, sink.ErrMalformedRecord):
				stats.Malformed++
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return events, stats, nil
			}
			return events, stats, err
		}
	}
}
