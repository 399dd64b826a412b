package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/curatrak/internal/model"
	"github.com/maxbolgarin/curatrak/internal/sink"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

const (
	defaultInterval = 5 * time.Second
	logHeader       = "# Curatrak Workflow Log\n"
)

// Config represents monitor configuration
type Config struct {
	LogFile  string        `yaml:"log_file" env:"CURATRAK_LOG_FILE"`
	Interval time.Duration `yaml:"interval" env:"MONITOR_INTERVAL"`
	// Iterations bounds the number of polls, zero polls until cancelled
	Iterations int `yaml:"iterations" env:"MONITOR_ITERATIONS"`
	// MaxBackups is the number of rotated segments to read besides the log itself
	MaxBackups int `yaml:"max_backups" env:"CURATRAK_MAX_BACKUPS"`
}

func (c *Config) PrepareAndValidate() error {
	c.LogFile = lang.Check(c.LogFile, sink.DefaultLogFile)
	c.Interval = lang.Check(c.Interval, defaultInterval)
	if c.Interval < 0 {
		return errm.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.Iterations < 0 {
		return errm.Errorf("iterations must not be negative, got %d", c.Iterations)
	}
	return nil
}

// Monitor periodically rescans the event log and prints workflow status
type Monitor struct {
	cfg Config
	out io.Writer
	log logze.Logger
	now func() time.Time
}

// New creates a monitor printing snapshots to out.
func New(cfg Config, out io.Writer) (*Monitor, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	return &Monitor{
		cfg: cfg,
		out: out,
		log: logze.With("component", "monitor", "log_file", cfg.LogFile),
		now: time.Now,
	}, nil
}

// Run polls the log until the iteration limit is reached or ctx is cancelled.
// Both ways of stopping return nil.
func (m *Monitor) Run(ctx context.Context) error {
	fmt.Fprintln(m.out, "Starting Curatrak workflow monitoring...")
	fmt.Fprintf(m.out, "Log file: %s\n", m.cfg.LogFile)

	if err := ensureLogFile(m.cfg.LogFile); err != nil {
		return errm.Wrap(err, "failed to create log file")
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for i := 1; m.cfg.Iterations == 0 || i <= m.cfg.Iterations; i++ {
		if m.cfg.Iterations > 0 {
			fmt.Fprintf(m.out, "\nMonitoring iteration %d/%d\n", i, m.cfg.Iterations)
		}

		snap, err := m.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			m.log.Err(err, "failed to process log file")
		} else {
			snap.Print(m.out)
		}

		if m.cfg.Iterations > 0 && i == m.cfg.Iterations {
			fmt.Fprintln(m.out, "\nMonitoring completed.")
			return nil
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(m.out, "\nMonitoring stopped.")
			return nil
		case <-ticker.C:
		}
	}

	fmt.Fprintln(m.out, "\nMonitoring stopped.")
	return nil
}

// Snapshot scans the log and its rotated segments once.
func (m *Monitor) Snapshot(ctx context.Context) (Snapshot, error) {
	timer := abstract.StartTimer()
	states, stats, err := ScanFiles(ctx, sink.SegmentPaths(m.cfg.LogFile, m.cfg.MaxBackups))
	if err != nil {
		return Snapshot{}, err
	}
	m.log.Debug("scanned event log", "records", stats.Records, "malformed", stats.Malformed,
		"workflows", len(states), "elapsed_time", timer.ElapsedTime().String())

	return Snapshot{Time: m.now(), States: states, Stats: stats}, nil
}

// Snapshot is the status of all workflows at one point in time
type Snapshot struct {
	Time   time.Time
	States States
	Stats  ScanStats
}

// Print writes a human readable report of the snapshot.
func (s Snapshot) Print(w io.Writer) {
	fmt.Fprintf(w, "\n=== Curatrak Workflow Status (%s) ===\n", s.Time.Format(time.RFC3339))

	if len(s.States) == 0 {
		fmt.Fprintln(w, "No workflows detected yet.")
		return
	}

	active := s.States.Active()
	fmt.Fprintf(w, "Total workflows: %d\n", len(s.States))
	fmt.Fprintf(w, "Active workflows: %d\n", len(active))
	fmt.Fprintf(w, "Closed workflows: %d\n", s.States.Count(model.WorkflowClosed))

	for _, st := range active {
		fmt.Fprintf(w, "\nWorkflow: %s\n", st.WorkflowID)
		fmt.Fprintf(w, "Requests: %d/%d completed\n", st.Completed(), st.Total())

		last := st.LastEvent
		if last == nil {
			continue
		}
		fmt.Fprintf(w, "Last event: %s at %s\n", last.EventType, last.Timestamp)

		if last.EventType == model.EventRequestComplete {
			if usage, ok := last.TokenUsage(); ok {
				fmt.Fprintf(w, "Token usage: prompt=%d completion=%d total=%d\n",
					usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
			}
		}
	}
}

func ensureLogFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	_, err = f.WriteString(logHeader)
	return err
}
