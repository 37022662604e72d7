package eventbus

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

const journalBuffer = 64

// Journal appends events to one NDJSON file per day.
type Journal struct {
	dir string
	mu  sync.Mutex
}

func NewJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	return &Journal{dir: dir}, nil
}

func (j *Journal) path(day time.Time) string {
	return filepath.Join(j.dir, fmt.Sprintf("events_%s.ndjson", day.Local().Format(time.DateOnly)))
}

// Record appends one event to the file of the day it was created.
func (j *Journal) Record(e *Event) error {
	data, err := sonic.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.OpenFile(j.path(e.CreatedAt), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return f.Close()
}

// Follow records every event published on bus until ctx is done, then
// drains what is already buffered. The returned channel closes when Follow
// has finished.
func (j *Journal) Follow(ctx context.Context, bus *Bus) <-chan struct{} {
	id, events := bus.Subscribe(journalBuffer)
	done := make(chan struct{})
	record := func(e *Event) {
		if err := j.Record(e); err != nil {
			slog.WarnContext(ctx, "failed to journal event", "event_id", e.ID, "type", string(e.Type), "error", err)
		}
	}
	go func() {
		defer close(done)
		defer bus.Unsubscribe(id)
		for {
			select {
			case e := <-events:
				record(e)
			case <-ctx.Done():
				for {
					select {
					case e := <-events:
						record(e)
					default:
						return
					}
				}
			}
		}
	}()
	return done
}

// Read returns the events journaled on day, oldest first. Lines that do not
// parse are skipped.
func (j *Journal) Read(day time.Time) ([]*Event, error) {
	data, err := os.ReadFile(j.path(day))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	var out []*Event
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := sonic.Unmarshal(line, &e); err != nil {
			slog.Warn("skipping corrupt journal line", "file", j.path(day), "error", err)
			continue
		}
		out = append(out, &e)
	}
	return out, sc.Err()
}
