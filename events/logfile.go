package events

import (
	"encoding/json"
	"os"
	"time"

	"github.com/stakepool/liquidcore/pool"
)

// LogWriter appends every event it sees to a JSON-lines file, one Record
// per line, so an external tail of the file can reconstruct the pool's
// settlement history without holding an in-process subscription.
type LogWriter struct {
	f *os.File
}

// OpenLogWriter opens (creating if absent) path for append.
func OpenLogWriter(path string) (*LogWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &LogWriter{f: f}, nil
}

// Close releases the underlying file.
func (w *LogWriter) Close() error {
	return w.f.Close()
}

// Write appends ev as a single JSON line.
func (w *LogWriter) Write(ev pool.Event) error {
	record := toRecord(ev, time.Now())
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = w.f.Write(line)
	return err
}

// Pump writes every event it receives from events until the channel is
// closed, logging (rather than aborting) on a write failure so one bad
// record can't stop the stream.
func (w *LogWriter) Pump(events <-chan interface{}, onErr func(error)) {
	for item := range events {
		ev, ok := item.(pool.Event)
		if !ok {
			continue
		}
		if err := w.Write(ev); err != nil && onErr != nil {
			onErr(err)
		}
	}
}
