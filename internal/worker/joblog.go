package worker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JobLog writes one JSON line per crawl event to a per-job file under
// the worker's data root, so a single job's history can be read without
// grepping the main log. Failures to write are swallowed: job logging
// must never fail a crawl.
type JobLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenJobLog creates the per-job log file. Returns a nil JobLog (safe to
// call methods on) when the directory cannot be created.
func OpenJobLog(dataRoot, jobID string) *JobLog {
	dir := filepath.Join(dataRoot, "logs", "jobs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil
	}
	file, err := os.OpenFile(filepath.Join(dir, jobID+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return &JobLog{file: file}
}

// Event appends one JSON line with the event name and fields
func (l *JobLog) Event(event string, fields map[string]interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	record := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339Nano),
		"event": event,
	}
	for k, v := range fields {
		record[k] = v
	}
	line, err := json.Marshal(record)
	if err != nil {
		return
	}
	l.file.Write(append(line, '\n'))
}

// Close flushes and closes the log file
func (l *JobLog) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file.Close()
}
