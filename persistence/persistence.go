// Package persistence defines the write-only SessionRecord emission
// boundary: the core never reads these records back, it only writes
// them at session start and removes them at teardown.
package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/fansqz/dapclient/dapclienterr"
	"github.com/fansqz/dapclient/jsonvalue"
	"github.com/google/uuid"
)

// Record is a snapshot of one in-flight session.
type Record struct {
	SessionID         uuid.UUID       `json:"session_id"`
	AdapterIdentifier string          `json:"adapter_identifier"`
	Configuration     jsonvalue.Value `json:"configuration"`
	Timestamp         time.Time       `json:"timestamp"`
}

// Recorder is the interface the session writes SessionRecord
// snapshots to. A nil Recorder is legal; callers that don't need
// persistence pass one.
type Recorder interface {
	Save(Record) error
	Remove(sessionID uuid.UUID) error
}

// FileRecorder is a reference Recorder that writes one JSON file per
// session under Dir, named by session id.
type FileRecorder struct {
	Dir string
}

// NewFileRecorder returns a FileRecorder rooted at dir, creating it if
// necessary.
func NewFileRecorder(dir string) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dapclienterr.Wrap(dapclienterr.PersistenceFailure, "creating session record directory", err)
	}
	return &FileRecorder{Dir: dir}, nil
}

func (f *FileRecorder) path(id uuid.UUID) string {
	return filepath.Join(f.Dir, id.String()+".json")
}

func (f *FileRecorder) Save(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return dapclienterr.Wrap(dapclienterr.PersistenceFailure, "encoding session record", err)
	}
	if err := os.WriteFile(f.path(r.SessionID), data, 0o644); err != nil {
		return dapclienterr.Wrap(dapclienterr.PersistenceFailure, "writing session record", err)
	}
	return nil
}

func (f *FileRecorder) Remove(sessionID uuid.UUID) error {
	err := os.Remove(f.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return dapclienterr.Wrap(dapclienterr.PersistenceFailure, "removing session record", err)
	}
	return nil
}
