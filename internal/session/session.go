// Package session tracks which module traces were read in the current
// editing session. The state is an explicit object persisted by the caller,
// keyed by session id; reads recorded under any other session are invisible.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"archtrace/internal/trace"
)

// ReadState maps module ids to the timestamp of their last trace read within
// one session.
type ReadState struct {
	SessionID string            `json:"session_id"`
	Reads     map[string]string `json:"reads"`
}

// NewReadState returns an empty state for a session.
func NewReadState(sessionID string) *ReadState {
	return &ReadState{SessionID: sessionID, Reads: map[string]string{}}
}

// Load reads persisted state. A missing or unreadable file yields an empty
// state for the requested session: read tracking must never block on its own
// bookkeeping.
func Load(path, sessionID string) *ReadState {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewReadState(sessionID)
	}

	var st ReadState
	if err := json.Unmarshal(data, &st); err != nil {
		return NewReadState(sessionID)
	}
	if st.Reads == nil {
		st.Reads = map[string]string{}
	}

	// A session change invalidates every recorded read.
	if st.SessionID != sessionID {
		return NewReadState(sessionID)
	}
	return &st
}

// LastRead returns when the module's trace was last read in this session.
func (s *ReadState) LastRead(moduleID string) (time.Time, bool) {
	raw, ok := s.Reads[moduleID]
	if !ok {
		return time.Time{}, false
	}
	return trace.ParseTimestamp(raw)
}

// MarkRead records a trace read for the module.
func (s *ReadState) MarkRead(moduleID string, at time.Time) {
	s.Reads[moduleID] = trace.FormatTimestamp(at)
}

// Save persists the state via write-to-temporary-then-rename so a crash
// mid-write cannot corrupt prior state.
func Save(path string, st *ReadState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating coordination directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling read state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".trace-reads-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// Record loads state for the session, marks one module read at the given
// time, and persists the result.
func Record(path, sessionID, moduleID string, at time.Time) error {
	st := Load(path, sessionID)
	st.MarkRead(moduleID, at)
	return Save(path, st)
}
