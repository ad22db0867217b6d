package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ForecastChart/internal/model"
)

// State is the persisted form of a session.
type State struct {
	Mode      model.Mode `json:"mode"`
	Snapshot  Snapshot   `json:"snapshot"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// LoadState reads the session state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &state, nil
}

// SaveState writes the session state to a JSON file.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// State captures the session for SaveState.
func (s *Session) State() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &State{Mode: s.mode, Snapshot: s.snap}
}

// Load restores a state produced by State. An invalid mode is ignored.
func (s *Session) Load(state *State) {
	if state == nil {
		return
	}
	if state.Mode.Valid() {
		_ = s.SetMode(state.Mode)
	}
	if !state.Snapshot.Empty() {
		s.Restore(state.Snapshot)
	}
}
