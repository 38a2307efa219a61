package domain

import "encoding/json"

// Snapshot is the local recovery record of an in-progress session
type Snapshot struct {
	Game         *Session `json:"game"`
	Phase        Phase    `json:"phase"`
	LastTurnTime int64    `json:"lastTurnTime"`
}

// Resumable reports whether the snapshot describes a session that can be resumed
func (s *Snapshot) Resumable() bool {
	return s != nil &&
		s.Game != nil &&
		s.Phase == PhasePlaying &&
		s.Game.Player1 != "" &&
		s.Game.Player2 != "" &&
		!s.Game.Finished()
}

// DecodeSnapshot parses stored snapshot data. ok is false for malformed or non-resumable data.
func DecodeSnapshot(data []byte) (snapshot *Snapshot, ok bool) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false
	}
	if !s.Resumable() {
		return nil, false
	}
	return &s, true
}
