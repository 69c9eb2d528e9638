package approval

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// DoomLoopThreshold is the number of identical consecutive tool calls that
// trip the detector.
const DoomLoopThreshold = 3

// doomLoopHistory bounds how many call hashes are retained per session.
const doomLoopHistory = 10

// DoomLoopDetector flags a primary agent repeating the same tool call
// (identical name + parameters) back to back, the trigger for the
// doom_loop policy category.
type DoomLoopDetector struct {
	mu      sync.Mutex
	history map[string][]string // sessionID -> recent call hashes
}

// NewDoomLoopDetector returns an empty detector.
func NewDoomLoopDetector() *DoomLoopDetector {
	return &DoomLoopDetector{history: make(map[string][]string)}
}

// Check records one call and reports whether the last DoomLoopThreshold
// calls for sessionID (including this one) are all identical.
func (d *DoomLoopDetector) Check(sessionID, toolName string, params json.RawMessage) bool {
	hash := hashCall(toolName, params)

	d.mu.Lock()
	defer d.mu.Unlock()

	history := d.history[sessionID]
	looped := false
	if len(history) >= DoomLoopThreshold-1 {
		allSame := true
		start := len(history) - (DoomLoopThreshold - 1)
		for i := start; i < len(history); i++ {
			if history[i] != hash {
				allSame = false
				break
			}
		}
		looped = allSame
	}

	history = append(history, hash)
	if len(history) > doomLoopHistory {
		history = history[len(history)-doomLoopHistory:]
	}
	d.history[sessionID] = history

	return looped
}

// Clear drops all history for a session.
func (d *DoomLoopDetector) Clear(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.history, sessionID)
}

// Reset drops history without removing the session entry, used when a
// dissimilar call breaks a streak without ending the session.
func (d *DoomLoopDetector) Reset(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history[sessionID] = nil
}

func hashCall(toolName string, params json.RawMessage) string {
	sum := sha256.Sum256(append([]byte(toolName+"\x00"), params...))
	return hex.EncodeToString(sum[:])
}
