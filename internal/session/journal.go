package session

import (
	"sync"

	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/pkg/types"
)

// journalCapacity bounds how many events a session's journal retains for
// replay; a subscriber asking for anything older gets KindProtocolLaggedBy.
const journalCapacity = 2048

// subscriberBuffer is how many events a live subscriber's channel holds;
// a subscriber that falls this far behind is disconnected (its channel is
// closed) and must resubscribe after that.
const subscriberBuffer = 128

// Journal is a per-session append-only event log plus live broadcast: every
// lifecycle event passes through Append, which assigns the strictly
// increasing Seq and fans it out to current subscribers.
type Journal struct {
	mu          sync.Mutex
	sessionID   string
	events      []types.SessionEvent
	nextSeq     uint64
	subscribers map[uint64]chan types.SessionEvent
	nextSubID   uint64
}

// NewJournal returns an empty journal for one session.
func NewJournal(sessionID string) *Journal {
	return &Journal{
		sessionID:   sessionID,
		subscribers: make(map[uint64]chan types.SessionEvent),
	}
}

// Append assigns the next sequence number to kind/payload, records it, and
// delivers it to every live subscriber. A subscriber whose buffer is full is
// removed and its channel closed rather than blocking the session; it can
// call Subscribe again with its last Seq to get the missed events as
// backlog, or KindProtocolLaggedBy if they have left the retained window.
func (j *Journal) Append(kind types.EventPayloadKind, payload any) types.SessionEvent {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextSeq++
	ev := types.SessionEvent{Seq: j.nextSeq, SessionID: j.sessionID, Kind: kind, Payload: payload}
	j.events = append(j.events, ev)
	if len(j.events) > journalCapacity {
		j.events = j.events[len(j.events)-journalCapacity:]
	}
	for id, ch := range j.subscribers {
		select {
		case ch <- ev:
		default:
			delete(j.subscribers, id)
			close(ch)
		}
	}
	return ev
}

// Subscribe returns the backlog of events strictly after fromSeq (0 means
// "from the start of what's retained"), plus a live channel for everything
// after that and a cancel func to unsubscribe. If fromSeq is older than the
// oldest retained event, it returns apperror.ProtocolLaggedBy instead.
func (j *Journal) Subscribe(fromSeq uint64) ([]types.SessionEvent, <-chan types.SessionEvent, func(), error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.events) > 0 && fromSeq > 0 {
		oldest := j.events[0].Seq
		if fromSeq < oldest-1 {
			return nil, nil, nil, apperror.ProtocolLaggedBy(int(oldest - fromSeq))
		}
	}

	var backlog []types.SessionEvent
	for _, ev := range j.events {
		if ev.Seq > fromSeq {
			backlog = append(backlog, ev)
		}
	}

	ch := make(chan types.SessionEvent, subscriberBuffer)
	id := j.nextSubID
	j.nextSubID++
	j.subscribers[id] = ch

	cancel := func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if _, ok := j.subscribers[id]; ok {
			delete(j.subscribers, id)
			close(ch)
		}
	}
	return backlog, ch, cancel, nil
}

// LastSeq returns the most recently assigned sequence number, 0 if none.
func (j *Journal) LastSeq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextSeq
}
