package session

import (
	"testing"

	"github.com/steerrt/agentrt/pkg/types"
)

func TestJournal_AppendAssignsIncreasingSeq(t *testing.T) {
	j := NewJournal("sess-1")

	ev1 := j.Append(types.EventMessageAdded, types.MessageAddedPayload{})
	ev2 := j.Append(types.EventMessageDelta, types.MessageDeltaPayload{Delta: "x"})

	if ev1.Seq != 1 || ev2.Seq != 2 {
		t.Fatalf("expected seqs 1, 2; got %d, %d", ev1.Seq, ev2.Seq)
	}
	if j.LastSeq() != 2 {
		t.Fatalf("expected LastSeq 2, got %d", j.LastSeq())
	}
}

func TestJournal_SubscribeReturnsBacklogAfterFromSeq(t *testing.T) {
	j := NewJournal("sess-1")
	j.Append(types.EventMessageAdded, nil)
	j.Append(types.EventMessageAdded, nil)
	j.Append(types.EventMessageAdded, nil)

	backlog, ch, cancel, err := j.Subscribe(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	if len(backlog) != 2 {
		t.Fatalf("expected 2 backlog events after seq 1, got %d", len(backlog))
	}
	if backlog[0].Seq != 2 || backlog[1].Seq != 3 {
		t.Fatalf("unexpected backlog seqs: %+v", backlog)
	}

	j.Append(types.EventMessageAdded, nil)
	select {
	case ev := <-ch:
		if ev.Seq != 4 {
			t.Fatalf("expected live event seq 4, got %d", ev.Seq)
		}
	default:
		t.Fatal("expected a live event on the subscriber channel")
	}
}

func TestJournal_SubscribeFromZeroReturnsEverything(t *testing.T) {
	j := NewJournal("sess-1")
	j.Append(types.EventMessageAdded, nil)
	j.Append(types.EventMessageAdded, nil)

	backlog, _, cancel, err := j.Subscribe(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()
	if len(backlog) != 2 {
		t.Fatalf("expected 2 backlog events from seq 0, got %d", len(backlog))
	}
}

func TestJournal_SubscribeTooFarBehindReturnsLagged(t *testing.T) {
	j := NewJournal("sess-1")
	for i := 0; i < journalCapacity+10; i++ {
		j.Append(types.EventMessageAdded, nil)
	}

	_, _, _, err := j.Subscribe(1)
	if err == nil {
		t.Fatal("expected an error for a fromSeq older than the retained window")
	}
}

func TestJournal_CancelClosesChannelAndStopsDelivery(t *testing.T) {
	j := NewJournal("sess-1")
	_, ch, cancel, err := j.Subscribe(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancel()
	j.Append(types.EventMessageAdded, nil)

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after cancel")
	}
}

func TestJournal_SlowSubscriberDoesNotBlockAppend(t *testing.T) {
	j := NewJournal("sess-1")
	_, _, cancel, err := j.Subscribe(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			j.Append(types.EventMessageAdded, nil)
		}
		close(done)
	}()
	<-done
}
