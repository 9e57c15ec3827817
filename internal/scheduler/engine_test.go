package scheduler

import (
	"errors"
	"testing"
	"time"
)

func TestEngineEmitsInDueOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	if err := engine.Schedule(DueEvent{ID: DueEventID(2), TaskID: 2, UserID: 1, DueAt: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	if err := engine.Schedule(DueEvent{ID: DueEventID(1), TaskID: 1, UserID: 1, DueAt: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitEvent(t, engine.C(), time.Second)
	second := waitEvent(t, engine.C(), time.Second)
	if first.TaskID != 1 || second.TaskID != 2 {
		t.Fatalf("unexpected order: first=%d second=%d", first.TaskID, second.TaskID)
	}
	if engine.Pending() != 0 {
		t.Fatalf("expected empty queue, got %d", engine.Pending())
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	due := time.Now().UTC().Add(20 * time.Millisecond)
	for i := int64(1); i <= 25; i++ {
		if err := engine.Schedule(DueEvent{ID: DueEventID(i), TaskID: i, DueAt: due}); err != nil {
			t.Fatalf("schedule event: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped events > 0, got %d", engine.Dropped())
	}
}

func TestScheduleIgnoresDuplicateIDs(t *testing.T) {
	engine := NewEngine(4)
	due := time.Now().UTC().Add(time.Hour)
	for i := 0; i < 3; i++ {
		if err := engine.Schedule(DueEvent{ID: DueEventID(7), TaskID: 7, DueAt: due}); err != nil {
			t.Fatalf("schedule: %v", err)
		}
	}
	if engine.Pending() != 1 {
		t.Fatalf("expected one queued event, got %d", engine.Pending())
	}
}

func TestCancelUser(t *testing.T) {
	engine := NewEngine(4)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	_ = engine.Schedule(DueEvent{ID: DueEventID(1), TaskID: 1, UserID: 1, DueAt: now.Add(30 * time.Millisecond)})
	_ = engine.Schedule(DueEvent{ID: DueEventID(2), TaskID: 2, UserID: 2, DueAt: now.Add(40 * time.Millisecond)})
	_ = engine.Schedule(DueEvent{ID: DueEventID(3), TaskID: 3, UserID: 1, DueAt: now.Add(time.Hour)})

	if removed := engine.CancelUser(1); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	ev := waitEvent(t, engine.C(), time.Second)
	if ev.UserID != 2 {
		t.Fatalf("cancelled user's event fired: %+v", ev)
	}
	// a cancelled id can be queued again
	if err := engine.Schedule(DueEvent{ID: DueEventID(1), TaskID: 1, UserID: 1, DueAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if engine.Pending() != 1 {
		t.Fatalf("expected 1 pending, got %d", engine.Pending())
	}
}

func TestScheduleValidatesDueTime(t *testing.T) {
	engine := NewEngine(1)
	if err := engine.Schedule(DueEvent{ID: "bad"}); !errors.Is(err, ErrInvalidDueTime) {
		t.Fatalf("expected ErrInvalidDueTime, got %v", err)
	}
}

func TestScheduleAfterStop(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	engine.Stop()
	err := engine.Schedule(DueEvent{ID: "late", DueAt: time.Now().Add(time.Minute)})
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if _, open := <-engine.C(); open {
		t.Fatal("expected output channel closed after stop")
	}
}

func waitEvent(t *testing.T, ch <-chan DueEvent, timeout time.Duration) DueEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
		return DueEvent{}
	}
}

func TestCancelRemovesSingleAlert(t *testing.T) {
	engine := NewEngine(4)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	for i := int64(1); i <= 3; i++ {
		if err := engine.Schedule(DueEvent{ID: DueEventID(i), TaskID: i, UserID: 1, DueAt: now.Add(time.Duration(i) * 20 * time.Millisecond)}); err != nil {
			t.Fatalf("schedule %d: %v", i, err)
		}
	}
	if !engine.Cancel(DueEventID(1)) {
		t.Fatal("expected queued alert to be cancelled")
	}
	if engine.Cancel(DueEventID(1)) {
		t.Fatal("second cancel must report false")
	}
	if engine.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", engine.Pending())
	}

	first := waitEvent(t, engine.C(), time.Second)
	second := waitEvent(t, engine.C(), time.Second)
	if first.TaskID != 2 || second.TaskID != 3 {
		t.Fatalf("unexpected alerts after cancel: %d, %d", first.TaskID, second.TaskID)
	}
}

func TestSameDueTimeOrderedByTaskID(t *testing.T) {
	engine := NewEngine(8)
	due := time.Now().UTC().Add(30 * time.Millisecond)
	for _, id := range []int64{5, 2, 9, 1} {
		if err := engine.Schedule(DueEvent{ID: DueEventID(id), TaskID: id, DueAt: due}); err != nil {
			t.Fatalf("schedule %d: %v", id, err)
		}
	}
	engine.Start()
	defer engine.Stop()

	var got []int64
	for i := 0; i < 4; i++ {
		got = append(got, waitEvent(t, engine.C(), time.Second).TaskID)
	}
	want := []int64{1, 2, 5, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
