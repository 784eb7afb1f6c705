package app

import (
	"io"
	"log"
	"path/filepath"
	"testing"
)

type fakePending struct {
	ids []string
}

func (f *fakePending) PendingPlans() []string { return f.ids }

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestNotifier_CheckOnce_NoPushWhenNoSessions(t *testing.T) {
	signalPath := filepath.Join(t.TempDir(), ".planforge-notify")
	_ = TouchNotifySignal(signalPath)

	var pushed bool
	pushFunc := func(method string, params any) error {
		pushed = true
		return nil
	}
	n := NewNotifier(signalPath, &fakePending{ids: []string{"p1"}}, func() bool { return false }, pushFunc, discardLogger())
	n.CheckOnce()
	if pushed {
		t.Error("should not push when no sessions are connected")
	}
}

func TestNotifier_CheckOnce_PushWhenPending(t *testing.T) {
	signalPath := filepath.Join(t.TempDir(), ".planforge-notify")
	_ = TouchNotifySignal(signalPath)

	var pushMethod string
	var pushParams PlanUpdateParams
	pushFunc := func(method string, params any) error {
		pushMethod = method
		if p, ok := params.(PlanUpdateParams); ok {
			pushParams = p
		}
		return nil
	}
	n := NewNotifier(signalPath, &fakePending{ids: []string{"p1", "p2"}}, func() bool { return true }, pushFunc, discardLogger())
	n.CheckOnce()
	if pushMethod != "notifications/plan_update" {
		t.Errorf("method = %q, want notifications/plan_update", pushMethod)
	}
	if pushParams.PendingPlans != 2 {
		t.Errorf("PendingPlans = %d, want 2", pushParams.PendingPlans)
	}
	if pushParams.Summary == "" {
		t.Error("Summary should be set")
	}
}

func TestNotifier_CheckOnce_NoPushWhenNothingPending(t *testing.T) {
	signalPath := filepath.Join(t.TempDir(), ".planforge-notify")
	_ = TouchNotifySignal(signalPath)

	var pushed bool
	pushFunc := func(method string, params any) error {
		pushed = true
		return nil
	}
	n := NewNotifier(signalPath, &fakePending{}, func() bool { return true }, pushFunc, discardLogger())
	n.CheckOnce()
	if pushed {
		t.Error("should not push when no plans are pending")
	}
}

func TestNotifier_CheckOnce_DedupsByRevision(t *testing.T) {
	signalPath := filepath.Join(t.TempDir(), ".planforge-notify")
	_ = TouchNotifySignal(signalPath)

	pushes := 0
	pushFunc := func(method string, params any) error {
		pushes++
		return nil
	}
	n := NewNotifier(signalPath, &fakePending{ids: []string{"p1"}}, func() bool { return true }, pushFunc, discardLogger())
	n.CheckOnce()
	n.CheckOnce()
	if pushes != 1 {
		t.Errorf("pushes = %d, want 1 (second check should dedup on revision)", pushes)
	}

	// A new signal revision allows another push.
	_ = TouchNotifySignal(signalPath)
	n.CheckOnce()
	if pushes != 2 {
		t.Errorf("pushes = %d, want 2 after new revision", pushes)
	}
}
