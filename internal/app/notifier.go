package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounceMs   = 200
	defaultPollInterval = 10 * time.Second
)

// PlanUpdateParams is the payload for notifications/plan_update.
type PlanUpdateParams struct {
	PendingPlans int    `json:"pending_plans"`
	Summary      string `json:"summary"`
}

// PendingLister reports plans that still need attention. Implemented by PlanService.
type PendingLister interface {
	PendingPlans() []string
}

// Notifier watches the signal file and pushes plan_update notifications to
// connected sessions when plan state changes while plans are still pending.
type Notifier struct {
	signalPath   string
	pending      PendingLister
	hasSessions  func() bool
	pushFunc     func(method string, params any) error
	logger       *log.Logger
	debounceMs   int
	pollInterval time.Duration

	mu            sync.Mutex
	lastPushedRev string
	debounceTimer *time.Timer
	watcher       *fsnotify.Watcher
	useFsnotify   bool
	stopCh        chan struct{}
	doneCh        chan struct{}
	pushMu        sync.Mutex // serializes checkAndPush to prevent duplicate pushes
}

// NotifierOption configures the notifier.
type NotifierOption func(*Notifier)

// WithPollInterval sets the fallback poll interval.
func WithPollInterval(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		n.pollInterval = d
	}
}

// NewNotifier creates a notifier. hasSessions reports whether any client session
// is connected; if false, push is skipped. pushFunc is called with method
// "notifications/plan_update" and params PlanUpdateParams when pending plans exist.
func NewNotifier(signalPath string, pending PendingLister, hasSessions func() bool, pushFunc func(method string, params any) error, logger *log.Logger, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		signalPath:   signalPath,
		pending:      pending,
		hasSessions:  hasSessions,
		pushFunc:     pushFunc,
		logger:       logger,
		debounceMs:   defaultDebounceMs,
		pollInterval: defaultPollInterval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Start starts the file watcher and fallback poll. Returns when ctx is cancelled.
// If fsnotify fails to initialize, falls back to poll-only mode.
func (n *Notifier) Start(ctx context.Context) {
	defer close(n.doneCh)

	watchDir := filepath.Dir(n.signalPath)
	signalName := filepath.Base(n.signalPath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		n.logger.Printf("Notifier: fsnotify init failed (%v), using poll-only", err)
		n.useFsnotify = false
	} else {
		n.watcher = watcher
		n.useFsnotify = true
		if err := watcher.Add(watchDir); err != nil {
			n.logger.Printf("Notifier: fsnotify add %s failed (%v), using poll-only", watchDir, err)
			_ = watcher.Close()
			n.watcher = nil
			n.useFsnotify = false
		}
	}

	if n.useFsnotify {
		defer n.watcher.Close()
		go n.watchLoop(ctx, signalName)
	}

	n.pollLoop(ctx)
}

// Stop signals the notifier to stop. Call after cancelling the context passed to Start.
func (n *Notifier) Stop() {
	close(n.stopCh)
	<-n.doneCh
}

// CheckOnce runs one check-and-push cycle (for testing or manual trigger).
func (n *Notifier) CheckOnce() {
	n.checkAndPush()
}

// Trigger forces a check-and-push cycle, bypassing the revision dedup.
// Call after a state write (e.g. from PlanService) to ensure connected
// sessions hear about the change even if fsnotify misses the same-process write.
func (n *Notifier) Trigger() {
	n.mu.Lock()
	n.lastPushedRev = "" // reset so checkAndPush won't skip
	n.mu.Unlock()
	n.triggerDebounced()
}

func (n *Notifier) watchLoop(ctx context.Context, signalName string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.stopCh:
			return
		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != signalName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			n.triggerDebounced()
		case _, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (n *Notifier) triggerDebounced() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.debounceTimer != nil {
		n.debounceTimer.Stop()
	}
	n.debounceTimer = time.AfterFunc(time.Duration(n.debounceMs)*time.Millisecond, func() {
		n.checkAndPush()
	})
}

func (n *Notifier) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.stopCh:
			return
		case <-ticker.C:
			n.checkAndPush()
		}
	}
}

func (n *Notifier) checkAndPush() {
	// Serialize the entire check-and-push cycle. Without this, the debounce timer
	// goroutine and the poll loop can both pass the revision dedup check concurrently,
	// causing duplicate push notifications.
	n.pushMu.Lock()
	defer n.pushMu.Unlock()

	rev := n.readSignalRevision()
	if rev == "" {
		return
	}
	n.mu.Lock()
	if rev == n.lastPushedRev {
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	markPushed := func() {
		n.mu.Lock()
		n.lastPushedRev = rev
		n.mu.Unlock()
	}

	if n.hasSessions != nil && !n.hasSessions() {
		// Still update rev so we don't re-run for the same signal.
		markPushed()
		return
	}

	pending := n.pending.PendingPlans()
	if len(pending) == 0 {
		markPushed()
		return
	}

	params := PlanUpdateParams{
		PendingPlans: len(pending),
		Summary:      buildSummary(pending),
	}
	if err := n.pushFunc("notifications/plan_update", params); err != nil {
		n.logger.Printf("Notifier: push failed: %v", err)
		return
	}
	markPushed()
}

func (n *Notifier) readSignalRevision() string {
	data, err := os.ReadFile(n.signalPath)
	if err != nil {
		return ""
	}
	return string(data)
}

func buildSummary(pending []string) string {
	if len(pending) == 1 {
		return fmt.Sprintf("plan %s has pending work", pending[0])
	}
	return fmt.Sprintf("%d plans have pending work", len(pending))
}
