package transcript

import (
	"sync"
	"testing"
	"time"
)

func TestStreamFinalSegmentsAccumulate(t *testing.T) {
	s := NewStreamSource(StreamOptions{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.FeedFinal("こんにちは")
	s.FeedInterim("きょう")
	if got := s.Text(); got != "こんにちは" {
		t.Errorf("Text = %q, interim must not join the permanent transcript", got)
	}
	if got := s.Preview(); got != "こんにちはきょう" {
		t.Errorf("Preview = %q, want final+interim", got)
	}

	// A later final replaces the interim tail.
	s.FeedFinal("きょうは")
	if got := s.Text(); got != "こんにちはきょうは" {
		t.Errorf("Text = %q, want merged finals", got)
	}
	if got := s.Preview(); got != "こんにちはきょうは" {
		t.Errorf("Preview = %q, interim should be cleared by a final", got)
	}
}

func TestStreamRestartsWhileIntentHolds(t *testing.T) {
	var mu sync.Mutex
	restarted := 0
	s := NewStreamSource(StreamOptions{
		RestartDelay: time.Millisecond,
		OnRestart: func() {
			mu.Lock()
			restarted++
			mu.Unlock()
		},
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.RecognitionEnded()
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return restarted == 1
	}, "restart after spontaneous end")

	s.RecognitionError("network")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return restarted == 2
	}, "restart after error")

	if got := s.Restarts(); got != 2 {
		t.Errorf("Restarts = %d, want 2", got)
	}
}

func TestStreamStopCancelsPendingRestart(t *testing.T) {
	var mu sync.Mutex
	restarted := false
	s := NewStreamSource(StreamOptions{
		RestartDelay: 5 * time.Millisecond,
		OnRestart: func() {
			mu.Lock()
			restarted = true
			mu.Unlock()
		},
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.FeedFinal("text before stop")
	s.RecognitionEnded() // schedules a restart
	s.Stop()             // clears intent before the timer fires

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if restarted {
		t.Error("restart fired after Stop; in-flight timer must no-op")
	}
	if got := s.Text(); got != "text before stop" {
		t.Errorf("Text after Stop = %q, captured text must be retained", got)
	}
}

func TestStreamFeedAfterStopDropped(t *testing.T) {
	s := NewStreamSource(StreamOptions{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.FeedFinal("kept")
	s.Stop()
	s.Stop() // idempotent
	s.FeedFinal("dropped")
	s.FeedInterim("dropped")

	if got := s.Text(); got != "kept" {
		t.Errorf("Text = %q, want %q", got, "kept")
	}
	if got := s.Preview(); got != "kept" {
		t.Errorf("Preview = %q, want %q", got, "kept")
	}
}

func TestManualSource(t *testing.T) {
	m := NewManualSource(nil)
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.SetText("typed answer")
	m.Stop()
	m.SetText("after stop")

	if got := m.Text(); got != "typed answer" {
		t.Errorf("Text = %q, want %q", got, "typed answer")
	}
}

func TestSelectPolicy(t *testing.T) {
	if src, err := Select(Capabilities{Speech: true, Manual: true}, StreamOptions{}, nil); err != nil {
		t.Fatalf("Select(speech): %v", err)
	} else if _, ok := src.(*StreamSource); !ok {
		t.Errorf("Select(speech) = %T, want *StreamSource", src)
	}

	if src, err := Select(Capabilities{Manual: true}, StreamOptions{}, nil); err != nil {
		t.Fatalf("Select(manual): %v", err)
	} else if _, ok := src.(*ManualSource); !ok {
		t.Errorf("Select(manual) = %T, want *ManualSource", src)
	}

	if _, err := Select(Capabilities{}, StreamOptions{}, nil); err != ErrUnavailable {
		t.Errorf("Select(none) error = %v, want ErrUnavailable", err)
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
