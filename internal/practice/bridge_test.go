package practice

import (
	"errors"
	"testing"

	"github.com/hanasu-app/hanasu/internal/transcript"
)

func TestBridgeRequiresHello(t *testing.T) {
	b := NewCaptureBridge(transcript.StreamOptions{})
	if _, err := b.Acquire(); !errors.Is(err, transcript.ErrUnavailable) {
		t.Errorf("Acquire before hello = %v, want ErrUnavailable", err)
	}
}

func TestBridgeRoutesRecognitionEvents(t *testing.T) {
	b := NewCaptureBridge(transcript.StreamOptions{})
	b.SetCapabilities(transcript.Capabilities{Speech: true})

	src, err := b.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	b.FeedFinal("こんにちは")
	b.FeedInterim("きょうは")

	if got := src.Text(); got != "こんにちは" {
		t.Errorf("Text = %q, want final segment only", got)
	}
	if got := src.Preview(); got != "こんにちはきょうは" {
		t.Errorf("Preview = %q, want final plus interim", got)
	}
}

func TestBridgeManualFallback(t *testing.T) {
	b := NewCaptureBridge(transcript.StreamOptions{})
	b.SetCapabilities(transcript.Capabilities{Manual: true})

	src, err := b.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	b.SetManualText("てがきのぶんしょう")
	// Recognition events have no stream source to land on.
	b.FeedFinal("dropped")
	b.RecognitionEnded()

	if got := src.Text(); got != "てがきのぶんしょう" {
		t.Errorf("Text = %q, want manual buffer", got)
	}
}

func TestBridgeNoMechanism(t *testing.T) {
	b := NewCaptureBridge(transcript.StreamOptions{})
	b.SetCapabilities(transcript.Capabilities{})
	if _, err := b.Acquire(); !errors.Is(err, transcript.ErrUnavailable) {
		t.Errorf("Acquire with no mechanism = %v, want ErrUnavailable", err)
	}
}
