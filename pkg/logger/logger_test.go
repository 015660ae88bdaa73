package logger

import "testing"

func TestNew(t *testing.T) {
	t.Run("DefaultLevel", func(t *testing.T) {
		l, err := New("")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !l.Core().Enabled(0) {
			t.Error("Expected info level to be enabled")
		}
	})

	t.Run("DebugLevel", func(t *testing.T) {
		l, err := New("debug")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !l.Core().Enabled(-1) {
			t.Error("Expected debug level to be enabled")
		}
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		if _, err := New("loud"); err == nil {
			t.Fatal("Expected an error for an unknown level, got nil")
		}
	})
}

func TestNamedNil(t *testing.T) {
	if Named(nil, "svc") == nil {
		t.Fatal("Expected a no-op logger, got nil")
	}
}
