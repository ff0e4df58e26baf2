package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		debug       bool
		development bool
	}{
		{"production", false, false},
		{"production debug", true, false},
		{"development", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			log, err := New("test", tt.debug, tt.development)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := log.Core().Enabled(zapcore.DebugLevel); got != (tt.debug) {
				t.Errorf("debug enabled = %v, want %v", got, tt.debug)
			}
		})
	}
}

func TestSync_Nil(t *testing.T) {
	t.Parallel()
	if err := Sync(nil); err != nil {
		t.Errorf("Sync(nil) error = %v", err)
	}
}
