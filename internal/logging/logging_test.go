package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	for _, development := range []bool{false, true} {
		l, err := New("warn", development)
		if err != nil {
			t.Fatal(err)
		}
		if l.Core().Enabled(zap.InfoLevel) {
			t.Errorf("development=%t: info entries enabled at warn level", development)
		}
		if !l.Core().Enabled(zap.ErrorLevel) {
			t.Errorf("development=%t: error entries disabled at warn level", development)
		}
	}
	if _, err := New("chatty", false); err == nil {
		t.Error("unknown level: want error, got none")
	}
}
