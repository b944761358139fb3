package helpers

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		env, level string
		want       logrus.Level
	}{
		{"development", "", logrus.DebugLevel},
		{"production", "", logrus.InfoLevel},
		{"production", "warn", logrus.WarnLevel},
		{"production", "nonsense", logrus.InfoLevel},
	}
	for _, tt := range tests {
		l := NewLogger("user-service", tt.env, tt.level)
		if l.GetLevel() != tt.want {
			t.Errorf("env=%s level=%q: got %v want %v", tt.env, tt.level, l.GetLevel(), tt.want)
		}
	}
}

func TestLogErrorAddsErrorField(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	LogError(l, "publish failed", errors.New("boom"), logrus.Fields{"user_id": 1})
	out := buf.String()
	if !strings.Contains(out, `"error":"boom"`) || !strings.Contains(out, `"user_id":1`) {
		t.Fatalf("log line = %s", out)
	}
}
