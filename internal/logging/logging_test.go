package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		want    logrus.Level
		wantErr bool
	}{
		{"info text", "info", "text", logrus.InfoLevel, false},
		{"debug json", "debug", "json", logrus.DebugLevel, false},
		{"default format", "warn", "", logrus.WarnLevel, false},
		{"upper case", "ERROR", "JSON", logrus.ErrorLevel, false},
		{"bad level", "loud", "text", 0, true},
		{"bad format", "info", "xml", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.format, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && log.GetLevel() != tt.want {
				t.Errorf("level = %v, want %v", log.GetLevel(), tt.want)
			}
		})
	}
}

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("info", "json", &buf)
	if err != nil {
		t.Fatal(err)
	}

	log.WithField("run_id", "abc").Info("starting run")
	log.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if entry["run_id"] != "abc" || entry["msg"] != "starting run" || entry["level"] != "info" {
		t.Errorf("entry = %v", entry)
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	log.Error("nothing")
	if log.GetLevel() != logrus.PanicLevel {
		t.Errorf("level = %v", log.GetLevel())
	}
}
