package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Level = %s, want info", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Pretty = true, want JSON by default")
	}
	if cfg.MaxSizeMB != 50 || cfg.MaxBackups != 3 {
		t.Errorf("rotation = %dMB/%d, want 50MB/3", cfg.MaxSizeMB, cfg.MaxBackups)
	}
}

// TestSetup_LevelFiltering emits one event per level and checks which of
// them reach the output.
func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  []string
		drop  []string
	}{
		{level: LevelDebug, want: []string{"request", "progress", "limit", "failure"}},
		{level: LevelInfo, want: []string{"progress", "limit", "failure"}, drop: []string{"request"}},
		{level: LevelWarn, want: []string{"limit", "failure"}, drop: []string{"request", "progress"}},
		{level: "WARNING", want: []string{"limit", "failure"}, drop: []string{"request", "progress"}},
		{level: LevelError, want: []string{"failure"}, drop: []string{"request", "progress", "limit"}},
		{level: "verbose", want: []string{"progress", "limit", "failure"}, drop: []string{"request"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			Setup(Config{Level: tt.level, Output: buf})

			logger := NewLogger("odata-client")
			logger.Debug().Str("url", "https://oda.ft.dk/api/Dokument").Msg("request")
			logger.Info().Int("pages", 50).Msg("progress")
			logger.Warn().Int("max_pages", 10).Msg("limit")
			logger.Error().Str("entity_set", "Dokument").Msg("failure")

			output := buf.String()
			for _, msg := range tt.want {
				if !strings.Contains(output, `"message":"`+msg+`"`) {
					t.Errorf("output misses %q at level %s: %s", msg, tt.level, output)
				}
			}
			for _, msg := range tt.drop {
				if strings.Contains(output, `"message":"`+msg+`"`) {
					t.Errorf("output contains %q at level %s", msg, tt.level)
				}
			}
		})
	}
}

func TestZerologLevel(t *testing.T) {
	tests := []struct {
		input LogLevel
		want  zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"Error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"trace", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := zerologLevel(tt.input); got != tt.want {
			t.Errorf("zerologLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLogger_Component(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("odata-fetch")
	logger.Info().Str("walk_id", "abc").Msg("walk done")

	output := buf.String()
	for _, want := range []string{`"component":"odata-fetch"`, `"walk_id":"abc"`, `"time":`} {
		if !strings.Contains(output, want) {
			t.Errorf("output misses %s: %s", want, output)
		}
	}
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odata.log")

	logger, closer := Setup(Config{
		Level:  LevelInfo,
		Pretty: true,
		File:   path,
	})
	logger.Info().Str("entity_set", "Dokument").Msg("file message")

	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	// Pretty is ignored for files.
	output := string(data)
	if !strings.Contains(output, `"message":"file message"`) {
		t.Errorf("file output is not JSON: %q", output)
	}
	if !strings.Contains(output, `"entity_set":"Dokument"`) {
		t.Errorf("file output misses entity_set: %q", output)
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, closer := Setup(Config{
		Level:  LevelInfo,
		Pretty: true,
		Output: buf,
	})
	defer closer.Close()

	logger.Info().Msg("pretty message")

	output := buf.String()
	if !strings.Contains(output, "pretty message") {
		t.Errorf("output misses message: %q", output)
	}
	if strings.Contains(output, `"message"`) {
		t.Errorf("output is JSON, want console format: %q", output)
	}
}

func TestOrDefault(t *testing.T) {
	for _, tt := range []struct{ v, want int }{{0, 7}, {-1, 7}, {3, 3}} {
		if got := orDefault(tt.v, 7); got != tt.want {
			t.Errorf("orDefault(%d, 7) = %d, want %d", tt.v, got, tt.want)
		}
	}
}
