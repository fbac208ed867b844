package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "text format carries attrs",
			cfg:  Config{Level: slog.LevelDebug},
			want: []string{"index started", "collection=hpo"},
		},
		{
			name: "json format",
			cfg:  Config{JSON: true},
			want: []string{`"msg":"index started"`, `"collection":"hpo"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewWithWriter(&buf, tt.cfg)
			logger.Info("index started", "collection", "hpo")

			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelInfo})

	logger.Debug("noisy detail")
	logger.Info("kept")

	if strings.Contains(buf.String(), "noisy detail") {
		t.Error("debug entry should be filtered at info level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("info entry should pass at info level")
	}
}

func TestWithComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{})

	logger.With("component", "splitter").Info("partitioned")

	if !strings.Contains(buf.String(), "component=splitter") {
		t.Errorf("output missing component attr:\n%s", buf.String())
	}
}

func TestNewNop(t *testing.T) {
	t.Parallel()

	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop() returned nil")
	}
	logger.Error("discarded")
}
