package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info line emitted at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn line missing")
	}
}

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "nonsense", Output: &buf})

	log.Info().Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("unknown level should fall back to info")
	}
}

func TestNewCarriesServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})

	log.Info().Msg("hi")
	if !strings.Contains(buf.String(), `"service":"jobtrust"`) {
		t.Errorf("missing default service field: %s", buf.String())
	}
}

func TestErrorFormatting(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})

	log.Error().Msgf("failed to initialize dependencies: %v", errors.New("boom"))
	if !strings.Contains(buf.String(), "failed to initialize dependencies: boom") {
		t.Errorf("formatted message missing: %s", buf.String())
	}
}
