package logging_test

import (
	"strings"
	"testing"

	"plexcache/internal/logging"
)

func TestConsoleHandlerOutput(t *testing.T) {
	var buf strings.Builder
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("promote selected", "path", "/mnt/user0/movies/Y.mkv", "count", 3)

	line := buf.String()
	if !strings.Contains(line, "INFO promote selected") {
		t.Fatalf("missing level/message: %q", line)
	}
	if !strings.Contains(line, "path=/mnt/user0/movies/Y.mkv") {
		t.Fatalf("missing path attr: %q", line)
	}
	if !strings.Contains(line, "count=3") {
		t.Fatalf("missing count attr: %q", line)
	}
}

func TestConsoleHandlerQuotesSpacedValues(t *testing.T) {
	var buf strings.Builder
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("scoped failure", "library", "TV Shows")
	if !strings.Contains(buf.String(), `library="TV Shows"`) {
		t.Fatalf("expected quoted value: %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf strings.Builder
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected low-severity records suppressed: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("expected warn record: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf strings.Builder
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("run complete", "run_id", "abc")
	out := buf.String()
	if !strings.Contains(out, `"msg":"run complete"`) || !strings.Contains(out, `"run_id":"abc"`) {
		t.Fatalf("unexpected json output: %q", out)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithAttrsPropagation(t *testing.T) {
	var buf strings.Builder
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.With("run_id", "r-1").Info("start")
	if !strings.Contains(buf.String(), "run_id=r-1") {
		t.Fatalf("expected inherited attr: %q", buf.String())
	}
}
