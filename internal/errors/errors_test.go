package errors

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

type recordingReporter struct {
	mu       sync.Mutex
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestBuildDefaults(t *testing.T) {
	err := fmt.Errorf("test error")
	ee := New(err).Build()

	if ee.Err.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Err.Error())
	}
	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic', got '%s'", ee.Category)
	}
	if ee.GetComponent() != ComponentUnknown {
		t.Errorf("Expected component 'unknown' for errors built inside this package, got '%s'", ee.GetComponent())
	}
}

func TestCategoryKindsAreDistinguishable(t *testing.T) {
	t.Parallel()

	imgErr := New(NewStd("bad bytes")).Category(CategoryInvalidImage).Build()
	infErr := New(NewStd("invoke failed")).Category(CategoryInference).Build()
	wrapped := fmt.Errorf("diagnose: %w", imgErr)

	if !IsCategory(wrapped, CategoryInvalidImage) {
		t.Errorf("wrapped error lost its category")
	}
	if IsCategory(wrapped, CategoryInference) {
		t.Errorf("invalid image error reported as inference error")
	}
	if GetCategory(infErr) != CategoryInference {
		t.Errorf("Expected inference category, got %q", GetCategory(infErr))
	}
	if GetCategory(NewStd("plain")) != "" {
		t.Errorf("plain errors must have no category")
	}
}

func TestClientCaused(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category ErrorCategory
		want     bool
	}{
		{CategoryInvalidImage, true},
		{CategoryInvalidArgument, true},
		{CategoryInference, false},
		{CategoryPersistence, false},
		{CategoryGeneric, false},
	}
	for _, tt := range tests {
		err := New(NewStd("x")).Category(tt.category).Build()
		if got := ClientCaused(err); got != tt.want {
			t.Errorf("ClientCaused(%s) = %v, want %v", tt.category, got, tt.want)
		}
	}
}

func TestCategoryInheritedFromWrappedError(t *testing.T) {
	t.Parallel()

	inner := New(NewStd("commit failed")).Category(CategoryPersistence).Build()
	outer := New(fmt.Errorf("append: %w", inner)).Context("operation", "append").Build()

	if outer.Category != CategoryPersistence {
		t.Errorf("Expected inherited category persistence, got %s", outer.Category)
	}
	if !Is(outer, inner) {
		t.Errorf("Is must match by category")
	}
}

func TestContextIsCopied(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Context("limit", -1).FileContext("scan.PNG", 2048).Build()
	ctx := ee.GetContext()
	ctx["limit"] = 99

	if ee.GetContext()["limit"] != -1 {
		t.Errorf("GetContext must return a copy")
	}
	if ee.GetContext()["file_extension"] != "png" {
		t.Errorf("Expected file_extension png, got %v", ee.GetContext()["file_extension"])
	}
	if ee.GetContext()["file_size_category"] != "small" {
		t.Errorf("Expected small size category, got %v", ee.GetContext()["file_size_category"])
	}
}

func TestReporterSkipsClientCausedErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	New(NewStd("not an image")).Category(CategoryInvalidImage).Build()
	New(NewStd("limit")).Category(CategoryInvalidArgument).Build()
	server := New(NewStd("disk full")).Category(CategoryPersistence).Build()

	if len(reporter.reported) != 1 {
		t.Fatalf("Expected exactly one reported error, got %d", len(reporter.reported))
	}
	if reporter.reported[0] != server {
		t.Errorf("reported the wrong error")
	}
	if !server.IsReported() {
		t.Errorf("reported error must be marked")
	}
}

func TestBasicURLScrub(t *testing.T) {
	t.Parallel()

	scrubbed := basicURLScrub("Error at https://api.example.com?api_key=secret123&token=abc")
	if scrubbed != "Error at https://api.example.com?[REDACTED]" {
		t.Errorf("URL scrubbing failed, got: %s", scrubbed)
	}

	scrubbed = basicURLScrub("dial postgres://lung:hunter2@db:5432/lungcheck failed")
	if strings.Contains(scrubbed, "hunter2") {
		t.Errorf("DSN password still present: %s", scrubbed)
	}

	scrubbed = basicURLScrub("Config error: api_key=secret123 is invalid")
	if !strings.Contains(scrubbed, "[API_KEY_REDACTED]") {
		t.Errorf("API key scrubbing failed, got: %s", scrubbed)
	}
}
