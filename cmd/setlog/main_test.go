package main

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

// TestLogErrorsReportsEachCloseError verifies every combined error is logged
// and a nil error logs nothing.
func TestLogErrorsReportsEachCloseError(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	if logErrors(log, "close error", nil) {
		t.Error("nil error reported as failure")
	}
	if buf.Len() != 0 {
		t.Errorf("nil error logged: %s", buf.String())
	}

	err := multierr.Combine(errors.New("tsnet: close failed"), errors.New("pool: close failed"))
	if !logErrors(log, "close error", err) {
		t.Error("combined error not reported")
	}
	out := buf.String()
	if strings.Count(out, "msg=\"close error\"") != 2 {
		t.Errorf("want two close error lines in:\n%s", out)
	}
	for _, want := range []string{"tsnet: close failed", "pool: close failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
