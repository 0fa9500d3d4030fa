package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	fn()
	_ = w.Close()
	os.Stdout = orig

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r); err != nil {
		t.Fatalf("read output: %v", err)
	}
	_ = r.Close()
	return buf.String()
}

func TestPrintCIResultJSONOutput(t *testing.T) {
	out := captureStdout(t, func() {
		PrintCIResult(false, "seed apply", []string{"x", "y"}, errors.New("boom"))
	})

	var got CIResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("unmarshal output: %v; raw=%q", err, out)
	}
	if got.OK || got.Title != "seed apply" || got.Error != "boom" || len(got.Details) != 2 {
		t.Fatalf("unexpected ci result: %+v", got)
	}
}

func TestPrintCIResultHumanOutput(t *testing.T) {
	out := captureStdout(t, func() {
		PrintCIResult(true, "migrate up", []string{"drivers"}, nil)
	})
	if !strings.Contains(out, "migrate up: OK") || !strings.Contains(out, "- drivers") {
		t.Fatalf("unexpected human output %q", out)
	}
}

func TestRunPropagatesError(t *testing.T) {
	var details []string
	var err error
	captureStdout(t, func() {
		details, err = Run(true, time.Second, "title", func(ctx context.Context) ([]string, error) {
			return []string{"partial"}, context.DeadlineExceeded
		})
	})
	if !errors.Is(err, context.DeadlineExceeded) || len(details) != 1 {
		t.Fatalf("expected propagated error and details, got details=%v err=%v", details, err)
	}
}
