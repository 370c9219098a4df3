package status

import (
	"bytes"
	"strings"
	"testing"
)

func TestReporterWritesStyledLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewWriter(&buf)

	r.Start("checking %s", "thing")
	r.Success("done")
	r.Fail("broke")
	r.Warn("careful")
	r.Info("plain %d", 42)

	out := buf.String()
	for _, want := range []string{"checking thing", "done", "broke", "careful", "plain 42", "Warning:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 5 {
		t.Errorf("expected 5 lines, got %d", lines)
	}
}

func TestAccentKeepsContent(t *testing.T) {
	if !strings.Contains(Accent("dev-org"), "dev-org") {
		t.Error("Accent dropped the value")
	}
}
