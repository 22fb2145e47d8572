package pipeline

import (
	"errors"
	"strings"
	"testing"
)

func TestFailure_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("tesseract exited 1")
	var err error = &Failure{
		TraceID:  "t-1",
		Filename: "scan.png",
		Phase:    PhaseRecognize,
		Kind:     KindRecognitionFailure,
		Err:      cause,
	}

	if !errors.Is(err, cause) {
		t.Error("Failure does not unwrap to its cause")
	}

	var f *Failure
	if !errors.As(err, &f) || f.Kind != KindRecognitionFailure {
		t.Fatalf("errors.As failed: %v", err)
	}

	msg := err.Error()
	for _, part := range []string{"recognize", "RecognitionFailure", "scan.png", "t-1", "tesseract exited 1"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q missing %q", msg, part)
		}
	}
}
