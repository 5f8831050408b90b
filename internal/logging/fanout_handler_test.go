package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(newFanoutHandler(infoHandler, debugHandler))
	logger.Debug("debug only")
	logger.Info("both")

	if strings.Contains(infoBuf.String(), "debug only") {
		t.Fatal("info handler received a debug record")
	}
	if !strings.Contains(debugBuf.String(), "debug only") || !strings.Contains(debugBuf.String(), "both") {
		t.Fatalf("debug handler missing records: %s", debugBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "both") {
		t.Fatalf("info handler missing record: %s", infoBuf.String())
	}
	if newFanoutHandler(infoHandler, debugHandler).Enabled(context.Background(), slog.LevelDebug) == false {
		t.Fatal("expected fanout enabled when any handler accepts the level")
	}
}

func TestTeeLoggerPropagatesAttrs(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))
	tee := TeeLogger(base, slog.NewJSONHandler(&teeBuf, nil)).With(String(FieldFolder, "goes16"))

	tee.Info("tee message")

	for name, out := range map[string]string{"base": baseBuf.String(), "tee": teeBuf.String()} {
		if !strings.Contains(out, `"folder":"goes16"`) || !strings.Contains(out, "tee message") {
			t.Fatalf("%s output missing attrs: %s", name, out)
		}
	}
}
