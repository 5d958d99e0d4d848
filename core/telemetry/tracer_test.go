package telemetry

import (
	"context"
	"testing"

	"github.com/yarumotors/bot/core/config"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(config.TelemetryConfig{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
