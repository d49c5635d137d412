package app

import (
	"context"
	"testing"
	"time"

	"quality-master/internal/form"
)

func TestConfigScopeKey(t *testing.T) {
	tests := []struct {
		name   string
		po     string
		want   string
		locked bool
	}{
		{"no order", "", "quality-master-live-form:v10:NO_PO", false},
		{"blank order", "   ", "quality-master-live-form:v10:NO_PO", false},
		{"order", " PO-100 ", "quality-master-live-form:v10:PO-100", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ProductionOrder = tt.po
			if got := cfg.ScopeKey().String(); got != tt.want {
				t.Errorf("ScopeKey = %q, want %q", got, tt.want)
			}
			if got := cfg.OrderLocked(); got != tt.locked {
				t.Errorf("OrderLocked = %v, want %v", got, tt.locked)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	got := Config{JPEGQuality: 300}.withDefaults()
	if got.CanvasWidth != form.CanvasWidth || got.CanvasHeight != form.CanvasHeight {
		t.Errorf("canvas = %dx%d", got.CanvasWidth, got.CanvasHeight)
	}
	if got.DebounceInterval != 350*time.Millisecond {
		t.Errorf("debounce = %v", got.DebounceInterval)
	}
	if got.JPEGQuality != 80 {
		t.Errorf("quality = %d", got.JPEGQuality)
	}
	if got.SchemaVersion != form.SchemaVersion {
		t.Errorf("schema = %d", got.SchemaVersion)
	}
	if got.StorageDir != "" {
		t.Errorf("storage dir should stay empty, got %q", got.StorageDir)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	for _, dir := range []string{"", t.TempDir()} {
		cfg := DefaultConfig()
		cfg.StorageDir = dir
		st, err := cfg.OpenStore()
		if err != nil {
			t.Fatalf("OpenStore(%q): %v", dir, err)
		}
		doc := form.New()
		if err := st.Save(ctx, cfg.ScopeKey(), doc); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, ok, err := st.Load(ctx, cfg.ScopeKey())
		if err != nil || !ok || got.ID != doc.ID {
			t.Errorf("Load(%q) = %v, %v, %v", dir, got, ok, err)
		}
	}
}
