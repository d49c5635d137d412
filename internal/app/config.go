package app

import (
	"time"

	"quality-master/internal/form"
	qmimage "quality-master/internal/image"
	"quality-master/internal/store"
)

// Config holds the settings a session and its window are built from.
type Config struct {
	CanvasWidth   int
	CanvasHeight  int
	SchemaVersion int

	// ProductionOrder is the scope selector. When set it chooses the storage
	// scope and locks the production order field.
	ProductionOrder string

	DebounceInterval time.Duration
	JPEGQuality      int

	StorageDir   string // empty keeps documents in memory only
	StorageQuota int64

	Smoothing bool // interpolate strokes with Catmull-Rom between samples
	RemoteURL string
	OCR       bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CanvasWidth:      form.CanvasWidth,
		CanvasHeight:     form.CanvasHeight,
		SchemaVersion:    form.SchemaVersion,
		DebounceInterval: 350 * time.Millisecond,
		JPEGQuality:      qmimage.DefaultJPEGQuality,
		StorageDir:       store.DefaultDir(),
		StorageQuota:     store.DefaultQuota,
	}
}

// ScopeKey returns the storage key selected by the configuration.
func (c Config) ScopeKey() form.ScopeKey {
	k := form.NewScopeKey(c.ProductionOrder)
	k.SchemaVersion = c.SchemaVersion
	return k
}

// OrderLocked reports whether the production order came from the scope
// selector and may not be edited.
func (c Config) OrderLocked() bool {
	return c.ScopeKey().ProductionOrder != ""
}

// withDefaults fills zero fields from DefaultConfig, leaving StorageDir as
// given.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		c.CanvasWidth, c.CanvasHeight = def.CanvasWidth, def.CanvasHeight
	}
	if c.SchemaVersion <= 0 {
		c.SchemaVersion = def.SchemaVersion
	}
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = def.DebounceInterval
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = def.JPEGQuality
	}
	if c.StorageQuota == 0 {
		c.StorageQuota = def.StorageQuota
	}
	return c
}

// OpenStore builds the document store the configuration describes.
func (c Config) OpenStore() (store.Store, error) {
	if c.StorageDir == "" {
		return store.New(store.NewMemoryBackend(c.StorageQuota)), nil
	}
	backend, err := store.NewFileBackend(c.StorageDir, c.StorageQuota)
	if err != nil {
		return nil, err
	}
	return store.New(backend), nil
}
