package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Generator creates run identifiers that sort by start time.
type Generator interface {
	NewID() (string, error)
}

type RunIDGenerator struct {
	now func() time.Time
}

func NewRunIDGenerator() *RunIDGenerator {
	return &RunIDGenerator{now: time.Now}
}

// NewID returns "<UTC yyyymmddThhmmss>-<8 hex chars>".
func (g *RunIDGenerator) NewID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	now := time.Now
	if g != nil && g.now != nil {
		now = g.now
	}

	return now().UTC().Format("20060102T150405") + "-" + hex.EncodeToString(buf), nil
}
