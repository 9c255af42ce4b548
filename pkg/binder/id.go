package binder

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Combine-Capital/cqlog/pkg/errors"
	"github.com/google/uuid"
)

// IDGenerator returns a new, practically unique request id.
type IDGenerator func() string

// UUIDGenerator returns random (version 4) UUIDs.
func UUIDGenerator() string {
	return uuid.NewString()
}

// HexGenerator returns 128 random bits as 32 hex characters.
func HexGenerator() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// fall back to a time-ordered UUID
		if id, err := uuid.NewV7(); err == nil {
			return hex.EncodeToString(id[:])
		}
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// NewIDGenerator returns the generator for a configured format: "uuid" or "hex".
func NewIDGenerator(format string) (IDGenerator, error) {
	switch format {
	case "", "uuid":
		return UUIDGenerator, nil
	case "hex":
		return HexGenerator, nil
	default:
		return nil, errors.NewInvalidInput("correlation.id_format", fmt.Sprintf("unknown format %q", format))
	}
}
