package vision

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// CacheStore persists serialized identifications keyed by image hash.
type CacheStore interface {
	GetVisionCache(imageHash string) (payload string, err error)
	SetVisionCache(imageHash string, payload string) error
}

// CachedIdentifier wraps an Identifier with SQLite caching.
type CachedIdentifier struct {
	inner Identifier
	store CacheStore
}

// NewCachedIdentifier creates a cached identifier.
func NewCachedIdentifier(inner Identifier, store CacheStore) *CachedIdentifier {
	return &CachedIdentifier{inner: inner, store: store}
}

// hashImages creates a SHA256 hash from image data.
// Includes length prefix for each image to prevent boundary collisions.
func hashImages(images [][]byte) string {
	h := sha256.New()
	for _, img := range images {
		// Write length to prevent boundary collisions (e.g. [A,B] vs [AB])
		binary.Write(h, binary.LittleEndian, int64(len(img)))
		h.Write(img)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IdentifyImage implements the Identifier interface with caching.
func (c *CachedIdentifier) IdentifyImage(ctx context.Context, imageData []byte, mimeType string) (*Result, error) {
	return c.IdentifyImages(ctx, [][]byte{imageData})
}

// IdentifyImages implements the Identifier interface with caching.
func (c *CachedIdentifier) IdentifyImages(ctx context.Context, images [][]byte) (*Result, error) {
	hash := hashImages(images)

	if c.store != nil {
		payload, err := c.store.GetVisionCache(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check vision cache")
		} else if payload != "" {
			var item Identification
			if err := json.Unmarshal([]byte(payload), &item); err != nil {
				log.Warn().Err(err).Msg("corrupt vision cache entry")
			} else {
				log.Debug().Str("hash", hash[:16]).Msg("vision cache hit")
				return &Result{Item: &item, Usage: Usage{}}, nil
			}
		}
	}

	result, err := c.inner.IdentifyImages(ctx, images)
	if err != nil {
		return nil, err
	}

	if c.store != nil && result.Item != nil {
		payload, err := json.Marshal(result.Item)
		if err == nil {
			if err := c.store.SetVisionCache(hash, string(payload)); err != nil {
				log.Warn().Err(err).Msg("failed to cache vision result")
			} else {
				log.Debug().Str("hash", hash[:16]).Msg("cached vision result")
			}
		}
	}

	return result, nil
}
