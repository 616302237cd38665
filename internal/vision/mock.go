package vision

import (
	"context"
	"sync"
)

// MockCall records a call to the mock identifier.
type MockCall struct {
	Method string
	Images [][]byte
}

// Mock is a test double for Identifier.
type Mock struct {
	IdentifyFunc func(ctx context.Context, images [][]byte) (*Result, error)

	mu    sync.Mutex
	Calls []MockCall
}

func (m *Mock) IdentifyImage(ctx context.Context, imageData []byte, mimeType string) (*Result, error) {
	return m.IdentifyImages(ctx, [][]byte{imageData})
}

func (m *Mock) IdentifyImages(ctx context.Context, images [][]byte) (*Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "IdentifyImages", Images: images})
	m.mu.Unlock()

	if m.IdentifyFunc != nil {
		return m.IdentifyFunc(ctx, images)
	}
	return &Result{Item: &Identification{}}, nil
}

// CallCount returns the number of recorded calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
