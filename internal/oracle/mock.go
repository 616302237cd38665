package oracle

import (
	"context"
	"sync"
)

// Mock is a test double for Oracle. Each method can be overridden with a
// custom function; without an override it returns an unavailable quote.
// Thread-safe for use in concurrent tests.
type Mock struct {
	WatchPriceFunc func(ctx context.Context, brand, model, title string) (Quote, error)
	CardPriceFunc  func(ctx context.Context, q CardQuery) (Quote, error)

	mu sync.Mutex

	// Calls tracks all method invocations for assertions.
	Calls []MockCall
}

// MockCall records a method call for test assertions.
type MockCall struct {
	Method string
	Args   []any
}

var _ Oracle = (*Mock)(nil)

// WatchPrice implements Oracle.
func (m *Mock) WatchPrice(ctx context.Context, brand, model, title string) (Quote, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "WatchPrice", Args: []any{brand, model, title}})
	fn := m.WatchPriceFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, brand, model, title)
	}
	return unavailableQuote(), nil
}

// CardPrice implements Oracle.
func (m *Mock) CardPrice(ctx context.Context, q CardQuery) (Quote, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "CardPrice", Args: []any{q}})
	fn := m.CardPriceFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, q)
	}
	return unavailableQuote(), nil
}

// CallCount returns the number of calls recorded for the given method.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
