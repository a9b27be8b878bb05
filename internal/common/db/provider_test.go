package db

import (
	"context"
	"testing"

	"leetbot/internal/testutil"
)

// stubDatabase is just an identity for provider tests; no queries run.
type stubDatabase struct {
	name string
}

func (s *stubDatabase) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	return nil, nil
}

func (s *stubDatabase) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	return nil
}

func (s *stubDatabase) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	return nil, nil
}

func (s *stubDatabase) Begin(ctx context.Context) (Transaction, error) { return nil, nil }
func (s *stubDatabase) Ping(ctx context.Context) error                 { return nil }
func (s *stubDatabase) Close() error                                   { return nil }
func (s *stubDatabase) Stats() Stats                                   { return Stats{} }

func TestStaticProvider(t *testing.T) {
	database := &stubDatabase{name: "static"}
	provider := NewStaticProvider(database)

	current, err := CurrentDatabase(provider)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, current.(*stubDatabase).name, "static")
}

func TestManagerSwap(t *testing.T) {
	first := &stubDatabase{name: "first"}
	second := &stubDatabase{name: "second"}
	manager := NewManager(first)

	testutil.AssertEqual(t, manager.Current().(*stubDatabase).name, "first")

	prev := manager.Swap(second)
	testutil.AssertEqual(t, prev.(*stubDatabase).name, "first")
	testutil.AssertEqual(t, manager.Current().(*stubDatabase).name, "second")
}

func TestCurrentDatabaseErrors(t *testing.T) {
	if _, err := CurrentDatabase(nil); err == nil {
		t.Fatal("nil provider must fail")
	}
	if _, err := CurrentDatabase(NewStaticProvider(nil)); err == nil {
		t.Fatal("provider holding no database must fail")
	}
}
