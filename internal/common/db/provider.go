package db

import (
	"fmt"
	"sync/atomic"
)

// Provider hands out the Database the repositories should use right now.
// The bot process wires a Manager so a reconnect can install a fresh pool
// without touching repository wiring; tests wire a StaticProvider around a
// fake.
type Provider interface {
	Current() Database
}

// CurrentDatabase resolves the provider to a usable Database.
func CurrentDatabase(provider Provider) (Database, error) {
	if provider == nil {
		return nil, fmt.Errorf("database provider is nil")
	}
	database := provider.Current()
	if database == nil {
		return nil, fmt.Errorf("database is nil")
	}
	return database, nil
}

// StaticProvider always hands out the same instance.
type StaticProvider struct {
	database Database
}

func NewStaticProvider(database Database) *StaticProvider {
	return &StaticProvider{database: database}
}

func (p *StaticProvider) Current() Database {
	if p == nil {
		return nil
	}
	return p.database
}

// Manager is a Provider whose instance can be replaced atomically while
// repositories keep reading through it.
type Manager struct {
	current atomic.Value
}

func NewManager(database Database) *Manager {
	m := &Manager{}
	m.current.Store(database)
	return m
}

func (m *Manager) Current() Database {
	if m == nil {
		return nil
	}
	database, _ := m.current.Load().(Database)
	return database
}

// Swap installs next as the active instance and returns the previous one so
// the caller can close it.
func (m *Manager) Swap(next Database) Database {
	prev := m.Current()
	m.current.Store(next)
	return prev
}
