package store

import (
	"context"
	"sync"
	"time"

	"logininfo/internal/settings"
)

// Memory keeps the settings record in process. It counts reads and writes so callers can
// observe how many persistence operations an action performed.
type Memory struct {
	mutex  sync.RWMutex
	rec    *settings.Record
	nextID int64
	reads  int
	writes int
}

// NewMemory builds an empty in-memory settings store.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

func (m *Memory) GetSingleton(_ context.Context) (*settings.Record, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reads++
	if m.rec == nil {
		return nil, nil
	}
	return copyRecord(m.rec), nil
}

func (m *Memory) Create(_ context.Context, opts settings.Options) (*settings.Record, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.rec != nil {
		return nil, settings.ErrRecordExists
	}
	now := time.Now().UTC()
	m.rec = &settings.Record{
		ID:        m.nextID,
		Options:   opts.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.nextID++
	m.writes++
	return copyRecord(m.rec), nil
}

func (m *Memory) Update(_ context.Context, rec *settings.Record, opts settings.Options) (*settings.Record, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.rec == nil || rec == nil || rec.ID != m.rec.ID {
		return nil, settings.ErrRecordNotFound
	}
	m.rec.Options = opts.Clone()
	m.rec.UpdatedAt = time.Now().UTC()
	m.writes++
	return copyRecord(m.rec), nil
}

// Put replaces the stored record without counting a write.
func (m *Memory) Put(rec *settings.Record) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if rec == nil {
		m.rec = nil
		return
	}
	m.rec = copyRecord(rec)
	if m.rec.ID == 0 {
		m.rec.ID = m.nextID
	}
	if m.rec.ID >= m.nextID {
		m.nextID = m.rec.ID + 1
	}
	if m.rec.Options == nil {
		m.rec.Options = settings.Options{}
	}
}

// Writes returns the number of Create and Update calls that changed the store.
func (m *Memory) Writes() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.writes
}

// Reads returns the number of GetSingleton calls.
func (m *Memory) Reads() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.reads
}

func copyRecord(rec *settings.Record) *settings.Record {
	cp := *rec
	cp.Options = rec.Options.Clone()
	return &cp
}
