package packs

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/DoyleJ11/buzzer-backend/internal/common/clock"
)

type memoryStore struct {
	mu    sync.RWMutex
	packs map[string]*Pack
	clock clock.Clock
}

// NewMemory returns a process-local Store. Packs are lost on restart.
func NewMemory(clk clock.Clock) Store {
	if clk == nil {
		clk = &clock.DefaultClock{}
	}
	return &memoryStore{packs: make(map[string]*Pack), clock: clk}
}

func (m *memoryStore) Save(ctx context.Context, input *SaveInput) (*Pack, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	p := &Pack{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		GameData:  input.GameData,
		CreatedAt: m.clock.Now().UTC(),
	}

	m.mu.Lock()
	m.packs[p.ID] = p
	m.mu.Unlock()
	return p, nil
}

func (m *memoryStore) Get(ctx context.Context, input *GetInput) (*Pack, error) {
	if input == nil || input.ID == "" {
		return nil, errors.New("input and pack ID cannot be empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.packs[input.ID]
	if !ok {
		return nil, ErrPackNotFound
	}
	return p, nil
}

func (m *memoryStore) List(ctx context.Context, input *ListInput) (*ListOutput, error) {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.packs))
	for _, p := range m.packs {
		out = append(out, p.Summary())
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return &ListOutput{Packs: out}, nil
}

func (m *memoryStore) Delete(ctx context.Context, input *DeleteInput) error {
	if input == nil || input.ID == "" {
		return errors.New("input and pack ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.packs[input.ID]; !ok {
		return ErrPackNotFound
	}
	delete(m.packs, input.ID)
	return nil
}
