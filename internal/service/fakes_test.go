package service

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dropship-api/internal/entity"
	"dropship-api/internal/events"
	"dropship-api/internal/repository/repotest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryIdempotency) Acquire(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryIdempotency) Release(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
}

// racingProducts runs afterRead once, right after the next FindByID, so a
// concurrent write lands between a service's read and its write back.
type racingProducts struct {
	*repotest.ProductRepository
	afterRead func()
}

func (r *racingProducts) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.Product, error) {
	p, err := r.ProductRepository.FindByID(ctx, id)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return p, err
}

type racingUsers struct {
	*repotest.UserRepository
	afterRead func()
}

func (r *racingUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	u, err := r.UserRepository.FindByID(ctx, id)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return u, err
}
