package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/you/go-voice-flights/internal/providers"
)

type ProviderMock struct {
	name      string
	offers    []providers.RawOffer
	err       error
	delay     time.Duration
	callCount *int32

	mu       sync.Mutex
	lastSeen providers.SearchQuery
}

func (p *ProviderMock) Name() string {
	return p.name
}

func (p *ProviderMock) Search(ctx context.Context, q providers.SearchQuery) ([]providers.RawOffer, error) {
	if p.callCount != nil {
		atomic.AddInt32(p.callCount, 1)
	}
	p.mu.Lock()
	p.lastSeen = q
	p.mu.Unlock()
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.offers, nil
}

func (p *ProviderMock) last() providers.SearchQuery {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}
