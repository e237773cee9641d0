package meeting

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Guard serializes meeting creation per key
// Acquire returns ErrCreationInProgress when the key is already held
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LocalGuard is an in-process Guard
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalGuard creates a new in-process guard
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]struct{})}
}

// Acquire takes the key or fails fast if it is held
func (g *LocalGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return nil, ErrCreationInProgress
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

func creationKey(userID uuid.UUID) string {
	return fmt.Sprintf("desk:create:%s", userID)
}
