package session

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when no session exists under the given id.
var ErrNotFound = errors.New("session: not found")

// Store persists sessions keyed by id. Implementations must honor the TTL
// handed to Put: an expired record behaves as absent on Get.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
