package notify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Marker registra que un deadline ya fue notificado dentro de su ventana,
// para avisar solo en el borde de entrada. FirstNotice devuelve true la
// primera vez que se consulta un id; el registro expira junto con la ventana.
type Marker interface {
	FirstNotice(deadlineID string, ttl time.Duration) bool
}

const minMarkerTTL = time.Minute

type memoryMarker struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryMarker() Marker {
	return &memoryMarker{seen: make(map[string]time.Time)}
}

func (m *memoryMarker) FirstNotice(deadlineID string, ttl time.Duration) bool {
	if ttl < minMarkerTTL {
		ttl = minMarkerTTL
	}
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	if exp, ok := m.seen[deadlineID]; ok && now.Before(exp) {
		return false
	}
	m.seen[deadlineID] = now.Add(ttl)
	return true
}

type redisSetNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

type redisMarker struct {
	client redisSetNXer
	prefix string
}

// NewRedisMarker guarda las marcas en redis para que sobrevivan reinicios
// del proceso durante la ventana.
func NewRedisMarker(client *redis.Client) Marker {
	if client == nil {
		return nil
	}
	return &redisMarker{
		client: client,
		prefix: "notify:sent:",
	}
}

func (m *redisMarker) FirstNotice(deadlineID string, ttl time.Duration) bool {
	if ttl < minMarkerTTL {
		ttl = minMarkerTTL
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	ok, err := m.client.SetNX(ctx, m.prefix+deadlineID, "1", ttl).Result()
	if err != nil {
		// Ante un fallo de redis se prefiere un SMS duplicado a perder el aviso.
		return true
	}
	return ok
}
