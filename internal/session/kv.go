package session

import (
	"context"
	"sync"
	"sync/atomic"
)

// KV — долговременное хранилище значений сессии (ключ -> строка).
type KV interface {
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetMany атомарно записывает все пары.
	SetMany(ctx context.Context, values map[string]string) error
	// Delete удаляет ключи; отсутствующие ключи не ошибка.
	Delete(ctx context.Context, keys ...string) error
}

// Watcher — KV, умеющий сообщать об изменениях из других контекстов.
// Канал закрывается после отмены ctx. Собственные записи контекста
// в канал не попадают.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// watchBuffer — ёмкость канала событий. При переполнении события
// отбрасываются: опрос всё равно догонит состояние.
const watchBuffer = 16

// MemoryBackend — общее in-memory хранилище для нескольких контекстов
// одного процесса (аналог вкладок одного браузера).
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
	subs map[*memorySub]struct{}

	nextOrigin atomic.Uint64
}

type memorySub struct {
	origin uint64
	ch     chan string
}

// NewMemoryBackend создаёт пустое хранилище.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]string),
		subs: make(map[*memorySub]struct{}),
	}
}

// Attach возвращает новый контекст (view) над общим хранилищем.
func (b *MemoryBackend) Attach() *MemoryKV {
	return &MemoryKV{b: b, origin: b.nextOrigin.Add(1)}
}

// MemoryKV — view над MemoryBackend.
type MemoryKV struct {
	b      *MemoryBackend
	origin uint64
}

// NewMemoryKV — одиночный контекст над собственным хранилищем.
func NewMemoryKV() *MemoryKV {
	return NewMemoryBackend().Attach()
}

// Attach возвращает ещё один контекст над тем же хранилищем.
func (m *MemoryKV) Attach() *MemoryKV {
	return m.b.Attach()
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	v, ok := m.b.data[key]
	return v, ok, nil
}

func (m *MemoryKV) SetMany(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	for k, v := range values {
		m.b.data[k] = v
	}
	for k := range values {
		m.b.notify(m.origin, k)
	}

	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.b.mu.Lock()
	defer m.b.mu.Unlock()

	for _, k := range keys {
		if _, ok := m.b.data[k]; !ok {
			continue
		}
		delete(m.b.data, k)
		m.b.notify(m.origin, k)
	}

	return nil
}

func (m *MemoryKV) Watch(ctx context.Context) (<-chan string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &memorySub{origin: m.origin, ch: make(chan string, watchBuffer)}

	m.b.mu.Lock()
	m.b.subs[sub] = struct{}{}
	m.b.mu.Unlock()

	go func() {
		<-ctx.Done()

		m.b.mu.Lock()
		delete(m.b.subs, sub)
		m.b.mu.Unlock()

		close(sub.ch)
	}()

	return sub.ch, nil
}

// notify вызывается под b.mu.
func (b *MemoryBackend) notify(origin uint64, key string) {
	for sub := range b.subs {
		if sub.origin == origin {
			continue
		}

		select {
		case sub.ch <- key:
		default:
		}
	}
}

var (
	_ KV      = (*MemoryKV)(nil)
	_ Watcher = (*MemoryKV)(nil)
)
