package training

import (
	"sync"

	"github.com/steveyiyo/pitchcoach-backend/pkg/types"
)

// Batch is a run of consecutive pose frames.
type Batch [][]types.Landmark

// Batcher accumulates frames until Size are buffered. It is not safe for
// concurrent use; see Batches for a keyed, locked set.
type Batcher struct {
	Size int
	buf  Batch
}

func NewBatcher(size int) *Batcher {
	if size < 1 {
		size = 1
	}
	return &Batcher{Size: size, buf: make(Batch, 0, size)}
}

// Add buffers f. When the buffer reaches Size it is returned and reset.
func (b *Batcher) Add(f []types.Landmark) (Batch, bool) {
	b.buf = append(b.buf, f)
	if len(b.buf) < b.Size {
		return nil, false
	}
	return b.Flush(), true
}

// Flush returns whatever is buffered and resets the buffer.
func (b *Batcher) Flush() Batch {
	out := make(Batch, len(b.buf))
	copy(out, b.buf)
	b.buf = b.buf[:0]
	return out
}

func (b *Batcher) Clear() { b.buf = b.buf[:0] }

func (b *Batcher) Len() int { return len(b.buf) }

// Batches keeps one Batcher per key.
type Batches struct {
	mu   sync.Mutex
	size int
	m    map[string]*Batcher
}

func NewBatches(size int) *Batches {
	return &Batches{size: size, m: map[string]*Batcher{}}
}

func (s *Batches) Add(key string, f []types.Landmark) (Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.m[key]
	if !ok {
		b = NewBatcher(s.size)
		s.m[key] = b
	}
	return b.Add(f)
}

func (s *Batches) Drop(key string) {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
}
