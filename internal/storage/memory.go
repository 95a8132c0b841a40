package storage

import "sync"

// MemoryStore 进程内存储；用于非交互运行和测试
// MemoryStore is an in-process store for non-interactive runs and tests
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// UnavailableStore 模拟没有持久化存储的环境，所有操作返回 ErrUnavailable
// UnavailableStore stands in for an environment without durable storage; every call fails with ErrUnavailable
type UnavailableStore struct{}

func (UnavailableStore) Get(string) (string, error) { return "", ErrUnavailable }
func (UnavailableStore) Set(string, string) error   { return ErrUnavailable }
func (UnavailableStore) Remove(string) error        { return ErrUnavailable }
func (UnavailableStore) Close() error               { return nil }
