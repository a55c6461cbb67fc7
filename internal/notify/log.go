package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// boundedLog is a JSON-file backed list that keeps at most maxSize entries,
// dropping the oldest when a new one arrives.
type boundedLog[T any] struct {
	items    []T
	mu       sync.RWMutex
	dataFile string
	maxSize  int
}

func newBoundedLog[T any](dataFile string, maxSize int) (*boundedLog[T], error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max size must be positive, got %d", maxSize)
	}
	l := &boundedLog[T]{
		items:    make([]T, 0, maxSize),
		dataFile: dataFile,
		maxSize:  maxSize,
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *boundedLog[T]) Append(item T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, item)
	if over := len(l.items) - l.maxSize; over > 0 {
		l.items = append(l.items[:0:0], l.items[over:]...)
	}
	return l.save()
}

func (l *boundedLog[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *boundedLog[T]) List() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]T, len(l.items))
	copy(result, l.items)
	return result
}

func (l *boundedLog[T]) FindLast(predicate func(T) bool) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.items) - 1; i >= 0; i-- {
		if predicate(l.items[i]) {
			return l.items[i], true
		}
	}
	var zero T
	return zero, false
}

func (l *boundedLog[T]) load() error {
	if l.dataFile == "" {
		return nil
	}

	data, err := os.ReadFile(l.dataFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", l.dataFile, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parse %s: %w", l.dataFile, err)
	}

	if over := len(items) - l.maxSize; over > 0 {
		items = items[over:]
	}
	l.items = items
	return nil
}

func (l *boundedLog[T]) save() error {
	if l.dataFile == "" {
		return nil
	}

	data, err := json.MarshalIndent(l.items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal log: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.dataFile), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	if err := os.WriteFile(l.dataFile, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", l.dataFile, err)
	}
	return nil
}
