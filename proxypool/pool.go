package proxypool

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// Pool 按加载顺序保存原始代理条目，并以轮询方式分配。
// 条目在加载时不做结构化解析，Parse 在使用时才调用。
type Pool struct {
	entries []string
	cursor  int
	mu      sync.Mutex
}

// NewPool creates a pool over the given raw entries, kept in order.
func NewPool(entries ...string) *Pool {
	cp := make([]string, len(entries))
	copy(cp, entries)
	return &Pool{entries: cp}
}

// Load reads a newline-delimited proxy list into a new pool.
func Load(r io.Reader) (*Pool, error) {
	entries, err := ReadEntries(r)
	if err != nil {
		return nil, err
	}
	return NewPool(entries...), nil
}

// ReadEntries trims every line and drops blank lines and '#' comments.
func ReadEntries(r io.Reader) ([]string, error) {
	entries := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Next returns the entry under the cursor and advances it, wrapping after the
// last element. ok is false for an empty pool, meaning a direct connection.
func (p *Pool) Next() (entry string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		return "", false
	}
	entry = p.entries[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.entries)
	return entry, true
}

// Len returns the number of entries in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Entries returns a snapshot of the raw entries in load order.
func (p *Pool) Entries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.entries))
	copy(out, p.entries)
	return out
}
