package proxypool

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/mumumusf/MonsterKombat/internal/shared/logger"
)

// Storage 接口定义了代理列表持久化的行为。
type Storage interface {
	Load() ([]string, error)
	Save(entries []string) error
}

// FileStorage 实现了 Storage 接口，使用纯文本文件 (每行一个代理) 进行持久化。
type FileStorage struct {
	filePath string
	mu       sync.RWMutex
}

// NewFileStorage 创建一个新的 FileStorage 实例。
func NewFileStorage(filePath string) *FileStorage {
	return &FileStorage{filePath: filePath}
}

// Load reads the proxy file. A missing file is an empty list.
func (fs *FileStorage) Load() ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	l := logger.WithComponent("Proxy/Storage")

	file, err := os.Open(fs.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.Info().Str("path", fs.filePath).Msg("Proxy file not found, using direct connections.")
			return []string{}, nil
		}
		return nil, err
	}
	defer file.Close()

	entries, err := ReadEntries(file)
	if err != nil {
		return nil, err
	}
	l.Info().Int("count", len(entries)).Msg("Loaded proxies from file.")
	return entries, nil
}

// Save overwrites the proxy file with one entry per line.
func (fs *FileStorage) Save(entries []string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(fs.filePath, []byte(sb.String()), 0600); err != nil {
		return err
	}

	l := logger.WithComponent("Proxy/Storage")
	l.Info().Int("count", len(entries)).Msg("Saved proxies to file.")
	return nil
}

// LoadPool builds a Pool from storage.
func LoadPool(s Storage) (*Pool, error) {
	entries, err := s.Load()
	if err != nil {
		return nil, err
	}
	return NewPool(entries...), nil
}
