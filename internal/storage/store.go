// Package storage persists the records of finished accounts.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mumumusf/MonsterKombat/internal/shared/logger"
)

// Balance is the persisted currency snapshot.
type Balance struct {
	Gem   float64 `json:"gem"`
	Token float64 `json:"token"`
}

// AccountRecord is one finished account as written to the wallets file.
type AccountRecord struct {
	Address     string    `json:"address"`
	PrivateKey  string    `json:"privateKey"`
	AccessToken string    `json:"accessToken"`
	RefCode     string    `json:"refCode"`
	Balance     Balance   `json:"balance"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store 定义账户记录的持久化行为。
type Store interface {
	Append(rec AccountRecord) error
	Load() ([]AccountRecord, error)
}

// JSONFileStore keeps every record in a single indented JSON array.
type JSONFileStore struct {
	filePath string
	mu       sync.Mutex
	logger   zerolog.Logger
}

// NewJSONFileStore creates a store backed by filePath.
func NewJSONFileStore(filePath string) *JSONFileStore {
	return &JSONFileStore{
		filePath: filePath,
		logger:   logger.WithComponent("Storage"),
	}
}

// Append reads the array, appends rec and rewrites the whole file. A missing
// or unreadable array starts over from empty.
func (s *JSONFileStore) Append(rec AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.read()
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal account records: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", s.filePath, err)
	}

	s.logger.Info().
		Str("address", rec.Address).
		Str("path", s.filePath).
		Int("total", len(records)).
		Msg("Account saved.")
	return nil
}

// Load returns the stored records; missing or corrupt files read as empty.
func (s *JSONFileStore) Load() ([]AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(), nil
}

func (s *JSONFileStore) read() []AccountRecord {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.filePath).Msg("Cannot read wallets file, starting a new one.")
		}
		return []AccountRecord{}
	}

	var records []AccountRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn().Err(err).Str("path", s.filePath).Msg("Wallets file is corrupt, starting a new one.")
		return []AccountRecord{}
	}
	if records == nil {
		records = []AccountRecord{}
	}
	return records
}
