package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"kiosk-lottery/internal/models"

	"gopkg.in/yaml.v3"
)

// SettingsFileName is the event settings file under the data directory.
const SettingsFileName = "settings.yaml"

var (
	ErrUnknownPool    = errors.New("指定的奖项不存在")
	ErrInvalidWinners = errors.New("每轮人数必须大于零")
	ErrInvalidDate    = errors.New("活动日期格式应为 YYYY-MM-DD")
)

// DefaultPools returns the five-tier layout used when no settings were saved.
func DefaultPools() []models.PrizePool {
	return []models.PrizePool{
		{ID: models.PoolFirst, Name: "一等奖", MaxWinners: 1, Color: "#FFD700"},
		{ID: models.PoolSecond, Name: "二等奖", MaxWinners: 2, Color: "#C0C0C0"},
		{ID: models.PoolThird, Name: "三等奖", MaxWinners: 3, Color: "#CD7F32"},
		{ID: models.PoolFourth, Name: "四等奖", MaxWinners: 5, Color: "#00a758"},
		{ID: models.PoolLucky, Name: "幸运奖", MaxWinners: 10, Color: "#FF6B6B", IsLucky: true},
	}
}

// Settings persists the operator-edited pools and event date as YAML.
type Settings struct {
	path string

	mu  sync.RWMutex
	cfg models.AppConfig
}

// LoadSettings reads dataDir/settings.yaml. A missing file yields the defaults;
// pools missing from the file are filled in from the defaults.
func LoadSettings(dataDir string) (*Settings, error) {
	s := &Settings{path: filepath.Join(dataDir, SettingsFileName)}

	var saved models.AppConfig
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil && len(data) > 0:
		if err := yaml.Unmarshal(data, &saved); err != nil {
			return nil, fmt.Errorf("settings unmarshal: %w", err)
		}
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("settings read: %w", err)
	}

	s.cfg = models.AppConfig{EventDate: saved.EventDate, Pools: mergePools(saved.Pools)}
	return s, nil
}

func mergePools(saved []models.PrizePool) []models.PrizePool {
	pools := DefaultPools()
	for i := range pools {
		for _, p := range saved {
			if p.ID != pools[i].ID {
				continue
			}
			if p.Name != "" {
				pools[i].Name = p.Name
			}
			if p.MaxWinners > 0 {
				pools[i].MaxWinners = p.MaxWinners
			}
			if p.Color != "" {
				pools[i].Color = p.Color
			}
		}
	}
	return pools
}

// Config returns a copy of the event configuration.
func (s *Settings) Config() models.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.AppConfig{
		EventDate: s.cfg.EventDate,
		Pools:     append([]models.PrizePool(nil), s.cfg.Pools...),
	}
}

// Pool looks up a pool by id.
func (s *Settings) Pool(id models.PoolID) (models.PrizePool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.cfg.Pools {
		if p.ID == id {
			return p, true
		}
	}
	return models.PrizePool{}, false
}

// EventDate returns the configured event date, or "" when none is set.
func (s *Settings) EventDate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.EventDate
}

// UpdatePool replaces the editable fields of an existing pool and saves.
// The id is immutable and IsLucky always follows it.
func (s *Settings) UpdatePool(pool models.PrizePool) (models.PrizePool, error) {
	if pool.MaxWinners <= 0 {
		return models.PrizePool{}, ErrInvalidWinners
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.cfg.Pools {
		if p.ID != pool.ID {
			continue
		}
		updated := p
		if name := strings.TrimSpace(pool.Name); name != "" {
			updated.Name = name
		}
		if pool.Color != "" {
			updated.Color = pool.Color
		}
		updated.MaxWinners = pool.MaxWinners
		updated.IsLucky = p.ID.IsLucky()

		s.cfg.Pools[i] = updated
		if err := s.saveLocked(); err != nil {
			s.cfg.Pools[i] = p
			return models.PrizePool{}, err
		}
		return updated, nil
	}
	return models.PrizePool{}, ErrUnknownPool
}

// SetEventDate stores date (YYYY-MM-DD) and saves.
func (s *Settings) SetEventDate(date string) error {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return ErrInvalidDate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cfg.EventDate
	s.cfg.EventDate = date
	if err := s.saveLocked(); err != nil {
		s.cfg.EventDate = prev
		return err
	}
	return nil
}

func (s *Settings) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("settings mkdir: %w", err)
	}
	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("settings marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("settings write: %w", err)
	}
	return nil
}
