package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kiosk-lottery/internal/models"
)

func TestSettings(t *testing.T) {
	t.Run("Test defaults without a file", func(t *testing.T) {
		s, err := LoadSettings(t.TempDir())
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		cfg := s.Config()
		if len(cfg.Pools) != 5 {
			t.Fatalf("Expected 5 default pools, got %d", len(cfg.Pools))
		}
		lucky, ok := s.Pool(models.PoolLucky)
		if !ok || !lucky.IsLucky || lucky.MaxWinners != 10 {
			t.Errorf("Unexpected lucky pool: %+v", lucky)
		}
		if s.EventDate() != "" {
			t.Errorf("Expected no event date, got %q", s.EventDate())
		}
	})

	t.Run("Test updates survive a reload", func(t *testing.T) {
		dir := t.TempDir()
		s, _ := LoadSettings(dir)
		updated, err := s.UpdatePool(models.PrizePool{ID: models.PoolFirst, Name: "特等奖", MaxWinners: 2, IsLucky: true})
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if updated.IsLucky {
			t.Error("Expected IsLucky to follow the pool id")
		}
		if err := s.SetEventDate("2026-02-01"); err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}

		reloaded, err := LoadSettings(dir)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		first, _ := reloaded.Pool(models.PoolFirst)
		if first.Name != "特等奖" || first.MaxWinners != 2 || first.Color != "#FFD700" {
			t.Errorf("Unexpected reloaded pool: %+v", first)
		}
		if reloaded.EventDate() != "2026-02-01" {
			t.Errorf("Expected event date to persist, got %q", reloaded.EventDate())
		}
	})

	t.Run("Test invalid updates are rejected", func(t *testing.T) {
		s, _ := LoadSettings(t.TempDir())
		if _, err := s.UpdatePool(models.PrizePool{ID: models.PoolFirst, MaxWinners: 0}); !errors.Is(err, ErrInvalidWinners) {
			t.Errorf("Expected ErrInvalidWinners, got %v", err)
		}
		if _, err := s.UpdatePool(models.PrizePool{ID: "grand", MaxWinners: 1}); !errors.Is(err, ErrUnknownPool) {
			t.Errorf("Expected ErrUnknownPool, got %v", err)
		}
		if err := s.SetEventDate("20/01/2026"); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("Expected ErrInvalidDate, got %v", err)
		}
	})

	t.Run("Test partial file is completed from defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := "eventDate: \"2026-01-20\"\npools:\n  - id: lucky\n    name: 阳光普照\n    maxWinners: 20\n"
		if err := os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		s, err := LoadSettings(dir)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		lucky, _ := s.Pool(models.PoolLucky)
		if lucky.Name != "阳光普照" || lucky.MaxWinners != 20 || !lucky.IsLucky {
			t.Errorf("Unexpected lucky pool: %+v", lucky)
		}
		if _, ok := s.Pool(models.PoolSecond); !ok {
			t.Error("Expected missing pools to be filled from defaults")
		}
	})

	t.Run("Test malformed file is an error", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, SettingsFileName), []byte("pools: [oops"), 0644)
		if _, err := LoadSettings(dir); err == nil {
			t.Error("Expected an error for malformed settings")
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Store.Driver != "sqlite" || cfg.Kiosk.MaxPerRound != 10 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if !cfg.Kiosk.AutoComplete {
		t.Error("Expected auto-complete on by default")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kiosk.yaml")
	content := "server:\n  port: \"9090\"\nkiosk:\n  reducedmotion: true\nstore:\n  driver: mongo\n  mongouri: mongodb://localhost:27017\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if cfg.Server.Port != "9090" || !cfg.Kiosk.ReducedMotion || cfg.Store.Driver != "mongo" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}
