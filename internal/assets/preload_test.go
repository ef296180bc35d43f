package assets

import (
	"context"
	"testing"
	"testing/fstest"
)

func TestCache_Preload(t *testing.T) {
	fsys := fstest.MapFS{
		"audio/bgm.mp3":    {Data: []byte("ID3 fake mp3")},
		"video/meteor.mp4": {Data: []byte("fake mp4")},
	}
	c := NewCache(fsys, []string{"audio/bgm.mp3", "video/meteor.mp4", "video/missing.mp4"})

	loaded := c.Preload(context.Background())
	if loaded != 2 {
		t.Fatalf("Expected 2 loaded assets, got %d", loaded)
	}
	failed := c.Failed()
	if _, ok := failed["video/missing.mp4"]; !ok || len(failed) != 1 {
		t.Errorf("Expected only the missing asset to fail, got %v", failed)
	}

	a, ok := c.Get("audio/bgm.mp3")
	if !ok || a.ContentType != "audio/mpeg" {
		t.Errorf("Expected cached mp3, got %+v", a)
	}
}

func TestCache_GetLoadsLazily(t *testing.T) {
	c := NewCache(fstest.MapFS{"reveal.wav": {Data: []byte("RIFF")}}, []string{"reveal.wav"})
	if _, ok := c.Get("reveal.wav"); !ok {
		t.Fatal("Expected lazy load to succeed")
	}
	if _, ok := c.Get("../etc/passwd"); ok {
		t.Error("Expected paths outside the asset root to be rejected")
	}
}

func TestCache_OnlyConfiguredAssets(t *testing.T) {
	fsys := fstest.MapFS{
		"audio/bgm.mp3":   {Data: []byte("ID3")},
		"private/big.bin": {Data: make([]byte, 1024)},
	}
	c := NewCache(fsys, []string{"audio/bgm.mp3"})

	if _, ok := c.Get("private/big.bin"); ok {
		t.Error("Expected a file outside the asset list to be refused")
	}
	if _, ok := c.Get("audio/./bgm.mp3"); !ok {
		t.Error("Expected a cleaned configured name to be served")
	}

	c.mu.RLock()
	cached := len(c.assets)
	c.mu.RUnlock()
	if cached != 1 {
		t.Errorf("Expected only the configured asset cached, got %d", cached)
	}
}
