package storage

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"strings"
	"testing"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 800, 600))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestFileStoreSaveWritesImageAndThumbnail(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	saved, err := store.Save(context.Background(), encodePNG(t), "image/png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(saved.ImageURL, "/images/") || !strings.HasSuffix(saved.ImageURL, ".png") {
		t.Fatalf("image url = %q", saved.ImageURL)
	}
	if !strings.HasPrefix(saved.ThumbURL, "/thumbs/") || !strings.HasSuffix(saved.ThumbURL, ".jpg") {
		t.Fatalf("thumb url = %q", saved.ThumbURL)
	}

	for _, u := range []string{saved.ImageURL, saved.ThumbURL} {
		path, err := store.Resolve(u)
		if err != nil {
			t.Fatalf("resolve %q: %v", u, err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing file for %q: %v", u, err)
		}
	}
}

func TestFileStoreSaveUndecodableFallsBackToImage(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	saved, err := store.Save(context.Background(), []byte("junk"), "image/jpeg")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ThumbURL != saved.ImageURL {
		t.Fatalf("thumb = %q, want fallback to %q", saved.ThumbURL, saved.ImageURL)
	}
	if !strings.HasSuffix(saved.ImageURL, ".jpg") {
		t.Fatalf("image url = %q, want .jpg for image/jpeg", saved.ImageURL)
	}
}

func TestFileStoreRemoveIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	saved, err := store.Save(context.Background(), encodePNG(t), "image/png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Remove(saved.ImageURL, saved.ThumbURL); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(saved.ImageURL, saved.ThumbURL); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	path, _ := store.Resolve(saved.ImageURL)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("image still exists after remove")
	}
}

func TestFileStoreResolveRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, input := range []string{"../etc/passwd", "/../../secret", ""} {
		if _, err := store.Resolve(input); err == nil {
			t.Fatalf("resolve(%q) should fail", input)
		}
	}
}

func TestNewFileStoreRequiresBasePath(t *testing.T) {
	if _, err := NewFileStore("  "); err == nil {
		t.Fatalf("expected error for empty base path")
	}
}
