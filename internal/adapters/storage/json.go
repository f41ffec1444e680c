package storage

// json.go: cache de rondas en un único fichero JSON.
//
// Formato: array de RoundRecord ordenado por epoch, con los nombres de campo
// de domain.RoundRecord. Cada Save reescribe el fichero completo vía un
// temporal + rename, así un proceso interrumpido nunca deja medio fichero.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/predictbt/internal/domain"
)

// JSONFileCache implementa ports.RoundCache sobre un fichero JSON.
type JSONFileCache struct {
	path string
}

// NewJSONFileCache devuelve una cache en path. El fichero no tiene que existir.
func NewJSONFileCache(path string) *JSONFileCache {
	return &JSONFileCache{path: path}
}

// Path devuelve la ruta del fichero.
func (c *JSONFileCache) Path() string { return c.path }

// Load lee el fichero. Ausente, corrupto o con rondas inválidas → cache vacía.
func (c *JSONFileCache) Load(ctx context.Context) ([]domain.RoundRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.RoundRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.JSONFileCache.Load: read %q: %w", c.path, err)
	}

	var rounds []domain.RoundRecord
	if err := json.Unmarshal(data, &rounds); err != nil {
		slog.Warn("storage: cache file is corrupt, starting empty", "path", c.path, "err", err)
		return []domain.RoundRecord{}, nil
	}
	if err := domain.ValidateRounds(rounds); err != nil {
		slog.Warn("storage: cache file has invalid rounds, starting empty", "path", c.path, "err", err)
		return []domain.RoundRecord{}, nil
	}
	return sortByEpoch(rounds), nil
}

// Save reemplaza el fichero completo.
func (c *JSONFileCache) Save(ctx context.Context, rounds []domain.RoundRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(sortByEpoch(rounds), "", "  ")
	if err != nil {
		return fmt.Errorf("storage.JSONFileCache.Save: marshal: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage.JSONFileCache.Save: mkdir %q: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage.JSONFileCache.Save: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.JSONFileCache.Save: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage.JSONFileCache.Save: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("storage.JSONFileCache.Save: rename: %w", err)
	}
	return nil
}

// Close no hace nada; el fichero solo se abre dentro de Load/Save.
func (c *JSONFileCache) Close() error { return nil }
