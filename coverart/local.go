/*
 * AudioControl is a control daemon for audio players.
 * Copyright (C) 2025 Tero Vierimaa
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package coverart

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
)

// LocalFiles extracts embedded cover art from local audio files. Extracted
// images are written once into the image cache directory and served from
// there.
type LocalFiles struct {
	// musicDir restricts which paths may be read. Empty disables the
	// provider.
	musicDir string
	cacheDir string
}

// NewLocalFiles creates the local-file provider. Extracted images land under
// cacheDir.
func NewLocalFiles(musicDir, cacheDir string) *LocalFiles {
	return &LocalFiles{musicDir: musicDir, cacheDir: cacheDir}
}

// Info implements Provider.
func (l *LocalFiles) Info() ProviderInfo {
	return ProviderInfo{Name: "local", Weight: WeightLocal}
}

// Active implements Provider.
func (l *LocalFiles) Active() bool {
	return l.musicDir != ""
}

// LookupByURL implements URLLookup for file:// urls and plain paths below the
// music directory.
func (l *LocalFiles) LookupByURL(_ context.Context, url string) ([]ImageRef, error) {
	path := strings.TrimPrefix(url, "file://")
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.musicDir, path)
	}
	path = filepath.Clean(path)
	if !strings.HasPrefix(path, filepath.Clean(l.musicDir)+string(os.PathSeparator)) {
		return nil, fmt.Errorf("path %s outside music directory", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("read tags from %s: %w", path, err)
	}
	picture := metadata.Picture()
	if picture == nil {
		return nil, nil
	}

	ref := ImageRef{SizeBytes: len(picture.Data)}
	if config, _, err := image.DecodeConfig(bytes.NewReader(picture.Data)); err == nil {
		ref.Width = config.Width
		ref.Height = config.Height
	}

	cached, err := l.store(picture.Ext, picture.Data)
	if err != nil {
		logrus.Warningf("store extracted cover: %v", err)
		return nil, nil
	}
	ref.URL = "file://" + cached
	return []ImageRef{ref}, nil
}

// store writes image data into the cache directory, content-addressed so
// repeated extraction is free.
func (l *LocalFiles) store(ext string, data []byte) (string, error) {
	if ext == "" {
		ext = "img"
	}
	name := fmt.Sprintf("%x.%s", sha1.Sum(data), ext)
	path := filepath.Join(l.cacheDir, "extracted", name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
