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

// Package secstore keeps credentials encrypted at rest in a single file.
// Records are AES-256-GCM sealed with a key derived from a build-embedded
// master secret and a per-install salt.
package secstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/denisbrodbeck/machineid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/pbkdf2"
	"tryffel.net/go/audiocontrol/interfaces"
)

// masterSecret is embedded at build time:
// go build -ldflags "-X tryffel.net/go/audiocontrol/secstore.masterSecret=..."
var masterSecret = "audiocontrol-dev-master-secret"

const (
	nonceSize  = 12
	keySize    = 32
	saltSize   = 16
	iterations = 65536
	appSaltID  = "audiocontrol"
)

type record struct {
	// Nonce is unique per record, drawn fresh on every write.
	Nonce string `json:"nonce"`
	// Data is ciphertext with the GCM tag appended.
	Data string `json:"data"`
}

type fileFormat struct {
	Salt    string            `json:"salt"`
	Records map[string]record `json:"records"`
}

// Store is the encrypted credential store.
type Store struct {
	lock    sync.Mutex
	path    string
	key     []byte
	records map[string]record
}

// Open loads or initialises the store at path. The encryption key is derived
// from the master secret combined with a per-install salt, so records survive
// process restarts but not a copy to another install.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: security store path not configured", interfaces.ErrNotInitialised)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create security store dir: %w", err)
	}

	s := &Store{path: path, records: map[string]record{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		s.key = deriveKey(salt)
		if err := s.saveLocked(salt); err != nil {
			return nil, err
		}
		logrus.Infof("Initialised security store: %s", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read security store: %w", err)
	}

	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse security store: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("parse security store salt: %w", err)
	}
	s.key = deriveKey(salt)
	if file.Records != nil {
		s.records = file.Records
	}
	return s, nil
}

// deriveKey stretches the master secret with the stored random salt and the
// machine id.
func deriveKey(salt []byte) []byte {
	installID, err := machineid.ProtectedID(appSaltID)
	if err != nil {
		logrus.Warningf("machine id unavailable, using static install id: %v", err)
		installID = appSaltID
	}
	material := append([]byte{}, salt...)
	material = append(material, []byte(installID)...)
	return pbkdf2.Key([]byte(masterSecret), material, iterations, keySize, sha256.New)
}

// Get decrypts and returns the named secret.
func (s *Store) Get(name string) ([]byte, error) {
	if s == nil {
		return nil, interfaces.ErrNotInitialised
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return nil, fmt.Errorf("%w: secret '%s'", interfaces.ErrNotFound, name)
	}
	nonce, err := base64.StdEncoding.DecodeString(rec.Nonce)
	if err != nil || len(nonce) != nonceSize {
		return nil, fmt.Errorf("%w: secret '%s' has malformed nonce", interfaces.ErrDecryptionFailed, name)
	}
	data, err := base64.StdEncoding.DecodeString(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: secret '%s' has malformed data", interfaces.ErrDecryptionFailed, name)
	}

	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, data, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("%w: secret '%s'", interfaces.ErrDecryptionFailed, name)
	}
	return plain, nil
}

// Put encrypts and stores value under name, overwriting any previous record.
// A fresh nonce is drawn on every write.
func (s *Store) Put(name string, value []byte) error {
	if s == nil {
		return interfaces.ErrNotInitialised
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	gcm, err := s.aead()
	if err != nil {
		return err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, value, []byte(name))
	s.records[name] = record{
		Nonce: base64.StdEncoding.EncodeToString(nonce),
		Data:  base64.StdEncoding.EncodeToString(sealed),
	}
	return s.saveLocked(nil)
}

// Delete removes the named secret.
func (s *Store) Delete(name string) error {
	if s == nil {
		return interfaces.ErrNotInitialised
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.records[name]; !ok {
		return fmt.Errorf("%w: secret '%s'", interfaces.ErrNotFound, name)
	}
	delete(s.records, name)
	return s.saveLocked(nil)
}

// ListNames returns the stored secret names, sorted.
func (s *Store) ListNames() []string {
	if s == nil {
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}

// saveLocked writes the store file. When salt is non-nil it is the initial
// salt for a new file, otherwise the existing salt is re-read from disk.
func (s *Store) saveLocked(salt []byte) error {
	file := fileFormat{Records: s.records}
	if salt != nil {
		file.Salt = base64.StdEncoding.EncodeToString(salt)
	} else {
		old, err := os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("read security store: %w", err)
		}
		var existing fileFormat
		if err := json.Unmarshal(old, &existing); err != nil {
			return fmt.Errorf("parse security store: %w", err)
		}
		file.Salt = existing.Salt
	}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal security store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write security store: %w", err)
	}
	return nil
}
