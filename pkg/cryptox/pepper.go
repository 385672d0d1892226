package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const pepperLength = 32

var (
	pepperMu   sync.RWMutex
	pepper     string
	pepperFile = "pepper"
)

// SetPepperPath changes where the pepper is read from and drops any pepper
// already loaded from the previous path.
func SetPepperPath(file string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	pepperFile = file
	pepper = ""
}

// LoadPepper reads the pepper file, creating it with fresh random content if
// it does not exist yet. Call it at startup so a bad path fails early rather
// than on the first login.
func LoadPepper() error {
	_, err := getPepper()
	return err
}

func getPepper() (string, error) {
	pepperMu.RLock()
	p := pepper
	pepperMu.RUnlock()
	if p != "" {
		return p, nil
	}

	pepperMu.Lock()
	defer pepperMu.Unlock()
	if pepper != "" {
		return pepper, nil
	}

	p, err := loadOrGeneratePepper(pepperFile)
	if err != nil {
		return "", fmt.Errorf("cryptox: pepper: %w", err)
	}
	pepper = p
	return pepper, nil
}

func loadOrGeneratePepper(file string) (string, error) {
	file = filepath.Clean(file)

	b, err := os.ReadFile(file)
	if err == nil {
		p := strings.TrimSpace(string(b))
		if p == "" {
			return "", fmt.Errorf("%s is empty", file)
		}
		return p, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return "", err
	}

	raw := make([]byte, pepperLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	p := base64.RawURLEncoding.EncodeToString(raw)

	if err := os.WriteFile(file, []byte(p), 0600); err != nil {
		return "", err
	}
	return p, nil
}
