package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrCreatePepper reads the hashing pepper from file, generating and
// persisting a fresh one on first start. The pepper is combined with every
// secret before hashing so a leaked database alone is not enough to mount an
// offline attack.
func LoadOrCreatePepper(file string) (string, error) {
	file = filepath.Clean(file)
	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return "", fmt.Errorf("cryptox: create pepper dir: %w", err)
	}

	data, err := os.ReadFile(file)
	if err == nil {
		pepper := strings.TrimSpace(string(data))
		if pepper == "" {
			return "", fmt.Errorf("cryptox: pepper file %s is empty", file)
		}
		return pepper, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("cryptox: read pepper file: %w", err)
	}

	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate pepper: %w", err)
	}
	pepper := base64.RawURLEncoding.EncodeToString(buf)

	if err := os.WriteFile(file, []byte(pepper+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("cryptox: write pepper file: %w", err)
	}

	return pepper, nil
}
