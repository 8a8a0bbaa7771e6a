package config

import (
	"fmt"
	"os"

	"github.com/rowjay/db-table-backup/internal/cryptoutil"
)

// EncryptConfigFile encrypts a config file with the provided key. The output
// keeps owner-only permissions since it usually holds storage secrets.
func EncryptConfigFile(inputPath, outputPath, key string) error {
	if !isEncryptedPath(outputPath) {
		return fmt.Errorf("output %s must end in .enc so it is recognised on load", outputPath)
	}
	plain, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return err
	}
	ciphertext, err := cryptoutil.EncryptConfig(plain, parsed)
	if err != nil {
		return fmt.Errorf("encrypt config: %w", err)
	}
	return os.WriteFile(outputPath, ciphertext, 0o600)
}
