package infra

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads .env.local and then .env into the process environment.
// Variables already set win, so .env.local overrides .env. Missing files are
// skipped; the names of the loaded files are returned.
func LoadEnvFiles(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return loaded, err
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}
