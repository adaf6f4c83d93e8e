package envutil

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/kiteco/musicvae/kite-golib/errors"
)

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return errors.WrapfOrNil(godotenv.Load(existing...), "error loading %v", existing)
}

// GetenvDefault gets the value of an environment variable, or returns the
// specified default value if that variable is not set.
func GetenvDefault(name, defaultValue string) string {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultValue
	}
	return val
}
