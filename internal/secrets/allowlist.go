package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// ErrInvalidTOML is returned for an allowlist file that does not decode.
var ErrInvalidTOML = errors.New("invalid allowlist TOML")

// LoadAllowList reads content patterns that should never be reported:
//
//	[allowlist]
//	regexes = ['sk-test-[a-z]+']
//
// A missing file yields no patterns. Invalid TOML or regex patterns are
// errors.
func LoadAllowList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var file struct {
		Allowlist struct {
			Regexes []string `toml:"regexes"`
		} `toml:"allowlist"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	for i, p := range file.Allowlist.Regexes {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("allowlist %s regex %d: %w", path, i, err)
		}
	}
	return file.Allowlist.Regexes, nil
}
