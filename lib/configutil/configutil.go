package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// localName turns "dir/ecourts.json5" into "dir/ecourts.local.json5".
func localName(name string) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s.local%s", strings.TrimSuffix(name, ext), ext)
}

func readJson5[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads a json5 configuration file. `name` should include the
// extension, the following files are merged with the later ones taking
// priority:
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T

	found, err := readJson5(name, &out)
	if err != nil {
		return out, err
	}

	var override T
	local := localName(name)
	foundLocal, err := readJson5(local, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", local)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively is ReadConfig but it walks up from the cwd until the
// filesystem root looking for `name`.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	current, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return zero, err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return zero, os.ErrNotExist
		}
		current = parent
	}
}

// ReadOptional is ReadConfig except a missing file yields `fallback`
// instead of an error, any values present in the files are merged over it.
func ReadOptional[T any](name string, fallback T) (T, error) {
	config, err := ReadConfig[T](name)
	if errors.Is(err, os.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	err = mergo.Merge(&config, fallback)
	if err != nil {
		return fallback, err
	}
	return config, nil
}
