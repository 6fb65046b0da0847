package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks every .sql file in dir: the version_name filename, unique
// versions, an Up section before a Down section and balanced StatementBegin/End
// markers. An empty directory is valid.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	versions := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := versions[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		versions[m[1]] = name

		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read file %q: %w", name, err)
		}
		if err := validateAnnotations(content); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

func validateAnnotations(content []byte) error {
	var up, down, open bool
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "-- +goose Up":
			if up || down {
				return fmt.Errorf("unexpected \"-- +goose Up\"")
			}
			up = true
		case "-- +goose Down":
			if !up {
				return fmt.Errorf("\"-- +goose Down\" before \"-- +goose Up\"")
			}
			if open {
				return fmt.Errorf("StatementBegin not closed before Down")
			}
			down = true
		case "-- +goose StatementBegin":
			if open {
				return fmt.Errorf("nested StatementBegin")
			}
			open = true
		case "-- +goose StatementEnd":
			if !open {
				return fmt.Errorf("StatementEnd without StatementBegin")
			}
			open = false
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	switch {
	case !up:
		return fmt.Errorf("missing \"-- +goose Up\"")
	case !down:
		return fmt.Errorf("missing \"-- +goose Down\"")
	case open:
		return fmt.Errorf("StatementBegin not closed")
	}
	return nil
}
