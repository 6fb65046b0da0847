package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

// CreateSQLMigration writes <dir>/<version>_<name>.sql with empty Up and Down
// statement blocks. The version is the current UTC second, bumped past the newest
// migration already in dir so goose always applies the new file last.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(nameSanitizeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	version, err := nextVersion(dir, time.Now().UTC())
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version, slug))

	body := strings.Join([]string{
		"-- +goose Up",
		"-- +goose StatementBegin",
		"-- " + slug,
		"-- +goose StatementEnd",
		"",
		"-- +goose Down",
		"-- +goose StatementBegin",
		"-- rollback " + slug,
		"-- +goose StatementEnd",
		"",
	}, "\n")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(body); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}

func nextVersion(dir string, now time.Time) (string, error) {
	candidate := now.Truncate(time.Second)
	latest, err := latestVersion(dir)
	if err != nil {
		return "", err
	}
	if latest != "" {
		last, err := time.Parse(versionLayout, latest)
		if err != nil {
			return "", fmt.Errorf("parse version %s: %w", latest, err)
		}
		if !candidate.After(last) {
			candidate = last.Add(time.Second)
		}
	}
	return candidate.Format(versionLayout), nil
}

func latestVersion(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read dir %q: %w", dir, err)
	}
	latest := ""
	for _, e := range entries {
		if m := sqlFileRe.FindStringSubmatch(e.Name()); m != nil && m[1] > latest {
			latest = m[1]
		}
	}
	return latest, nil
}
