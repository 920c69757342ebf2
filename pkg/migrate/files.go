package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe    = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeNameRe  = regexp.MustCompile(`[^a-z0-9]+`)
	createTableRe = regexp.MustCompile(`(?i)CREATE TABLE IF NOT EXISTS\s+([a-z_][a-z0-9_]*)`)
)

type migrationFile struct {
	version int64
	name    string
	path    string
	up      string
	down    string
}

// NewMigration writes an empty goose migration named <version>_<name>.sql.
// The version is now in UTC, bumped past the newest existing file so a
// skewed clock cannot reorder the chain.
func NewMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(unsafeNameRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}
	files, err := readMigrations(dir)
	if err != nil {
		return "", err
	}

	version, _ := strconv.ParseInt(now.UTC().Format(versionLayout), 10, 64)
	if n := len(files); n > 0 && files[n-1].version >= version {
		version = files[n-1].version + 1
	}
	path := filepath.Join(dir, fmt.Sprintf("%d_%s.sql", version, slug))
	body := fmt.Sprintf("-- +goose Up\n-- +goose StatementBegin\n-- %s\n-- +goose StatementEnd\n\n-- +goose Down\n-- +goose StatementBegin\n-- undo %s\n-- +goose StatementEnd\n", slug, slug)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}

// ValidateDir checks file names, unique versions and that every migration
// declares both goose sections.
func ValidateDir(dir string) error {
	_, err := readMigrations(dir)
	return err
}

// Tables lists the tables created by the Up sections in dir, in version order.
func Tables(dir string) ([]string, error) {
	files, err := readMigrations(dir)
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, f := range files {
		for _, m := range createTableRe.FindAllStringSubmatch(f.up, -1) {
			tables = append(tables, strings.ToLower(m[1]))
		}
	}
	return tables, nil
}

func readMigrations(dir string) ([]migrationFile, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	byVersion := map[int64]string{}
	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := fileNameRe.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", e.Name())
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		if prev, ok := byVersion[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, e.Name())
		}
		byVersion[version] = e.Name()

		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		text := string(raw)
		upAt := strings.Index(text, "-- +goose Up")
		downAt := strings.Index(text, "-- +goose Down")
		switch {
		case upAt < 0:
			return nil, fmt.Errorf("migration %q missing \"-- +goose Up\"", e.Name())
		case downAt < 0:
			return nil, fmt.Errorf("migration %q missing \"-- +goose Down\"", e.Name())
		case downAt < upAt:
			return nil, fmt.Errorf("migration %q declares Down before Up", e.Name())
		}
		files = append(files, migrationFile{
			version: version,
			name:    m[2],
			path:    path,
			up:      text[upAt:downAt],
			down:    text[downAt:],
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}
