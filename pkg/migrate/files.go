package migrate

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	versionRe  = regexp.MustCompile(`^\d{14}$`)
	slugRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

// File is one goose SQL migration.
type File struct {
	Version int64
	Name    string
	Path    string
}

// ValidateDir checks an on-disk migrations directory. See ValidateFS.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	_, err := ValidateFS(os.DirFS(dir), ".")
	return err
}

// ValidateFS lists the migrations under root and reports every badly named file,
// duplicate version, and missing goose Up or Down marker at once.
func ValidateFS(fsys fs.FS, root string) ([]File, error) {
	names, err := fs.Glob(fsys, path.Join(root, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations in %q: %w", root, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no migrations found in %q", root)
	}

	var (
		files []File
		errs  error
		owner = make(map[int64]string, len(names))
	)
	for _, p := range names {
		base := path.Base(p)
		m := fileNameRe.FindStringSubmatch(base)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", base))
			continue
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		if prev, dup := owner[version]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %d already used by %s", base, version, prev))
			continue
		}
		owner[version] = base

		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", base, err))
			continue
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !bytes.Contains(body, []byte(marker)) {
				errs = multierr.Append(errs, fmt.Errorf("%s: missing %q", base, marker))
			}
		}
		files = append(files, File{Version: version, Name: m[2], Path: p})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, errs
}

// CreateSQLMigration writes <dir>/<version>_<slug>.sql with an empty goose template.
// The version is the current UTC time, bumped past the newest existing migration.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	version, _ := strconv.ParseInt(time.Now().UTC().Format(versionLayout), 10, 64)
	if existing, _ := ValidateFS(os.DirFS(dir), "."); len(existing) > 0 {
		if latest := existing[len(existing)-1].Version; version <= latest {
			version = latest + 1
		}
	}

	full := filepath.Join(dir, fmt.Sprintf("%d_%s.sql", version, slug))
	body := fmt.Sprintf("-- +goose Up\n-- +goose StatementBegin\n-- %[1]s\n-- +goose StatementEnd\n\n-- +goose Down\n-- +goose StatementBegin\n-- undo %[1]s\n-- +goose StatementEnd\n", slug)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %q: %w", full, err)
	}
	if _, err := f.WriteString(body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %q: %w", full, err)
	}
	return full, f.Close()
}
