package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"
)

const (
	upMarker        = "-- +goose Up"
	downMarker      = "-- +goose Down"
	statementBegin  = "-- +goose StatementBegin"
	statementEnd    = "-- +goose StatementEnd"
	migrationSuffix = ".sql"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations in dir on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}
	return validateFS(os.DirFS(dir))
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	sub, err := fs.Sub(embedded, embeddedRoot)
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	return validateFS(sub)
}

func validateFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	seen := map[string]string{}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), migrationSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return fmt.Errorf("no migrations found")
	}
	sort.Strings(names)

	for _, name := range names {
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version := m[1]
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read file %q: %w", name, err)
		}
		if err := validateBody(string(b)); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

func validateBody(txt string) error {
	up := strings.Index(txt, upMarker)
	if up < 0 {
		return fmt.Errorf("missing %q", upMarker)
	}
	down := strings.Index(txt, downMarker)
	if down < 0 {
		return fmt.Errorf("missing %q", downMarker)
	}
	if down < up {
		return fmt.Errorf("%q must come after %q", downMarker, upMarker)
	}
	if !hasStatements(txt[up+len(upMarker) : down]) {
		return fmt.Errorf("up section has no statements")
	}
	if strings.Count(txt, statementBegin) != strings.Count(txt, statementEnd) {
		return fmt.Errorf("unbalanced StatementBegin/StatementEnd")
	}
	return nil
}

func hasStatements(section string) bool {
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return true
		}
	}
	return false
}
