package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// migrationFile pairs the up and down scripts of one schema version.
type migrationFile struct {
	Version uint
	Name    string
	Up      string
	Down    string
}

// loadCatalog reads the embedded scripts ordered by version. Every version must
// ship both directions, and a version number may only be used once.
func loadCatalog(fsys fs.FS, dir string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := make(map[uint]*migrationFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		file := strings.TrimSpace(entry.Name())
		direction := ""
		switch {
		case strings.HasSuffix(file, ".up.sql"):
			direction = "up"
		case strings.HasSuffix(file, ".down.sql"):
			direction = "down"
		default:
			continue
		}

		version, ok := parseMigrationVersion(file)
		if !ok {
			return nil, fmt.Errorf("invalid migration filename: %s", file)
		}
		name := strings.TrimSuffix(file, "."+direction+".sql")

		m, seen := byVersion[version]
		if !seen {
			m = &migrationFile{Version: version, Name: name}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("migration version %d used by %s and %s", version, m.Name, name)
		}

		full := path.Join(dir, file)
		if direction == "up" {
			m.Up = full
		} else {
			m.Down = full
		}
	}

	files := make([]migrationFile, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("migration %s is missing its up or down script", m.Name)
		}
		files = append(files, *m)
	}
	if len(files) == 0 {
		return nil, errors.New("no embedded migrations found")
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// LatestMigrationVersion returns the highest embedded migration version.
func LatestMigrationVersion() (uint, error) {
	files, err := loadCatalog(embeddedMigrations, migrationsDir)
	if err != nil {
		return 0, err
	}
	return files[len(files)-1].Version, nil
}

// MigrationsChecksum hashes every embedded up script in version order. The
// schema gate compares it with the checksum recorded at migrate time.
func MigrationsChecksum() (string, error) {
	files, err := loadCatalog(embeddedMigrations, migrationsDir)
	if err != nil {
		return "", err
	}

	hasher := sha256.New()
	for _, m := range files {
		content, err := fs.ReadFile(embeddedMigrations, m.Up)
		if err != nil {
			return "", fmt.Errorf("read migration %s: %w", m.Name, err)
		}
		_, _ = hasher.Write([]byte(path.Base(m.Up)))
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.Write(content)
		_, _ = hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func parseMigrationVersion(name string) (uint, bool) {
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return 0, false
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(prefix), 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}
