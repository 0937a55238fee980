// Package migrations provides the embedded schema for each trace store.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS

// Postgres returns the PostgreSQL migrations in apply order
func Postgres() ([]string, error) {
	return load("postgres")
}

// ClickHouse returns the ClickHouse migrations in apply order
func ClickHouse() ([]string, error) {
	return load("clickhouse")
}

func load(dir string) ([]string, error) {
	names, err := fs.Glob(files, dir+"/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, string(data))
	}
	return out, nil
}
