package migrations

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Migration is one embedded SQL file. Version is the file name without
// extension, e.g. "002_tracked_wallets".
type Migration struct {
	Version    string
	Statements []string
}

// load reads the migrations under dir ordered by version.
func load(fsys fs.FS, dir string) ([]Migration, error) {
	names, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		stmts, err := statements(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse migration %s: %w", name, err)
		}
		if len(stmts) == 0 {
			continue
		}
		out = append(out, Migration{
			Version:    strings.TrimSuffix(path.Base(name), ".sql"),
			Statements: stmts,
		})
	}
	return out, nil
}

// pending filters out migrations whose version is already applied.
func pending(all []Migration, applied map[string]bool) []Migration {
	var out []Migration
	for _, m := range all {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

var errUnterminatedQuote = errors.New("unterminated string literal")

// statements splits sql on semicolons outside single-quoted literals and
// drops "--" line comments. Doubled quotes inside a literal are escapes.
func statements(sql string) ([]string, error) {
	var (
		out   []string
		cur   strings.Builder
		inStr bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case inStr:
			cur.WriteByte(c)
			if c == '\'' {
				if i+1 < len(sql) && sql[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
					continue
				}
				inStr = false
			}
		case c == '\'':
			inStr = true
			cur.WriteByte(c)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if inStr {
		return nil, errUnterminatedQuote
	}
	flush()
	return out, nil
}
