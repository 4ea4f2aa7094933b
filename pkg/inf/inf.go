// Package inf parses the [Version] and [Strings] sections of Windows
// driver INF files.
package inf

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrNoVersionSection = errors.New("could not find [Version] section")

	// ErrMissingFields is returned when neither a provider nor a driver
	// version could be recovered from the [Version] section.
	ErrMissingFields = errors.New("missing required fields Provider and DriverVer")
)

var (
	sectionRe       = regexp.MustCompile(`^\[([^\]]+)\][ \t]*$`)
	stringEntryRe   = regexp.MustCompile(`^([^=;]+?)[ \t]*=[ \t]*(.+)$`)
	trailingVerRe   = regexp.MustCompile(`(\d+(?:\.\d+)+)[ \t]*$`)
	tokenIndirectRe = regexp.MustCompile(`^%(.+)%$`)
)

// Record holds the driver metadata recovered from one INF file.
type Record struct {
	Provider      string
	ClassName     string
	ClassGUID     string
	CatalogFile   string
	DriverDate    string
	DriverVersion string
}

// StringTable maps [Strings] tokens to their literal values. It is built
// fresh for each file and discarded after that file is parsed.
type StringTable map[string]string

// Resolve substitutes a %token% indirection. An unknown token resolves to
// the bare token text, a missing string never fails the record.
func (st StringTable) Resolve(value string) string {
	matches := tokenIndirectRe.FindStringSubmatch(value)
	if matches == nil {
		return value
	}

	token := matches[1]
	if literal, ok := st[strings.ToLower(token)]; ok {
		return literal
	}
	return token
}

// ParseFile reads and parses a single INF file.
func ParseFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "inf: open %s", path)
	}
	defer f.Close()

	return Parse(f)
}

// Parse parses INF content. Both UTF-8 and UTF-16 encoded files are
// accepted, BOMs are honored.
func Parse(r io.Reader) (*Record, error) {
	sections, err := splitSections(decodeReader(r))
	if err != nil {
		return nil, err
	}

	table := buildStringTable(sections["strings"])

	versionLines, ok := sections["version"]
	if !ok {
		return nil, ErrNoVersionSection
	}

	rec := &Record{}
	for _, line := range versionLines {
		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}

		switch strings.ToLower(key) {
		case "provider":
			rec.Provider = table.Resolve(unquote(value))
		case "class":
			rec.ClassName = table.Resolve(unquote(value))
		case "classguid":
			rec.ClassGUID = strings.TrimSpace(value)
		case "catalogfile":
			rec.CatalogFile = unquote(value)
		case "driverver":
			rec.DriverDate, rec.DriverVersion = splitDriverVer(value)
		}
	}

	if rec.Provider == "" && rec.DriverVersion == "" {
		return nil, ErrMissingFields
	}

	return rec, nil
}

// decodeReader strips a BOM and transparently decodes UTF-16 content.
func decodeReader(r io.Reader) io.Reader {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder().Transformer)
	return transform.NewReader(r, decoder)
}

// splitSections groups the lines of the file by their enclosing section,
// keyed by the lowercased section name. Comments are stripped.
func splitSections(r io.Reader) (map[string][]string, error) {
	sections := map[string][]string{}
	current := ""

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}

		if matches := sectionRe.FindStringSubmatch(line); matches != nil {
			current = strings.ToLower(strings.TrimSpace(matches[1]))
			continue
		}

		if current != "" {
			sections[current] = append(sections[current], line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "inf: read content")
	}

	return sections, nil
}

func buildStringTable(lines []string) StringTable {
	table := StringTable{}
	for _, line := range lines {
		matches := stringEntryRe.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		table[strings.ToLower(strings.TrimSpace(matches[1]))] = unquote(matches[2])
	}
	return table
}

// splitDriverVer splits a DriverVer value of the form "date,version".
// When no comma is present a trailing dotted-number token is used, the
// whole trimmed value is the last resort.
func splitDriverVer(value string) (date string, version string) {
	value = strings.TrimSpace(value)

	if idx := strings.LastIndex(value, ","); idx >= 0 {
		return strings.TrimSpace(value[:idx]), strings.TrimSpace(value[idx+1:])
	}

	if matches := trailingVerRe.FindStringSubmatch(value); matches != nil {
		return "", matches[1]
	}

	return "", value
}

func splitKeyValue(line string) (key string, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	return s
}

// stripComment drops a trailing ; comment. A semicolon inside a quoted
// value is part of the value, not a comment marker.
func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case ';':
			if !inQuote {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return strings.TrimSpace(line)
}
