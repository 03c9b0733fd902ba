// Package team maps team ids to category buckets and materializes a joining
// participant: nickname, role and a private per-team voice channel.
package team

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Emojis decorate channel names by team number mod 3. Changing them orphans
// existing channels.
var Emojis = [3]string{"🤺", "🦾", "🦿"}

// ID is a parsed team identifier such as A007.
type ID struct {
	Type   byte
	Number int
}

func (id ID) String() string { return fmt.Sprintf("%c%03d", id.Type, id.Number) }

// ChannelName is the deterministic voice channel name for the team.
func (id ID) ChannelName() string {
	return fmt.Sprintf("Team %s %s", id.String(), Emojis[id.Number%3])
}

// ParseID splits "<letter><number>" into its parts.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] > unicode.MaxASCII || !unicode.IsLetter(rune(s[0])) {
		return ID{}, fmt.Errorf("%w: malformed team id %q", ErrInvalidTeamAssignment, s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n <= 0 {
		return ID{}, fmt.Errorf("%w: malformed team number %q", ErrInvalidTeamAssignment, s)
	}
	return ID{Type: byte(unicode.ToUpper(rune(s[0]))), Number: n}, nil
}

// Bucket maps an inclusive number range of one team type to a category.
type Bucket struct {
	Type       string `yaml:"type"`
	Min        int    `yaml:"min"`
	Max        int    `yaml:"max"`
	CategoryID string `yaml:"category_id"`
}

// Table is a validated, immutable bucket table.
type Table struct {
	buckets []Bucket
}

type tableFile struct {
	Buckets []Bucket `yaml:"buckets"`
}

// NewTable validates buckets: single upper-case letter type, 1 <= min <= max,
// a category id, and no overlapping ranges within a type.
func NewTable(buckets []Bucket) (*Table, error) {
	if len(buckets) == 0 {
		return nil, fmt.Errorf("%w: no buckets", ErrInvalidBucketTable)
	}
	bs := append([]Bucket(nil), buckets...)
	for i, b := range bs {
		if len(b.Type) != 1 || b.Type[0] < 'A' || b.Type[0] > 'Z' {
			return nil, fmt.Errorf("%w: bucket %d: type %q", ErrInvalidBucketTable, i, b.Type)
		}
		if b.Min < 1 || b.Max < b.Min {
			return nil, fmt.Errorf("%w: bucket %d: range %d-%d", ErrInvalidBucketTable, i, b.Min, b.Max)
		}
		if strings.TrimSpace(b.CategoryID) == "" {
			return nil, fmt.Errorf("%w: bucket %d: missing category_id", ErrInvalidBucketTable, i)
		}
	}
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].Type != bs[j].Type {
			return bs[i].Type < bs[j].Type
		}
		return bs[i].Min < bs[j].Min
	})
	for i := 1; i < len(bs); i++ {
		if bs[i].Type == bs[i-1].Type && bs[i].Min <= bs[i-1].Max {
			return nil, fmt.Errorf("%w: %s ranges %d-%d and %d-%d overlap",
				ErrInvalidBucketTable, bs[i].Type, bs[i-1].Min, bs[i-1].Max, bs[i].Min, bs[i].Max)
		}
	}
	return &Table{buckets: bs}, nil
}

// LoadTable reads a YAML bucket table from path.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bucket table: %w", err)
	}
	return ParseTable(raw)
}

// ParseTable decodes a YAML bucket table.
func ParseTable(raw []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBucketTable, err)
	}
	return NewTable(f.Buckets)
}

// Category returns the category for id or ErrInvalidTeamAssignment.
func (t *Table) Category(id ID) (string, error) {
	for _, b := range t.buckets {
		if b.Type[0] == id.Type && id.Number >= b.Min && id.Number <= b.Max {
			return b.CategoryID, nil
		}
	}
	return "", fmt.Errorf("%w: %s has no bucket", ErrInvalidTeamAssignment, id)
}

// Buckets returns a copy of the table ordered by type then range.
func (t *Table) Buckets() []Bucket { return append([]Bucket(nil), t.buckets...) }
