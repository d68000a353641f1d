// Package sample loads observed tick damage values logged from gameplay.
package sample

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/MJE43/dot-verify-go/internal/engine"
)

var (
	ErrEmptySample = errors.New("observed sample is empty")
	ErrMalformed   = errors.New("malformed observed sample")
)

// Parse reads unsigned integers separated by whitespace or commas.
// Anything after '#' or "//" on a line is ignored, as are '[' and ']',
// so a copied array literal parses as-is.
func Parse(r io.Reader) ([]uint64, error) {
	var values []uint64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.Index(text, "#"); i >= 0 {
			text = text[:i]
		}
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}

		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == '[' || r == ']' || r == ' ' || r == '\t' || r == '\r'
		})
		for _, f := range fields {
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: token %q is not an unsigned integer", ErrMalformed, line, f)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	if len(values) == 0 {
		return nil, ErrEmptySample
	}
	return values, nil
}

// Load reads and parses a sample file.
func Load(path string) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sample %s: %w", path, err)
	}
	defer f.Close()

	values, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", path, err)
	}
	return values, nil
}

// Set is an observed sample with duplicates collapsed.
type Set map[uint64]struct{}

// NewSet builds a set from observed values.
func NewSet(values []uint64) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s Set) Contains(v uint64) bool {
	_, ok := s[v]
	return ok
}

func (s Set) Len() int { return len(s) }

// Sorted returns the distinct values in ascending order.
func (s Set) Sorted() []uint64 {
	out := make([]uint64, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Synthesize returns every tick value the formula produces over the full roll
// domain for the given combos, in roll order.
func Synthesize(s engine.Snapshot, buff engine.Buff, stat engine.ActionStat, combos ...engine.Combo) ([]uint64, error) {
	out := make([]uint64, 0, len(combos)*(engine.RollMax-engine.RollMin+1))
	for _, c := range combos {
		for roll := uint64(engine.RollMin); roll <= engine.RollMax; roll++ {
			d, err := engine.ComboDamage(s, roll, c, buff, stat)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}
	return out, nil
}
