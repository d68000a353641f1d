// Package report renders verification results for people and for tooling.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MJE43/dot-verify-go/internal/engine"
	"github.com/MJE43/dot-verify-go/internal/verify"
)

var ErrUnknownFormat = errors.New("unknown report format")

// Format selects a renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (want text or json)", ErrUnknownFormat, s)
	}
}

// Render writes r in the given format. JSON goes entirely to out; text splits
// findings (out) from diagnostics (diag).
func Render(f Format, out, diag io.Writer, r *verify.Report) error {
	switch f {
	case FormatJSON:
		return JSON(out, r)
	case FormatText:
		return Text(out, diag, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// JSON writes the whole report as indented JSON.
func JSON(w io.Writer, r *verify.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Percent renders a per-thousand value as a percentage, 400 -> "40.0%".
func Percent(perThousand uint64) string {
	return decimal.New(int64(perThousand), -1).StringFixed(1) + "%"
}

// Ratio renders a per-thousand multiplier, 1600 -> "x1.600".
func Ratio(perThousand uint64) string {
	return "x" + decimal.New(int64(perThousand), -3).StringFixed(3)
}

// Multiplier renders a MultiplierScale fixed-point value, 1240000 -> "x1.240000".
func Multiplier(v uint64) string {
	return "x" + decimal.NewFromInt(int64(v)).Div(decimal.NewFromInt(engine.MultiplierScale)).StringFixed(6)
}
