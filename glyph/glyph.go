// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package glyph builds custom character patterns for HD44780 CGRAM.
//
// A pattern is one byte per dot row, top first, with the 5 dots of a row in
// the low bits, the leftmost dot being bit 4. Patterns can be written as
// ASCII art:
//
//	p, err := glyph.Parse(
//		".....",
//		".#.#.",
//		"#####",
//		"#####",
//		".###.",
//		"..#..",
//		".....",
//		".....",
//	)
//
// or converted from any image.Image with FromImage.
package glyph

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"
	"strings"

	"golang.org/x/image/draw"
)

const (
	// Width is the number of dots in a row.
	Width = 5
	// Rows5x8 and Rows5x10 are the pattern heights for each font.
	Rows5x8  = 8
	Rows5x10 = 10
)

// ErrFormat is returned when ASCII art can't be parsed.
var ErrFormat = errors.New("glyph: bad pattern")

// Pattern is a custom character.
type Pattern []byte

// Parse reads rows of ASCII art. '#', 'X', 'x', '*' and '1' are lit dots;
// '.', ' ', '_', '-' and '0' are dark. There must be 1 to 10 rows of 5 dots;
// use Resize to get the exact height of a font.
func Parse(rows ...string) (Pattern, error) {
	if len(rows) == 0 || len(rows) > Rows5x10 {
		return nil, fmt.Errorf("%w: %d rows", ErrFormat, len(rows))
	}
	p := make(Pattern, len(rows))
	for y, row := range rows {
		if len(row) != Width {
			return nil, fmt.Errorf("%w: row %d is %q", ErrFormat, y, row)
		}
		for x := 0; x < Width; x++ {
			switch row[x] {
			case '#', 'X', 'x', '*', '1':
				p[y] |= 0x10 >> x
			case '.', ' ', '_', '-', '0':
			default:
				return nil, fmt.Errorf("%w: row %d has %q", ErrFormat, y, row[x])
			}
		}
	}
	return p, nil
}

// MustParse is like Parse but panics on error. For package level variables.
func MustParse(rows ...string) Pattern {
	p, err := Parse(rows...)
	if err != nil {
		panic(err)
	}
	return p
}

// FromImage reduces img to a pattern of the given number of rows. The image
// is scaled to 5 dots wide, dots darker than mid grey are lit.
func FromImage(img image.Image, rows int) Pattern {
	if rows < 1 {
		rows = Rows5x8
	}
	dst := image.NewGray(image.Rect(0, 0, Width, rows))
	if b := img.Bounds(); b.Dx() == Width && b.Dy() == rows {
		draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}
	p := make(Pattern, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < Width; x++ {
			if dst.GrayAt(x, y).Y < 0x80 {
				p[y] |= 0x10 >> x
			}
		}
	}
	return p
}

// Resize returns p cut or padded with dark rows to rows.
func (p Pattern) Resize(rows int) Pattern {
	out := make(Pattern, rows)
	copy(out, p)
	for i := range out {
		out[i] &= 0x1f
	}
	return out
}

// Image returns the pattern as a black on white picture, one pixel per dot.
func (p Pattern) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Width, len(p)))
	for y, bits := range p {
		for x := 0; x < Width; x++ {
			c := color.Gray{Y: 0xff}
			if bits&(0x10>>x) != 0 {
				c.Y = 0
			}
			img.SetGray(x, y, c)
		}
	}
	return img
}

func (p Pattern) String() string {
	var sb strings.Builder
	for y, bits := range p {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < Width; x++ {
			if bits&(0x10>>x) != 0 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}

// Builtin patterns, 5x8.
var (
	Heart = MustParse(
		".....",
		".#.#.",
		"#####",
		"#####",
		".###.",
		"..#..",
		".....",
		".....",
	)
	Bell = MustParse(
		"..#..",
		".###.",
		".###.",
		".###.",
		"#####",
		".....",
		"..#..",
		".....",
	)
	Degree = MustParse(
		".##..",
		"#..#.",
		"#..#.",
		".##..",
		".....",
		".....",
		".....",
		".....",
	)
	ArrowRight = MustParse(
		".....",
		"..#..",
		"...#.",
		"#####",
		"...#.",
		"..#..",
		".....",
		".....",
	)
	Smiley = MustParse(
		".....",
		".#.#.",
		".#.#.",
		".....",
		"#...#",
		".###.",
		".....",
		".....",
	)
	Check = MustParse(
		".....",
		"....#",
		"...##",
		"#.##.",
		"###..",
		".#...",
		".....",
		".....",
	)
)

var builtins = map[string]Pattern{
	"heart":  Heart,
	"bell":   Bell,
	"degree": Degree,
	"arrow":  ArrowRight,
	"smiley": Smiley,
	"check":  Check,
}

// Lookup returns the builtin pattern called name.
func Lookup(name string) (Pattern, bool) {
	p, ok := builtins[strings.ToLower(name)]
	return p, ok
}

// Names lists the builtin patterns, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
