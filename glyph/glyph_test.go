// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package glyph

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse(
		"#...#",
		".#.#.",
		"..X..",
		" * * ",
		"1___1",
	)
	require.NoError(t, err)
	assert.Equal(t, Pattern{0x11, 0x0a, 0x04, 0x0a, 0x11}, p)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		rows []string
	}{
		{"empty", nil},
		{"too many", make([]string, 11)},
		{"short row", []string{"###"}},
		{"long row", []string{"######"}},
		{"bad char", []string{"#?#.#"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.rows...)
			assert.True(t, errors.Is(err, ErrFormat), "%v", err)
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
}

func TestString(t *testing.T) {
	assert.Equal(t, ".....\n.#.#.\n#####\n#####\n.###.\n..#..\n.....\n.....", Heart.String())
	p, err := Parse(Heart.String()[:5], Heart.String()[6:11])
	require.NoError(t, err)
	assert.Equal(t, Heart[:2], p)
}

func TestResize(t *testing.T) {
	p := Pattern{0xff, 0x01}
	assert.Equal(t, Pattern{0x1f, 0x01, 0, 0, 0, 0, 0, 0, 0, 0}, p.Resize(Rows5x10))
	assert.Equal(t, Pattern{0x1f}, p.Resize(1))
	assert.Equal(t, Pattern{0xff, 0x01}, p, "Resize must not modify its receiver")
}

func TestBuiltins(t *testing.T) {
	for _, name := range Names() {
		p, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Len(t, p, Rows5x8, name)
		for _, row := range p {
			assert.Zero(t, row&^0x1f, name)
		}
	}
	_, ok := Lookup("HEART")
	assert.True(t, ok)
	_, ok = Lookup("nothing")
	assert.False(t, ok)
}

func TestImageRoundTrip(t *testing.T) {
	for _, p := range []Pattern{Heart, Bell, Check} {
		assert.Equal(t, p, FromImage(p.Image(), len(p)))
	}
}

func TestFromImageScales(t *testing.T) {
	// Left half black on a 50x80 picture.
	img := image.NewGray(image.Rect(0, 0, 50, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, 20, 80), &image.Uniform{color.Black}, image.Point{}, draw.Src)
	p := FromImage(img, Rows5x8)
	require.Len(t, p, Rows5x8)
	for y, row := range p {
		assert.Equal(t, byte(0x18), row, "row %d", y)
	}
}
