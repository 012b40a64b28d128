// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gomono"
)

var (
	colorInk  = color.NRGBA{0x10, 0x18, 0x08, 0xff}
	colorCell = color.NRGBA{0x00, 0x00, 0x00, 0x18}

	monoOnce sync.Once
	mono     *truetype.Font
	monoErr  error
)

// Image renders the panel with each LCD dot scale pixels wide. CGRAM
// characters are drawn dot for dot, ROM characters use a monospace font
// sized to the cell.
func (b *Bus) Image(scale int) (image.Image, error) {
	if scale < 1 {
		scale = 1
	}
	monoOnce.Do(func() { mono, monoErr = truetype.Parse(gomono.TTF) })
	if monoErr != nil {
		return nil, monoErr
	}

	b.mu.Lock()
	lines := b.lines()
	lit := b.port&pinBacklight != 0
	dotRows := 8
	if b.c.font5x10 && !b.c.twoLine {
		dotRows = 10
	}
	var cgram [0x40]byte
	copy(cgram[:], b.c.cgram[:])
	b.mu.Unlock()

	s := float64(scale)
	cellW, cellH := 6*s, float64(dotRows+1)*s
	margin := 2 * s
	w := int(2*margin + float64(b.cols)*cellW)
	h := int(2*margin + float64(b.rows)*cellH)

	dc := gg.NewContext(w, h)
	if lit {
		dc.SetColor(colorLit)
	} else {
		dc.SetColor(colorUnlit)
	}
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(mono, &truetype.Options{Size: float64(dotRows) * s}))

	for row := 0; row < b.rows; row++ {
		y := margin + float64(row)*cellH
		for col := 0; col < b.cols; col++ {
			x := margin + float64(col)*cellW
			dc.SetColor(colorCell)
			dc.DrawRectangle(x, y, 5*s, float64(dotRows)*s)
			dc.Fill()

			c := byte(' ')
			if col < len(lines[row]) {
				c = lines[row][col]
			}
			dc.SetColor(colorInk)
			switch {
			case c < 0x10:
				slot := int(c&7) * 8
				for dy := 0; dy < dotRows && slot+dy < len(cgram); dy++ {
					bits := cgram[slot+dy]
					for dx := 0; dx < 5; dx++ {
						if bits&(0x10>>dx) != 0 {
							dc.DrawRectangle(x+float64(dx)*s, y+float64(dy)*s, s, s)
						}
					}
				}
				dc.Fill()
			case c > 0x20 && c < 0x7f:
				dc.DrawStringAnchored(string(rune(c)), x+2.5*s, y+float64(dotRows)*s/2, 0.5, 0.5)
			}
		}
	}
	return dc.Image(), nil
}

// SavePNG renders the panel like Image and writes it to path.
func (b *Bus) SavePNG(path string, scale int) error {
	img, err := b.Image(scale)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, img)
}
