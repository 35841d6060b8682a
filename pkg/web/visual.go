/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: visual.go
Description: Pixel comparison of captured screenshots for the similarity comparator.
*/

package web

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/png"

	"github.com/kleascm/akaylee-explorer/pkg/interfaces"
)

const (
	pixelTolerance = 24 // Per channel, on the 8-bit scale
	sampleStride   = 2  // Compare every second pixel in both directions
)

// PixelDiffer compares PNG screenshots pixel by pixel
type PixelDiffer struct{}

// Similarity returns the share of sampled pixels that match. Screenshots of
// different sizes compare over their common area, scaled by the area ratio.
func (PixelDiffer) Similarity(a, b *interfaces.Observation) (float64, error) {
	if !a.HasVisualData() || !b.HasVisualData() {
		if a.VisualFingerprint == b.VisualFingerprint {
			return 1, nil
		}
		return 0, nil
	}

	imgA, _, err := image.Decode(bytes.NewReader(a.VisualData))
	if err != nil {
		return 0, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	imgB, _, err := image.Decode(bytes.NewReader(b.VisualData))
	if err != nil {
		return 0, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return comparePixels(imgA, imgB), nil
}

// Similarity lets the browser target act as its own visual differ
func (b *BrowserTarget) Similarity(x, y *interfaces.Observation) (float64, error) {
	return PixelDiffer{}.Similarity(x, y)
}

func comparePixels(a, b image.Image) float64 {
	ba, bb := a.Bounds(), b.Bounds()
	w := min(ba.Dx(), bb.Dx())
	h := min(ba.Dy(), bb.Dy())
	if w == 0 || h == 0 {
		return 0
	}

	var total, same int
	for y := 0; y < h; y += sampleStride {
		for x := 0; x < w; x += sampleStride {
			total++
			if pixelsMatch(a.At(ba.Min.X+x, ba.Min.Y+y), b.At(bb.Min.X+x, bb.Min.Y+y)) {
				same++
			}
		}
	}

	areaA := float64(ba.Dx() * ba.Dy())
	areaB := float64(bb.Dx() * bb.Dy())
	overlap := float64(w*h) / max(areaA, areaB)
	return float64(same) / float64(total) * overlap
}

func pixelsMatch(p, q color.Color) bool {
	r1, g1, b1, a1 := p.RGBA()
	r2, g2, b2, a2 := q.RGBA()
	return channelClose(r1, r2) && channelClose(g1, g2) && channelClose(b1, b2) && channelClose(a1, a2)
}

func channelClose(x, y uint32) bool {
	// RGBA returns 16-bit channels
	x, y = x>>8, y>>8
	if x > y {
		return x-y <= pixelTolerance
	}
	return y-x <= pixelTolerance
}
