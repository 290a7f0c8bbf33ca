package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

var demoSlides = []struct {
	name string
	fill color.RGBA
}{
	{"Intro", color.RGBA{0x1e, 0x3a, 0x5f, 0xff}},
	{"Architecture", color.RGBA{0x2d, 0x6a, 0x4f, 0xff}},
	{"Design", color.RGBA{0x6a, 0x4c, 0x93, 0xff}},
	{"Implementation", color.RGBA{0x9c, 0x2f, 0x2f, 0xff}},
	{"Testing", color.RGBA{0xb5, 0x83, 0x1e, 0xff}},
	{"Deployment", color.RGBA{0x1f, 0x6f, 0x8b, 0xff}},
	{"Conclusion", color.RGBA{0x44, 0x44, 0x44, 0xff}},
	{"Q&A", color.RGBA{0x0b, 0x0b, 0x0b, 0xff}},
}

// DemoDeck builds the eight-slide 1600x900 demo deck.
func DemoDeck(store *ImageStore) (*RasterDeck, error) {
	pages := make([]Page, 0, len(demoSlides))
	for _, s := range demoSlides {
		img := image.NewRGBA(image.Rect(0, 0, 1600, 900))
		draw.Draw(img, img.Bounds(), image.NewUniform(s.fill), image.Point{}, draw.Src)
		pages = append(pages, Page{Image: img, Name: s.name})
	}
	return NewRasterDeck(store, pages)
}
