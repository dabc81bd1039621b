package chart

import "image/color"

// tab10 is the ten-colour categorical cycle.
var tab10 = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
	{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
	{R: 0xbc, G: 0xbd, B: 0x22, A: 0xff},
	{R: 0x17, G: 0xbe, B: 0xcf, A: 0xff},
}

// Palette assigns colours to series keys in first-use order, cycling
// through tab10. Sharing a Palette between charts keeps a key's colour
// stable across them.
type Palette struct {
	assigned map[string]color.RGBA
}

// NewPalette returns an empty palette.
func NewPalette() *Palette {
	return &Palette{assigned: make(map[string]color.RGBA)}
}

// Assign returns the colour of key, assigning the next colour of the cycle
// on first use.
func (p *Palette) Assign(key string) color.RGBA {
	if c, ok := p.assigned[key]; ok {
		return c
	}
	c := tab10[len(p.assigned)%len(tab10)]
	p.assigned[key] = c
	return c
}

// Len returns the number of keys assigned so far.
func (p *Palette) Len() int {
	return len(p.assigned)
}
