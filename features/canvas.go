package features

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Canvas is a mutable channels-last buffer used to synthesize feature maps.
type Canvas struct {
	channels int
	height   int
	width    int
	data     []float64
}

// NewCanvas returns a zeroed canvas.
func NewCanvas(channels, height, width int) *Canvas {
	return &Canvas{channels: channels, height: height, width: width, data: make([]float64, channels*height*width)}
}

// Fill sets every location to v.
func (c *Canvas) Fill(v []float64) {
	for i := 0; i < c.height*c.width; i++ {
		copy(c.data[i*c.channels:(i+1)*c.channels], v)
	}
}

// Set writes v at a pixel. Out of range pixels are ignored.
func (c *Canvas) Set(row, col int, v []float64) {
	if row < 0 || row >= c.height || col < 0 || col >= c.width {
		return
	}
	i := (row*c.width + col) * c.channels
	copy(c.data[i:i+c.channels], v)
}

// Pixel returns the mutable descriptor at a pixel.
func (c *Canvas) Pixel(row, col int) []float64 {
	i := (row*c.width + col) * c.channels
	return c.data[i : i+c.channels]
}

// AddNoise adds zero mean gaussian noise with the given standard deviation to every value.
// A nil src draws from the global source.
func (c *Canvas) AddNoise(sigma float64, src rand.Source) {
	if sigma <= 0 {
		return
	}
	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
	for i := range c.data {
		c.data[i] += dist.Rand()
	}
}

// Map normalizes a copy of the canvas into a feature map.
func (c *Canvas) Map() (*Map, error) {
	return NewMapFromHWC(c.channels, c.height, c.width, c.data)
}
