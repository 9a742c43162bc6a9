package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// ImageSize is the side length images are scaled to before flattening.
const ImageSize = 28

// FeatureSize is the length of an extracted feature vector.
const FeatureSize = ImageSize * ImageSize

// Features decodes an encoded image, scales it to ImageSize×ImageSize
// grayscale and returns the row-major pixel intensities in [0, 1].
func Features(raw []byte) ([]float64, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, errors.New("empty image")
	}
	gray := image.NewGray(image.Rect(0, 0, ImageSize, ImageSize))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)

	features := make([]float64, FeatureSize)
	for y := 0; y < ImageSize; y++ {
		for x := 0; x < ImageSize; x++ {
			features[y*ImageSize+x] = float64(gray.GrayAt(x, y).Y) / 255.0
		}
	}
	return features, nil
}

// OneHot returns a vector of length classes with a 1 at label.
func OneHot(label, classes int) ([]float64, error) {
	if label < 0 || label >= classes {
		return nil, fmt.Errorf("label %d outside [0, %d)", label, classes)
	}
	v := make([]float64, classes)
	v[label] = 1
	return v, nil
}
