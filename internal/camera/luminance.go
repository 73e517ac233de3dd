package camera

import (
	"image"

	"github.com/disintegration/imaging"
)

// Веса яркости (Rec. 709)
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

// AverageLuminance - средняя яркость по всем пикселям, 0..255
func AverageLuminance(img image.Image) float64 {
	if img == nil {
		return 0
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = imaging.Clone(img)
	}

	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var sum float64
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			sum += lumaR*float64(row[i]) + lumaG*float64(row[i+1]) + lumaB*float64(row[i+2])
		}
	}
	return sum / float64(w*h)
}
