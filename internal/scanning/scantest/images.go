// Package scantest renders barcode images for tests.
package scantest

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRCodePNG renders payload as a PNG encoded QR code
func QRCodePNG(payload string) ([]byte, error) {
	img, err := qrcode.NewQRCodeWriter().Encode(payload, gozxing.BarcodeFormat_QR_CODE, 256, 256, nil)
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}

// QRCodeJPEG renders payload as a JPEG encoded QR code, the way the camera delivers frames
func QRCodeJPEG(payload string) ([]byte, error) {
	img, err := qrcode.NewQRCodeWriter().Encode(payload, gozxing.BarcodeFormat_QR_CODE, 256, 256, nil)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, toGray(img), &jpeg.Options{Quality: 100}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Code128PNG renders payload as a PNG encoded Code 128 barcode
func Code128PNG(payload string) ([]byte, error) {
	img, err := oned.NewCode128Writer().Encode(payload, gozxing.BarcodeFormat_CODE_128, 400, 120, nil)
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}

// EAN13PNG renders a 13 digit EAN payload as a PNG
func EAN13PNG(payload string) ([]byte, error) {
	img, err := oned.NewEAN13Writer().Encode(payload, gozxing.BarcodeFormat_EAN_13, 400, 120, nil)
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}

// BlankPNG renders a white image holding no symbol
func BlankPNG() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, toGray(img)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toGray(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return dst
}
