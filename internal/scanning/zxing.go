package scanning

import (
	"fmt"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

var readerFactories = map[Symbology]func() gozxing.Reader{
	SymbologyQRCode:  func() gozxing.Reader { return qrcode.NewQRCodeReader() },
	SymbologyEAN13:   func() gozxing.Reader { return oned.NewEAN13Reader() },
	SymbologyCode128: func() gozxing.Reader { return oned.NewCode128Reader() },
}

// ZXing implements the Decoder interface using gozxing readers
type ZXing struct {
	symbologies []Symbology
	hints       map[gozxing.DecodeHintType]interface{}
}

// NewZXing creates a decoder restricted to the given symbologies, searched in order.
// With no arguments DefaultSymbologies is used.
func NewZXing(symbologies ...Symbology) (*ZXing, error) {
	if len(symbologies) == 0 {
		symbologies = DefaultSymbologies
	}
	for _, s := range symbologies {
		if _, ok := readerFactories[s]; !ok {
			return nil, fmt.Errorf("unsupported symbology %q", s)
		}
	}

	return &ZXing{
		symbologies: append([]Symbology(nil), symbologies...),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}, nil
}

// Symbologies returns the allow-list in search order
func (z *ZXing) Symbologies() []Symbology {
	return append([]Symbology(nil), z.symbologies...)
}

// Decode returns the first symbol found by the allow-listed readers.
// Readers keep internal state, so each call builds its own set.
func (z *ZXing) Decode(data []byte, contentType string) (*Symbol, error) {
	img, err := decodeRaster(data, contentType)
	if err != nil {
		return nil, err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w: binarizing image: %v", ErrCorruptImage, err)
	}

	for _, symbology := range z.symbologies {
		reader := readerFactories[symbology]()
		result, err := reader.Decode(bmp, z.hints)
		if err != nil {
			continue
		}
		return &Symbol{
			Payload:   result.GetText(),
			Symbology: symbology,
		}, nil
	}

	return nil, ErrNoSymbol
}
