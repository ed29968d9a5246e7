package fusion

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"listing-guard/utils"
)

// Tensor geometry expected by the price model.
const (
	TensorSize     = 224
	TensorChannels = 3
	ImageSlots     = 4
)

// ImageTensor is a CHW float32 tensor with values in [0, 1].
type ImageTensor []float32

// ZeroTensor is the placeholder for a missing or undecodable image.
func ZeroTensor() ImageTensor {
	return make(ImageTensor, TensorChannels*TensorSize*TensorSize)
}

// ImageSource downloads raw image bytes.
type ImageSource interface {
	DownloadImage(ctx context.Context, url string) ([]byte, string, error)
}

// Tensorizer turns listing image URLs into model input.
type Tensorizer struct {
	source ImageSource
	logger *utils.Logger
}

// NewTensorizer downloads images through source.
func NewTensorizer(source ImageSource, logger *utils.Logger) *Tensorizer {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}
	return &Tensorizer{source: source, logger: logger}
}

// Tensorize fills ImageSlots tensors from the first images. Slots without an
// image, or whose image fails to download or decode, are zero-filled.
func (t *Tensorizer) Tensorize(ctx context.Context, urls []string) [ImageSlots]ImageTensor {
	var out [ImageSlots]ImageTensor
	for i := range out {
		out[i] = ZeroTensor()
		if i >= len(urls) {
			continue
		}
		data, _, err := t.source.DownloadImage(ctx, urls[i])
		if err != nil {
			t.logger.Debug("[fusion] Image %d unavailable: %v", i, err)
			continue
		}
		tensor, err := DecodeTensor(data)
		if err != nil {
			t.logger.Debug("[fusion] Image %d undecodable: %v", i, err)
			continue
		}
		out[i] = tensor
	}
	return out
}

// DecodeTensor decodes a jpeg, png or webp image, resizes it to
// TensorSize×TensorSize and lays it out channel-first.
func DecodeTensor(data []byte) (ImageTensor, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, TensorSize, TensorSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	const plane = TensorSize * TensorSize
	tensor := make(ImageTensor, TensorChannels*plane)
	for y := 0; y < TensorSize; y++ {
		for x := 0; x < TensorSize; x++ {
			i := dst.PixOffset(x, y)
			p := y*TensorSize + x
			tensor[p] = float32(dst.Pix[i]) / 255
			tensor[plane+p] = float32(dst.Pix[i+1]) / 255
			tensor[2*plane+p] = float32(dst.Pix[i+2]) / 255
		}
	}
	return tensor, nil
}
