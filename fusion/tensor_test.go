package fusion

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"listing-guard/utils"
)

func redPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeTensor(t *testing.T) {
	tensor, err := DecodeTensor(redPNG(t, 40, 30))

	require.NoError(t, err)
	plane := TensorSize * TensorSize
	require.Len(t, tensor, TensorChannels*plane)
	assert.InDelta(t, 1.0, tensor[0], 0.01)
	assert.InDelta(t, 1.0, tensor[plane-1], 0.01)
	assert.InDelta(t, 0.0, tensor[plane], 0.01)
	assert.InDelta(t, 0.0, tensor[2*plane+100], 0.01)
}

func TestDecodeTensor_Garbage(t *testing.T) {
	_, err := DecodeTensor([]byte("not an image"))
	assert.Error(t, err)
}

func TestTensorizer_ZeroFillsFailures(t *testing.T) {
	source := new(MockImageSource)
	source.On("DownloadImage", mock.Anything, "https://cdn/ok.png").Return(redPNG(t, 8, 8), "image/png", nil)
	source.On("DownloadImage", mock.Anything, "https://cdn/broken.jpg").Return([]byte("garbage"), "image/jpeg", nil)
	source.On("DownloadImage", mock.Anything, "https://cdn/missing.jpg").Return(nil, "", errors.New("404"))

	tz := NewTensorizer(source, utils.NewDiscardLogger())
	out := tz.Tensorize(context.Background(), []string{
		"https://cdn/ok.png", "https://cdn/broken.jpg", "https://cdn/missing.jpg",
	})

	assert.InDelta(t, 1.0, out[0][0], 0.01)
	for _, slot := range out[1:] {
		require.Len(t, slot, TensorChannels*TensorSize*TensorSize)
		assert.Equal(t, ZeroTensor(), slot)
	}
}

func TestTensorizer_OnlyFirstFourImages(t *testing.T) {
	source := new(MockImageSource)
	source.On("DownloadImage", mock.Anything, mock.Anything).Return(nil, "", errors.New("offline"))

	tz := NewTensorizer(source, utils.NewDiscardLogger())
	tz.Tensorize(context.Background(), []string{"a", "b", "c", "d", "e"})

	source.AssertNumberOfCalls(t, "DownloadImage", 4)
	source.AssertNotCalled(t, "DownloadImage", mock.Anything, "e")
}
