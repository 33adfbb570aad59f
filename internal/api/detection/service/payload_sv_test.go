package detectionService

import (
	"ProjectSpatial/internal/api/detection"
	"ProjectSpatial/internal/entity"
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, fill color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodePayload(t *testing.T, payload entity.RawPayload) image.Image {
	t.Helper()

	img, err := png.Decode(bytes.NewReader(payload.Data))
	require.NoError(t, err)
	return img
}

func TestPreparePayload_NoSource(t *testing.T) {
	_, err := PreparePayload(entity.VisualSource{}, nil)
	assert.ErrorIs(t, err, detection.ErrPreparationFailed)
}

func TestPreparePayload_UndecodableSource(t *testing.T) {
	_, err := PreparePayload(entity.VisualSource{Image: []byte("not an image")}, nil)
	assert.ErrorIs(t, err, detection.ErrPreparationFailed)
}

func TestPreparePayload_ScalesLongerSideTo640(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"downscale landscape", 1280, 640, 640, 320},
		{"downscale portrait", 300, 900, 213, 640},
		{"upscale", 100, 50, 640, 320},
		{"square", 640, 640, 640, 640},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := PreparePayload(entity.VisualSource{Image: encodePNG(t, tt.w, tt.h, color.White)}, nil)
			require.NoError(t, err)

			assert.Equal(t, PayloadMIMEType, payload.MIMEType)
			assert.Equal(t, tt.wantW, payload.Width)
			assert.Equal(t, tt.wantH, payload.Height)

			bounds := decodePayload(t, payload).Bounds()
			assert.Equal(t, tt.wantW, bounds.Dx())
			assert.Equal(t, tt.wantH, bounds.Dy())
		})
	}
}

func TestPreparePayload_LiveFrameWins(t *testing.T) {
	source := entity.VisualSource{
		LiveFrame: encodePNG(t, 200, 100, color.Black),
		Image:     encodePNG(t, 100, 200, color.White),
	}

	payload, err := PreparePayload(source, nil)
	require.NoError(t, err)

	assert.Equal(t, 640, payload.Width)
	assert.Equal(t, 320, payload.Height)
}

func TestPreparePayload_PaintsStrokes(t *testing.T) {
	strokes := []entity.AnnotationStroke{{
		Points: []entity.NormalizedPoint{{0.25, 0.5}, {0.5, 0.5}, {0.75, 0.5}},
		Color:  "#ff0000",
	}}

	payload, err := PreparePayload(entity.VisualSource{Image: encodePNG(t, 640, 640, color.White)}, strokes)
	require.NoError(t, err)

	img := decodePayload(t, payload)

	r, g, b, _ := img.At(320, 320).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Less(t, g, uint32(0x1000))
	assert.Less(t, b, uint32(0x1000))

	r, g, b, _ = img.At(10, 10).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})

	r, g, b, _ = img.At(320, 340).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
}

func TestPreparePayload_SinglePointStrokeIsADot(t *testing.T) {
	strokes := []entity.AnnotationStroke{{
		Points: []entity.NormalizedPoint{{0.5, 0.5}},
		Color:  "#00f",
	}}

	payload, err := PreparePayload(entity.VisualSource{Image: encodePNG(t, 640, 640, color.White)}, strokes)
	require.NoError(t, err)

	r, g, b, _ := decodePayload(t, payload).At(320, 320).RGBA()
	assert.Less(t, r, uint32(0x1000))
	assert.Less(t, g, uint32(0x1000))
	assert.Equal(t, uint32(0xffff), b)
}

func TestPreparePayload_LaterStrokesPaintOver(t *testing.T) {
	strokes := []entity.AnnotationStroke{
		{Points: []entity.NormalizedPoint{{0.4, 0.5}, {0.6, 0.5}}, Color: "#ff0000"},
		{Points: []entity.NormalizedPoint{{0.5, 0.4}, {0.5, 0.6}}, Color: "#00ff00"},
	}

	payload, err := PreparePayload(entity.VisualSource{Image: encodePNG(t, 640, 640, color.White)}, strokes)
	require.NoError(t, err)

	r, g, _, _ := decodePayload(t, payload).At(320, 320).RGBA()
	assert.Less(t, r, uint32(0x1000))
	assert.Equal(t, uint32(0xffff), g)
}

func TestPreparePayload_InvalidStrokeColor(t *testing.T) {
	strokes := []entity.AnnotationStroke{{
		Points: []entity.NormalizedPoint{{0.5, 0.5}},
		Color:  "red",
	}}

	_, err := PreparePayload(entity.VisualSource{Image: encodePNG(t, 64, 64, color.White)}, strokes)
	assert.ErrorIs(t, err, detection.ErrPreparationFailed)
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#ff0000", color.NRGBA{R: 0xff, A: 0xff}, false},
		{"#0f0", color.NRGBA{G: 0xff, A: 0xff}, false},
		{"#f00a", color.NRGBA{R: 0xff, A: 0xaa}, false},
		{"#0000", color.NRGBA{}, false},
		{"3366ccff", color.NRGBA{R: 0x33, G: 0x66, B: 0xcc, A: 0xff}, false},
		{"#11223380", color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x80}, false},
		{"#12345", color.NRGBA{}, true},
		{"#gggggg", color.NRGBA{}, true},
		{"", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
