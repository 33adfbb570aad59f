package detectionService

import (
	"ProjectSpatial/internal/api/detection"
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/pkg/freehand"
	"ProjectSpatial/pkg/response"
	"ProjectSpatial/pkg/utils"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/vector"
)

const (
	PayloadMaxSide  = 640
	PayloadMIMEType = "image/png"
	strokePressure  = 0.5
)

var errNoVisualSource = errors.New("no live frame and no image to send")

// PreparePayload renders the visual source scaled to PayloadMaxSide with the
// annotation strokes painted on top, in order, and encodes it as PNG.
func PreparePayload(source entity.VisualSource, strokes []entity.AnnotationStroke) (entity.RawPayload, error) {
	data := source.LiveFrame
	if len(data) == 0 {
		data = source.Image
	}
	if len(data) == 0 {
		return entity.RawPayload{}, response.Wrap(detection.ErrPreparationFailed, errNoVisualSource)
	}

	img, _, err := utils.DecodeImage(data)
	if err != nil {
		return entity.RawPayload{}, response.Wrap(detection.ErrPreparationFailed, err)
	}

	canvas, err := utils.ScaleToFit(img, PayloadMaxSide)
	if err != nil {
		return entity.RawPayload{}, response.Wrap(detection.ErrPreparationFailed, err)
	}

	for i, stroke := range strokes {
		if err := paintStroke(canvas, stroke); err != nil {
			return entity.RawPayload{}, response.Wrap(detection.ErrPreparationFailed, fmt.Errorf("stroke %d: %w", i, err))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return entity.RawPayload{}, response.Wrap(detection.ErrPreparationFailed, err)
	}

	bounds := canvas.Bounds()
	return entity.RawPayload{
		Data:     buf.Bytes(),
		MIMEType: PayloadMIMEType,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}

func paintStroke(canvas *image.RGBA, stroke entity.AnnotationStroke) error {
	if len(stroke.Points) == 0 {
		return nil
	}

	fill, err := ParseHexColor(stroke.Color)
	if err != nil {
		return err
	}

	bounds := canvas.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	points := make([]freehand.Point, 0, len(stroke.Points))
	for _, p := range stroke.Points {
		points = append(points, freehand.Point{X: p[0] * w, Y: p[1] * h, Pressure: strokePressure})
	}

	outline := freehand.Outline(points, freehand.AnnotationOptions)
	if len(outline) < 3 {
		return nil
	}

	r := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	r.MoveTo(float32(outline[0].X), float32(outline[0].Y))
	for _, v := range outline[1:] {
		r.LineTo(float32(v.X), float32(v.Y))
	}
	r.ClosePath()
	r.Draw(canvas, bounds, image.NewUniform(fill), image.Point{})

	return nil
}

// ParseHexColor accepts #rgb, #rgba, #rrggbb and #rrggbbaa.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 4:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2], hex[3], hex[3]})
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}

	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
