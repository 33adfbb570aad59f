package detectionService

import (
	"ProjectSpatial/internal/api/detection"
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/pkg/response"
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	jsonFence     = "```json"
	fence         = "```"
	coordinateMax = 1000.0
)

var errNotAList = errors.New("response is not a JSON list")

type rawEntry map[string]jsoniter.RawMessage

// ExtractJSON returns the body of the first ```json fence, or raw unchanged
// when there is none.
func ExtractJSON(raw string) string {
	_, after, found := strings.Cut(raw, jsonFence)
	if !found {
		return raw
	}
	body, _, _ := strings.Cut(after, fence)
	return body
}

// NormalizeResponse converts the model's text into the typed result for task.
// Any malformed entry rejects the whole response.
func NormalizeResponse(task entity.DetectionTask, raw string) (entity.DetectionResult, error) {
	body := bytes.TrimSpace([]byte(ExtractJSON(raw)))
	if len(body) == 0 || body[0] != '[' {
		return nil, response.Wrap(detection.ErrParseFailed, errNotAList)
	}

	var entries []rawEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, response.Wrap(detection.ErrParseFailed, err)
	}

	var (
		result entity.DetectionResult
		err    error
	)

	switch task {
	case entity.TaskBoundingBox2D:
		result, err = normalizeBoxes2D(entries)
	case entity.TaskSegmentationMask:
		result, err = normalizeMasks(entries)
	case entity.TaskPoint:
		result, err = normalizePoints(entries)
	case entity.TaskBoundingBox3D:
		result, err = normalizeBoxes3D(entries)
	default:
		return nil, response.Wrap(detection.ErrUnknownTask, fmt.Errorf("task %d", task))
	}

	if err != nil {
		return nil, response.Wrap(detection.ErrParseFailed, err)
	}
	return result, nil
}

func normalizeBoxes2D(entries []rawEntry) (entity.BoundingBoxes2D, error) {
	boxes := make(entity.BoundingBoxes2D, 0, len(entries))
	for i, e := range entries {
		box, err := box2D(e)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

func normalizeMasks(entries []rawEntry) (entity.SegmentationMasks, error) {
	masks := make(entity.SegmentationMasks, 0, len(entries))
	for i, e := range entries {
		box, err := box2D(e)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		mask, err := stringField(e, "mask")
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		masks = append(masks, entity.SegmentationMask{BoundingBox2D: box, Mask: mask})
	}

	sort.SliceStable(masks, func(a, b int) bool {
		return masks[a].Area() > masks[b].Area()
	})
	return masks, nil
}

func normalizePoints(entries []rawEntry) (entity.Points, error) {
	points := make(entity.Points, 0, len(entries))
	for i, e := range entries {
		yx, err := numbersField(e, "point", 2)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		label, err := stringField(e, "label")
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		points = append(points, entity.Point{
			X:     yx[1] / coordinateMax,
			Y:     yx[0] / coordinateMax,
			Label: label,
		})
	}
	return points, nil
}

func normalizeBoxes3D(entries []rawEntry) (entity.BoundingBoxes3D, error) {
	boxes := make(entity.BoundingBoxes3D, 0, len(entries))
	for i, e := range entries {
		v, err := numbersField(e, "box_3d", 9)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		label, err := stringField(e, "label")
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		box := entity.BoundingBox3D{Label: label}
		copy(box.Center[:], v[0:3])
		copy(box.Size[:], v[3:6])
		for k := 0; k < 3; k++ {
			box.RPY[k] = v[6+k] * math.Pi / 180
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// box2D reads "box_2d" as [ymin, xmin, ymax, xmax] on the 0-1000 grid.
func box2D(e rawEntry) (entity.BoundingBox2D, error) {
	v, err := numbersField(e, "box_2d", 4)
	if err != nil {
		return entity.BoundingBox2D{}, err
	}
	label, err := stringField(e, "label")
	if err != nil {
		return entity.BoundingBox2D{}, err
	}

	ymin, xmin, ymax, xmax := v[0], v[1], v[2], v[3]
	return entity.BoundingBox2D{
		X:      xmin / coordinateMax,
		Y:      ymin / coordinateMax,
		Width:  (xmax - xmin) / coordinateMax,
		Height: (ymax - ymin) / coordinateMax,
		Label:  label,
	}, nil
}

func field(e rawEntry, key string) (jsoniter.RawMessage, error) {
	raw, ok := e[key]
	if !ok || len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("missing %q", key)
	}
	return raw, nil
}

func stringField(e rawEntry, key string) (string, error) {
	raw, err := field(e, key)
	if err != nil {
		return "", err
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%q is not a string", key)
	}
	return s, nil
}

func numbersField(e rawEntry, key string, arity int) ([]float64, error) {
	raw, err := field(e, key)
	if err != nil {
		return nil, err
	}

	var v []float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%q is not a list of numbers", key)
	}
	if len(v) != arity {
		return nil, fmt.Errorf("%q has %d values, want %d", key, len(v), arity)
	}
	return v, nil
}
