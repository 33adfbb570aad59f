package entity

import (
	"encoding/json"
	"fmt"
)

// BoundingBox2D is expressed in image fractions with the origin at the top-left.
// Values are not clamped: whatever the model reports is kept.
type BoundingBox2D struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Label  string  `json:"label"`
}

func (b BoundingBox2D) Area() float64 {
	return b.Width * b.Height
}

type SegmentationMask struct {
	BoundingBox2D
	// Mask is the raster the model embedded for this box, usually a base64 PNG data URL.
	Mask string `json:"mask"`
}

type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

// BoundingBox3D keeps the model's scene units for Center and Size. RPY is in radians.
type BoundingBox3D struct {
	Center [3]float64 `json:"center"`
	Size   [3]float64 `json:"size"`
	RPY    [3]float64 `json:"rpy"`
	Label  string     `json:"label"`
}

// DetectionResult is one of BoundingBoxes2D, SegmentationMasks, Points or BoundingBoxes3D.
type DetectionResult interface {
	Task() DetectionTask
	Len() int
	isDetectionResult()
}

type BoundingBoxes2D []BoundingBox2D

type SegmentationMasks []SegmentationMask

type Points []Point

type BoundingBoxes3D []BoundingBox3D

func (BoundingBoxes2D) Task() DetectionTask   { return TaskBoundingBox2D }
func (SegmentationMasks) Task() DetectionTask { return TaskSegmentationMask }
func (Points) Task() DetectionTask            { return TaskPoint }
func (BoundingBoxes3D) Task() DetectionTask   { return TaskBoundingBox3D }

func (r BoundingBoxes2D) Len() int   { return len(r) }
func (r SegmentationMasks) Len() int { return len(r) }
func (r Points) Len() int            { return len(r) }
func (r BoundingBoxes3D) Len() int   { return len(r) }

func (BoundingBoxes2D) isDetectionResult()   {}
func (SegmentationMasks) isDetectionResult() {}
func (Points) isDetectionResult()            {}
func (BoundingBoxes3D) isDetectionResult()   {}

// ResultEnvelope is the wire and storage form of a DetectionResult.
type ResultEnvelope struct {
	Task  DetectionTask   `json:"task"`
	Items json.RawMessage `json:"items"`
}

func MarshalResult(result DetectionResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("nil detection result")
	}

	var items any
	switch r := result.(type) {
	case BoundingBoxes2D:
		items = emptyIfNil(r)
	case SegmentationMasks:
		items = emptyIfNil(r)
	case Points:
		items = emptyIfNil(r)
	case BoundingBoxes3D:
		items = emptyIfNil(r)
	default:
		return nil, fmt.Errorf("unsupported detection result %T", result)
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	return json.Marshal(ResultEnvelope{Task: result.Task(), Items: raw})
}

func UnmarshalResult(data []byte) (DetectionResult, error) {
	var envelope ResultEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	switch envelope.Task {
	case TaskBoundingBox2D:
		var r BoundingBoxes2D
		err := decodeItems(envelope.Items, &r)
		return r, err
	case TaskSegmentationMask:
		var r SegmentationMasks
		err := decodeItems(envelope.Items, &r)
		return r, err
	case TaskPoint:
		var r Points
		err := decodeItems(envelope.Items, &r)
		return r, err
	case TaskBoundingBox3D:
		var r BoundingBoxes3D
		err := decodeItems(envelope.Items, &r)
		return r, err
	default:
		return nil, fmt.Errorf("unsupported detection task %d", envelope.Task)
	}
}

func decodeItems(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
