package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalResult_KeepsVariant(t *testing.T) {
	results := []DetectionResult{
		BoundingBoxes2D{{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4, Label: "cup"}},
		SegmentationMasks{{BoundingBox2D: BoundingBox2D{Width: 1, Height: 1, Label: "cat"}, Mask: "data:image/png;base64,AAAA"}},
		Points{{X: 0.5, Y: 0.5, Label: "knob"}},
		BoundingBoxes3D{{Center: [3]float64{1, 2, 3}, Size: [3]float64{1, 1, 1}, RPY: [3]float64{0, 0, 1.57}, Label: "box"}},
	}

	for _, result := range results {
		data, err := MarshalResult(result)
		require.NoError(t, err)

		decoded, err := UnmarshalResult(data)
		require.NoError(t, err)
		assert.Equal(t, result, decoded)
	}
}

func TestMarshalResult_EmptyIsList(t *testing.T) {
	data, err := MarshalResult(Points(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"task":"points","items":[]}`, string(data))
}

func TestMarshalResult_Nil(t *testing.T) {
	_, err := MarshalResult(nil)
	assert.Error(t, err)
}

func TestUnmarshalResult_UnknownTask(t *testing.T) {
	_, err := UnmarshalResult([]byte(`{"task":"polygons","items":[]}`))
	assert.Error(t, err)
}

func TestBoundingBox2D_Area(t *testing.T) {
	assert.InDelta(t, 0.12, BoundingBox2D{Width: 0.3, Height: 0.4}.Area(), 1e-12)
}
