package entity

import "time"

const DefaultTemperature = 0.5

// NormalizedPoint is an (x, y) pair in [0,1] image fractions.
type NormalizedPoint [2]float64

// AnnotationStroke is one free-hand mark drawn over the image.
type AnnotationStroke struct {
	Points []NormalizedPoint `json:"points"`
	Color  string            `json:"color"`
}

// RawPayload is the still image sent to the model.
type RawPayload struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// VisualSource holds whatever the user currently shows: a live-stream frame,
// an uploaded image, or both. The live frame wins when present.
type VisualSource struct {
	LiveFrame []byte
	Image     []byte
}

func (v VisualSource) Empty() bool {
	return len(v.LiveFrame) == 0 && len(v.Image) == 0
}

// DetectionSession is the server-side counterpart of the browser UI state.
type DetectionSession struct {
	ID          string             `json:"id"`
	Task        DetectionTask      `json:"task"`
	Prompt      PromptTemplate     `json:"prompt"`
	Strokes     []AnnotationStroke `json:"strokes"`
	Temperature float64            `json:"temperature"`
	ImageKey    string             `json:"image_key,omitempty"`
	ImageType   string             `json:"image_type,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func NewDetectionSession(id string, now time.Time) DetectionSession {
	return DetectionSession{
		ID:          id,
		Task:        TaskBoundingBox2D,
		Prompt:      DefaultPromptTemplate(),
		Strokes:     []AnnotationStroke{},
		Temperature: DefaultTemperature,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
