package entity

const (
	DefaultTarget   = "items"
	DefaultLanguage = "English"
)

// PromptTemplate is the user-editable prompt state. Parts holds the
// (prefix, subject, suffix) fragments per task.
type PromptTemplate struct {
	Parts            map[DetectionTask][]string `json:"parts"`
	Target           string                     `json:"target"`
	LabelInstruction string                     `json:"label_instruction,omitempty"`
	Language         string                     `json:"language"`
	Custom           map[DetectionTask]string   `json:"custom,omitempty"`
	CatalogCategory  string                     `json:"catalog_category,omitempty"`
}

func DefaultPromptParts() map[DetectionTask][]string {
	return map[DetectionTask][]string{
		TaskBoundingBox2D: {
			"Show me the positions of",
			"items",
			"as a JSON list. Do not return masks. Limit to 25 items.",
		},
		TaskSegmentationMask: {
			"Give the segmentation masks for",
			"all objects",
			`. Output a JSON list of segmentation masks where each entry contains the 2D bounding box in the key "box_2d", the segmentation mask in key "mask", and the text label in the key "label". Use descriptive labels.`,
		},
		TaskPoint: {
			"Point to the",
			"items",
			` with no more than 10 items. The answer should follow the json format: [{"point": <point>, "label": <label1>}, ...]. The points are in [y, x] format normalized to 0-1000.`,
		},
		TaskBoundingBox3D: {
			"Output in json. Detect the 3D bounding boxes of",
			"items",
			`, output no more than 10 items. Return a list where each entry contains the object name in "label" and its 3D bounding box in "box_3d".`,
		},
	}
}

func DefaultPromptTemplate() PromptTemplate {
	return PromptTemplate{
		Parts:    DefaultPromptParts(),
		Target:   DefaultTarget,
		Language: DefaultLanguage,
		Custom:   map[DetectionTask]string{},
	}
}

// SetSubject replaces the user-editable middle fragment, padding the task's
// fragments to three when needed.
func (p *PromptTemplate) SetSubject(task DetectionTask, subject string) {
	if p.Parts == nil {
		p.Parts = map[DetectionTask][]string{}
	}
	parts := append([]string(nil), p.Parts[task]...)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	parts[1] = subject
	p.Parts[task] = parts
}

func (p PromptTemplate) Clone() PromptTemplate {
	clone := p
	clone.Parts = make(map[DetectionTask][]string, len(p.Parts))
	for task, parts := range p.Parts {
		clone.Parts[task] = append([]string(nil), parts...)
	}
	clone.Custom = make(map[DetectionTask]string, len(p.Custom))
	for task, text := range p.Custom {
		clone.Custom[task] = text
	}
	return clone
}
