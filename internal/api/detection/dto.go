package detection

import "ProjectSpatial/internal/entity"

type CreateSessionRequest struct {
	Task        string   `json:"task" validate:"omitempty,detect_task"`
	Hash        string   `json:"hash"`
	Temperature *float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
}

type UpdateSessionRequest struct {
	Task        *string  `json:"task" validate:"omitempty,detect_task"`
	Temperature *float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
}

// UpdatePromptRequest edits the template of Task, or of the session's current
// task when Task is empty. Nil fields are left untouched.
type UpdatePromptRequest struct {
	Task             string   `json:"task" validate:"omitempty,detect_task"`
	Parts            []string `json:"parts" validate:"omitempty,max=3"`
	Subject          *string  `json:"subject"`
	Target           *string  `json:"target"`
	LabelInstruction *string  `json:"label_instruction"`
	Language         *string  `json:"language"`
	Custom           *string  `json:"custom"`
	CatalogCategory  *string  `json:"catalog_category" validate:"omitempty,oneof=hot cold pastry all"`
}

type AddStrokeRequest struct {
	Points [][2]float64 `json:"points" validate:"required,min=1,dive,dive,gte=0,lte=1"`
	Color  string       `json:"color" validate:"required,hexcolor"`
}

type RelayRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type StreamCommand struct {
	Action string `json:"action" validate:"required,oneof=send"`
}

// DetectRequest is the form half of the one-shot POST /detect call.
type DetectRequest struct {
	Task             string   `form:"task" validate:"required,detect_task"`
	Subject          string   `form:"subject"`
	Target           string   `form:"target"`
	LabelInstruction string   `form:"label_instruction"`
	Language         string   `form:"language"`
	CatalogCategory  string   `form:"catalog_category" validate:"omitempty,oneof=hot cold pastry all"`
	Temperature      *float64 `form:"temperature" validate:"omitempty,gte=0,lte=2"`
}

type TaskResponse struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

type SessionResponse struct {
	ID             string                    `json:"id"`
	Task           entity.DetectionTask      `json:"task"`
	TaskLabel      string                    `json:"task_label"`
	Prompt         entity.PromptTemplate     `json:"prompt"`
	Strokes        []entity.AnnotationStroke `json:"strokes"`
	Temperature    float64                   `json:"temperature"`
	HasImage       bool                      `json:"has_image"`
	StreamAttached bool                      `json:"stream_attached"`
	HasLiveFrame   bool                      `json:"has_live_frame"`
	Sending        bool                      `json:"sending"`
	CreatedAt      string                    `json:"created_at"`
	UpdatedAt      string                    `json:"updated_at"`
}

type PromptPreviewResponse struct {
	Task       entity.DetectionTask `json:"task"`
	Model      string               `json:"model"`
	Prompt     string               `json:"prompt"`
	TokenCount int32                `json:"token_count"`
}

type ResultResponse struct {
	Task  entity.DetectionTask   `json:"task"`
	Count int                    `json:"count"`
	Items entity.DetectionResult `json:"items"`
}

func NewResultResponse(result entity.DetectionResult) ResultResponse {
	return ResultResponse{
		Task:  result.Task(),
		Count: result.Len(),
		Items: result,
	}
}
