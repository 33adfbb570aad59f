package entity

import (
	"fmt"
	"net/url"
	"strings"
)

type DetectionTask uint8

const (
	TaskBoundingBox2D    DetectionTask = 1
	TaskSegmentationMask DetectionTask = 2
	TaskPoint            DetectionTask = 3
	TaskBoundingBox3D    DetectionTask = 4
)

// AllTasks is the selector order shown to users.
var AllTasks = []DetectionTask{
	TaskBoundingBox2D,
	TaskSegmentationMask,
	TaskPoint,
	TaskBoundingBox3D,
}

var DetectionTaskMap = map[DetectionTask]string{
	TaskBoundingBox2D:    "2D bounding boxes",
	TaskSegmentationMask: "Segmentation masks",
	TaskPoint:            "Points",
	TaskBoundingBox3D:    "3D bounding boxes",
}

var detectionTaskSlugs = map[DetectionTask]string{
	TaskBoundingBox2D:    "2d-bounding-boxes",
	TaskSegmentationMask: "segmentation-masks",
	TaskPoint:            "points",
	TaskBoundingBox3D:    "3d-bounding-boxes",
}

func (t DetectionTask) String() string {
	return DetectionTaskMap[t]
}

// Slug is the form used by the URL-hash selector and on the wire.
func (t DetectionTask) Slug() string {
	return detectionTaskSlugs[t]
}

func (t DetectionTask) Value() uint8 {
	return uint8(t)
}

func (t DetectionTask) Valid() bool {
	_, ok := DetectionTaskMap[t]
	return ok
}

// ParseDetectionTask accepts either a slug or a display label, case-insensitively.
func ParseDetectionTask(s string) (DetectionTask, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, task := range AllTasks {
		if needle == task.Slug() || needle == strings.ToLower(task.String()) {
			return task, nil
		}
	}
	return 0, fmt.Errorf("unknown detection task %q", s)
}

func (t DetectionTask) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid detection task %d", t)
	}
	return []byte(t.Slug()), nil
}

func (t *DetectionTask) UnmarshalText(text []byte) error {
	task, err := ParseDetectionTask(string(text))
	if err != nil {
		return err
	}
	*t = task
	return nil
}

// HashParams parses a location fragment such as "#task=points&foo=bar".
func HashParams(fragment string) map[string]string {
	params := make(map[string]string)
	fragment = strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	if fragment == "" {
		return params
	}
	values, err := url.ParseQuery(fragment)
	if err != nil {
		return params
	}
	for key := range values {
		params[key] = values.Get(key)
	}
	return params
}

// TaskFromHash resolves the "task" hash parameter. Only slugs are recognised
// there; ok is false when the parameter is missing or unknown.
func TaskFromHash(fragment string) (task DetectionTask, param string, ok bool) {
	param, present := HashParams(fragment)["task"]
	if !present {
		return 0, "", false
	}
	for _, candidate := range AllTasks {
		if param == candidate.Slug() {
			return candidate, param, true
		}
	}
	return 0, param, false
}
