package detectionService

import (
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/pkg/catalog"
	"fmt"
	"strings"
)

const (
	defaultLabelInstruction = "a text label"
	englishLabelSuffix      = ` text label in the key "label". Use descriptive labels.`
)

// BuildPrompt renders the instruction text for task from the template.
func BuildPrompt(task entity.DetectionTask, tpl entity.PromptTemplate) string {
	if custom := tpl.Custom[task]; custom != "" {
		return custom
	}

	switch task {
	case entity.TaskBoundingBox2D:
		return boundingBox2DPrompt(tpl)
	case entity.TaskSegmentationMask:
		return segmentationPrompt(tpl)
	default:
		return joinParts(tpl.Parts[task])
	}
}

func boundingBox2DPrompt(tpl entity.PromptTemplate) string {
	target := tpl.Target
	if target == "" {
		target = entity.DefaultTarget
	}

	label := tpl.LabelInstruction
	if label == "" {
		label = defaultLabelInstruction
	}

	return fmt.Sprintf(
		`Detect %s, with no more than 20 items. Output a json list where each entry contains the 2D bounding box in "box_2d" and %s in "label".`,
		target, label,
	)
}

func segmentationPrompt(tpl entity.PromptTemplate) string {
	parts := tpl.Parts[entity.TaskSegmentationMask]
	lang := strings.TrimSpace(tpl.Language)
	if lang == "" || strings.EqualFold(lang, "english") || len(parts) < 3 {
		return joinParts(parts)
	}

	suffix := strings.TrimSuffix(parts[2], englishLabelSuffix)
	suffix += fmt.Sprintf(
		` text label in language %s in the key "label". Use descriptive labels in %s. Ensure labels are in %s.  DO NOT USE ENGLISH FOR LABELS.`,
		lang, lang, lang,
	)

	return joinParts([]string{parts[0], parts[1], suffix})
}

// joinParts renders "prefix subject" directly followed by the suffix, which
// carries its own leading space or punctuation.
func joinParts(parts []string) string {
	if len(parts) < 3 {
		return strings.Join(parts, " ")
	}
	return parts[0] + " " + parts[1] + parts[2]
}

// EnrichWithCatalog appends the known product names of the template's catalog
// category, if any.
func EnrichWithCatalog(prompt string, tpl entity.PromptTemplate, cat catalog.ICatalog) string {
	if cat == nil || tpl.CatalogCategory == "" {
		return prompt
	}

	products := cat.ProductContext(tpl.CatalogCategory)
	if products == "" {
		return prompt
	}

	return fmt.Sprintf("%s Known products: %s. Use these product names as labels when they match.", prompt, products)
}

func (s *detectionService) buildPrompt(task entity.DetectionTask, tpl entity.PromptTemplate) string {
	return EnrichWithCatalog(BuildPrompt(task, tpl), tpl, s.catalog)
}
