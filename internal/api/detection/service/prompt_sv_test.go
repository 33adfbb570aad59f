package detectionService

import (
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/pkg/catalog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_Defaults(t *testing.T) {
	tpl := entity.DefaultPromptTemplate()

	tests := []struct {
		task entity.DetectionTask
		want string
	}{
		{
			entity.TaskBoundingBox2D,
			`Detect items, with no more than 20 items. Output a json list where each entry contains the 2D bounding box in "box_2d" and a text label in "label".`,
		},
		{
			entity.TaskSegmentationMask,
			`Give the segmentation masks for all objects. Output a JSON list of segmentation masks where each entry contains the 2D bounding box in the key "box_2d", the segmentation mask in key "mask", and the text label in the key "label". Use descriptive labels.`,
		},
		{
			entity.TaskPoint,
			`Point to the items with no more than 10 items. The answer should follow the json format: [{"point": <point>, "label": <label1>}, ...]. The points are in [y, x] format normalized to 0-1000.`,
		},
		{
			entity.TaskBoundingBox3D,
			`Output in json. Detect the 3D bounding boxes of items, output no more than 10 items. Return a list where each entry contains the object name in "label" and its 3D bounding box in "box_3d".`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.task.Slug(), func(t *testing.T) {
			assert.Equal(t, tt.want, BuildPrompt(tt.task, tpl))
		})
	}
}

func TestBuildPrompt_BoundingBox2DOverrides(t *testing.T) {
	tpl := entity.DefaultPromptTemplate()
	tpl.Target = "the red mugs"
	tpl.LabelInstruction = "the mug colour"

	assert.Equal(t,
		`Detect the red mugs, with no more than 20 items. Output a json list where each entry contains the 2D bounding box in "box_2d" and the mug colour in "label".`,
		BuildPrompt(entity.TaskBoundingBox2D, tpl))
}

func TestBuildPrompt_SegmentationLanguageRewrite(t *testing.T) {
	tpl := entity.DefaultPromptTemplate()
	tpl.Language = "Deutsch"

	prompt := BuildPrompt(entity.TaskSegmentationMask, tpl)

	assert.NotContains(t, prompt, englishLabelSuffix)
	assert.GreaterOrEqual(t, strings.Count(prompt, "Deutsch"), 2)
	assert.True(t, strings.HasPrefix(prompt, "Give the segmentation masks for all objects."))
	assert.True(t, strings.HasSuffix(prompt, "DO NOT USE ENGLISH FOR LABELS."))
}

func TestBuildPrompt_SegmentationEnglishIsUnchanged(t *testing.T) {
	for _, lang := range []string{"", "English", "english", "  ENGLISH "} {
		tpl := entity.DefaultPromptTemplate()
		tpl.Language = lang

		assert.Contains(t, BuildPrompt(entity.TaskSegmentationMask, tpl), englishLabelSuffix, "language %q", lang)
	}
}

func TestBuildPrompt_SubjectEdit(t *testing.T) {
	tpl := entity.DefaultPromptTemplate()
	tpl.SetSubject(entity.TaskPoint, "door handles")

	assert.True(t, strings.HasPrefix(BuildPrompt(entity.TaskPoint, tpl), "Point to the door handles with no more"))
}

func TestBuildPrompt_ShortPartsJoinedWithSpaces(t *testing.T) {
	tpl := entity.DefaultPromptTemplate()
	tpl.Parts[entity.TaskBoundingBox3D] = []string{"Find", "chairs"}

	assert.Equal(t, "Find chairs", BuildPrompt(entity.TaskBoundingBox3D, tpl))
}

func TestBuildPrompt_CustomOverrideIsVerbatim(t *testing.T) {
	tpl := entity.DefaultPromptTemplate()
	tpl.Custom[entity.TaskPoint] = "  just point at the cat  "

	assert.Equal(t, "  just point at the cat  ", BuildPrompt(entity.TaskPoint, tpl))
	assert.NotEqual(t, tpl.Custom[entity.TaskPoint], BuildPrompt(entity.TaskBoundingBox2D, tpl))
}

func TestEnrichWithCatalog(t *testing.T) {
	cat := catalog.Default()
	tpl := entity.DefaultPromptTemplate()

	assert.Equal(t, "base", EnrichWithCatalog("base", tpl, cat))
	assert.Equal(t, "base", EnrichWithCatalog("base", tpl, nil))

	tpl.CatalogCategory = "pastry"
	enriched := EnrichWithCatalog("base", tpl, cat)

	assert.True(t, strings.HasPrefix(enriched, "base Known products: "))
	assert.Contains(t, enriched, "Croissant (Buttery flaky croissant)")
	assert.NotContains(t, enriched, "Latte")
	assert.True(t, strings.HasSuffix(enriched, "Use these product names as labels when they match."))
}
