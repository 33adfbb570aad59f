package gemini

import (
	"context"
	"errors"
	"os"
	"strings"

	aistudio "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/genai"
)

var (
	ErrEmptyResponse = errors.New("no response from Gemini API")
	ErrMissingAPIKey = errors.New("gemini API key is required")
)

const (
	DefaultModelName   = "gemini-2.5-flash"
	Default3DModelName = "gemini-2.0-flash"
)

type GenerateRequest struct {
	Model       string
	Image       []byte
	MIMEType    string
	Prompt      string
	Temperature float32
	// ThinkingBudget is omitted from the request when nil.
	ThinkingBudget *int32
}

type Models struct {
	Default   string
	Spatial3D string
}

type IGemini interface {
	GenerateContent(ctx context.Context, req GenerateRequest) (string, error)
	CountTokens(ctx context.Context, model string, prompt string) (int32, error)
	Models() Models
	Close()
}

type geminiClient struct {
	models  Models
	client  *genai.Client
	// counter only counts prompt tokens; generation needs genai's ThinkingConfig.
	counter *aistudio.Client
}

func NewGeminiClient() (IGemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	models := Models{
		Default:   os.Getenv("GEMINI_MODEL_NAME"),
		Spatial3D: os.Getenv("GEMINI_3D_MODEL_NAME"),
	}
	if models.Default == "" {
		models.Default = DefaultModelName
	}
	if models.Spatial3D == "" {
		models.Spatial3D = Default3DModelName
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: os.Getenv("GEMINI_BASE_URL")},
	})
	if err != nil {
		return nil, err
	}

	counter, err := aistudio.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &geminiClient{
		models:  models,
		client:  client,
		counter: counter,
	}, nil
}

func (g *geminiClient) Models() Models {
	return g.models
}

func (g *geminiClient) GenerateContent(ctx context.Context, req GenerateRequest) (string, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: req.MIMEType, Data: req.Image}},
			{Text: req.Prompt},
		},
	}}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.ThinkingBudget != nil {
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: req.ThinkingBudget}
	}

	res, err := g.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return "", err
	}

	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}

	return sb.String(), nil
}

func (g *geminiClient) CountTokens(ctx context.Context, model string, prompt string) (int32, error) {
	res, err := g.counter.GenerativeModel(model).CountTokens(ctx, aistudio.Text(prompt))
	if err != nil {
		return 0, err
	}
	return res.TotalTokens, nil
}

func (g *geminiClient) Close() {
	if g.counter != nil {
		g.counter.Close()
	}
}
