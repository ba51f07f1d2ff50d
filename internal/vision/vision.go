// Package vision extracts text and a short description from an image
// through a multimodal model.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-1.5-flash"

// Prompt asks for the visible text and a one-line description as JSON.
const Prompt = `请分析这张图片，用中文简体返回结果。提取所有文字内容，并用简洁的语言描述图片内容。` +
	`描述格式为：[角色类型]正在[做什么事情]，表情/神态：[表情神态描述]。` +
	`返回格式为JSON：{"text": "图片中的所有文字内容", "description": "角色类型、行为和表情神态的简洁描述"}`

// ErrAPIKeyMissing is returned when no API key is configured.
var ErrAPIKeyMissing = errors.New("vision api key is not set")

// Analysis is the derived text for one image.
type Analysis struct {
	ExtractedText string
	Description   string
}

// Analyzer turns image bytes into an Analysis.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte, mimeType string) (Analysis, error)
}

// Gemini analyzes images with Google Gemini.
type Gemini struct {
	apiKey string
	model  string
}

var _ Analyzer = (*Gemini)(nil)

// NewGemini returns a Gemini analyzer for cfg.
func NewGemini(cfg types.VisionConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{apiKey: cfg.APIKey, model: model}, nil
}

// Analyze sends the image with Prompt and parses the reply.
func (g *Gemini) Analyze(ctx context.Context, data []byte, mimeType string) (Analysis, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.ImageData(imageFormat(mimeType), data), genai.Text(Prompt))
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return Analysis{}, fmt.Errorf("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Analysis{}, fmt.Errorf("empty content returned from Gemini")
	}
	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return Analysis{}, fmt.Errorf("unexpected response format from Gemini")
	}
	return Parse(string(txt)), nil
}

// imageFormat maps a MIME type such as image/png to the bare format name
// the API expects.
func imageFormat(mimeType string) string {
	if _, sub, ok := strings.Cut(mimeType, "/"); ok {
		return sub
	}
	if mimeType == "" {
		return "jpeg"
	}
	return mimeType
}

var (
	fencePattern = regexp.MustCompile("```(?:json)?\\n?")
	textPattern  = regexp.MustCompile(`(?i)(?:文字|文本|text)[：:]?\s*["']?([^"'\n]+)["']?`)
	descPattern  = regexp.MustCompile(`(?i)(?:描述|description)[：:]?\s*["']?([^"'\n]+)["']?`)
)

// Parse reads a model reply. JSON replies, fenced or not, are decoded
// directly; anything else is scraped for labelled lines, and the whole
// reply becomes the description when no label is found.
func Parse(reply string) Analysis {
	clean := strings.TrimSpace(fencePattern.ReplaceAllString(reply, ""))
	var out struct {
		Text        string `json:"text"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err == nil {
		return Analysis{
			ExtractedText: strings.TrimSpace(out.Text),
			Description:   strings.TrimSpace(out.Description),
		}
	}

	a := Analysis{Description: strings.TrimSpace(reply)}
	if m := textPattern.FindStringSubmatch(reply); m != nil {
		a.ExtractedText = strings.TrimSpace(m[1])
	}
	if m := descPattern.FindStringSubmatch(reply); m != nil {
		a.Description = strings.TrimSpace(m[1])
	}
	return a
}
