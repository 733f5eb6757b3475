package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/asimorth/competitor-lens/internal/resilience"
)

// Prediction is the vision classifier's verdict for one screenshot.
type Prediction struct {
	FeatureName      string   `json:"feature"`
	Confidence       float64  `json:"confidence"`
	DetectedElements []string `json:"detected_elements"`
	IsOnboarding     bool     `json:"is_onboarding"`
	Reasoning        string   `json:"reasoning"`
}

// Classifier sends screenshot images to the Anthropic vision API and
// parses feature predictions. Calls run through a circuit breaker so a
// degraded API does not stall batch arbitration.
type Classifier struct {
	client    sdk.Client
	model     string
	maxTokens int64
	breaker   *resilience.Breaker
}

// NewClassifier creates a vision classifier. Returns nil for an empty
// API key; callers treat a nil classifier as "signal unavailable".
func NewClassifier(apiKey, model string, maxTokens int64) *Classifier {
	if apiKey == "" {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &Classifier{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
		breaker:   resilience.NewBreaker(resilience.BreakerConfig{}),
	}
}

const classifyPrompt = `You are cataloging features of cryptocurrency exchange apps from screenshots.

Identify which ONE feature from this list the screenshot shows:
%s

Extracted text from the screenshot:
%s

Respond with only a JSON object:
{"feature": "<name from the list, or empty if none match>", "confidence": <0.0-1.0>, "detected_elements": ["<ui element>", ...], "is_onboarding": <true|false>, "reasoning": "<one sentence>"}`

// Classify predicts the feature shown in the screenshot at imagePath.
// extractedText may be empty; featureNames is the candidate vocabulary.
func (c *Classifier) Classify(ctx context.Context, imagePath, extractedText string, featureNames []string) (*Prediction, error) {
	return resilience.Guard(ctx, c.breaker, func(ctx context.Context) (*Prediction, error) {
		return c.classify(ctx, imagePath, extractedText, featureNames)
	})
}

func (c *Classifier) classify(ctx context.Context, imagePath, extractedText string, featureNames []string) (*Prediction, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read image %s", imagePath)
	}

	mediaType := mime.TypeByExtension(filepath.Ext(imagePath))
	if mediaType == "" {
		mediaType = "image/png"
	}
	if extractedText == "" {
		extractedText = "(none)"
	}
	prompt := fmt.Sprintf(classifyPrompt, strings.Join(featureNames, "\n"), extractedText)

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(data)),
				sdk.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: vision classify")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	pred, err := parsePrediction(text)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("vision classification",
		zap.String("path", imagePath),
		zap.String("feature", pred.FeatureName),
		zap.Float64("confidence", pred.Confidence))
	return pred, nil
}

// parsePrediction extracts the JSON object from the model response,
// tolerating surrounding prose.
func parsePrediction(text string) (*Prediction, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("extract: no JSON object in vision response: %q", text)
	}

	var pred Prediction
	if err := json.Unmarshal([]byte(text[start:end+1]), &pred); err != nil {
		return nil, eris.Wrap(err, "extract: unmarshal vision response")
	}
	if pred.Confidence < 0 {
		pred.Confidence = 0
	}
	if pred.Confidence > 1 {
		pred.Confidence = 1
	}
	return &pred, nil
}
