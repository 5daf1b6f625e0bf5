package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"datachat/cache"
	"datachat/models"
	"datachat/validation"
)

// imageDataURI turns raw base64 or a data URI into a data URI carrying the
// sniffed image mime type. Payloads that are not an image are rejected with
// validation.ErrInvalidImage.
func imageDataURI(payload string) (string, error) {
	raw, mime, err := validation.DecodeImage(payload)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// AnalyzeImage sends one image to the vision model. With an empty prompt the
// model is asked for question-answer pairs and the reply must be valid JSON;
// otherwise the prompt is forwarded and the reply returned as text.
func (c *Client) AnalyzeImage(ctx context.Context, apiKey, prompt, imageBase64 string) (string, error) {
	key, err := c.resolveKey(apiKey)
	if err != nil {
		return "", err
	}
	uri, err := imageDataURI(imageBase64)
	if err != nil {
		return "", err
	}

	qaMode := strings.TrimSpace(prompt) == ""
	text := prompt
	if qaMode {
		text = ImageQAPrompt
	}

	cacheKey := cache.Key("vision", c.visionModel, text, uri)
	if c.cache != nil {
		if v, ok := c.cache.GetString(cacheKey); ok {
			return v, nil
		}
	}

	messages := []ChatMessage{{
		Role:    "user",
		Content: []ContentPart{TextPart(text), ImagePart(uri)},
	}}

	var result string
	err = c.withRetry(ctx, "analyze_image", func(attempt int) error {
		reply, err := c.chat(ctx, key, c.visionModel, messages)
		if err != nil {
			return err
		}
		if !qaMode {
			result = strings.TrimSpace(reply)
			return nil
		}
		normalized, err := NormalizeJSON(reply)
		if err != nil {
			return err
		}
		result = normalized
		return nil
	})
	if err != nil {
		if qaMode && !IsPermanent(err) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %v", ErrQAPairsExhausted, err)
		}
		return "", err
	}

	if c.cache != nil {
		c.cache.SetDefault(cacheKey, result)
	}
	return result, nil
}

// GenerateChartCode asks the chat model for one matplotlib script. The raw
// reply is returned; callers extract the code block.
func (c *Client) GenerateChartCode(ctx context.Context, apiKey string, spec ChartSpec) (string, error) {
	key, err := c.resolveKey(apiKey)
	if err != nil {
		return "", err
	}
	messages := []ChatMessage{{Role: "user", Content: BuildChartPrompt(spec)}}
	reply, err := c.chat(ctx, key, c.chatModel, messages)
	if err != nil {
		return "", fmt.Errorf("generate chart code: %w", err)
	}
	return reply, nil
}

// GenerateQAPairs asks for n question-answer pairs about a table sample.
func (c *Client) GenerateQAPairs(ctx context.Context, apiKey, tableMarkdown string, n int) ([]models.QAPair, error) {
	key, err := c.resolveKey(apiKey)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 5
	}
	messages := []ChatMessage{{Role: "user", Content: BuildTableQAPrompt(tableMarkdown, n)}}

	var pairs []models.QAPair
	err = c.withRetry(ctx, "qa_pairs", func(attempt int) error {
		reply, err := c.chat(ctx, key, c.chatModel, messages)
		if err != nil {
			return err
		}
		pairs, err = ParseQAPairs(reply)
		return err
	})
	if err != nil {
		if !IsPermanent(err) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %v", ErrQAPairsExhausted, err)
		}
		return nil, err
	}
	return pairs, nil
}

// GenerateBatchChartCode asks for a script that renders several charts from a
// CSV file on disk and returns the extracted Python code.
func (c *Client) GenerateBatchChartCode(ctx context.Context, apiKey string, spec BatchChartSpec) (string, error) {
	key, err := c.resolveKey(apiKey)
	if err != nil {
		return "", err
	}
	messages := []ChatMessage{{Role: "user", Content: BuildBatchChartPrompt(spec)}}
	reply, err := c.chat(ctx, key, c.chatModel, messages)
	if err != nil {
		return "", fmt.Errorf("generate batch chart code: %w", err)
	}
	return CleanCodeBlock(ExtractPythonCode(reply)), nil
}

// EvaluateChartImage has the vision model review a rendered chart against the
// question-answer pairs derived from the same data.
func (c *Client) EvaluateChartImage(ctx context.Context, apiKey, chartImage, tableMarkdown string, pairs []models.QAPair) (string, error) {
	key, err := c.resolveKey(apiKey)
	if err != nil {
		return "", err
	}
	uri, err := imageDataURIFrom(chartImage)
	if err != nil {
		return "", err
	}
	messages := []ChatMessage{{
		Role: "user",
		Content: []ContentPart{
			TextPart(BuildChartReviewPrompt(tableMarkdown, pairs)),
			ImagePart(uri),
		},
	}}

	var review string
	err = c.withRetry(ctx, "review_chart", func(attempt int) error {
		reply, err := c.chat(ctx, key, c.visionModel, messages)
		if err != nil {
			return err
		}
		review = strings.TrimSpace(reply)
		return nil
	})
	return review, err
}

// imageDataURIFrom keeps a well-formed data URI untouched.
func imageDataURIFrom(s string) (string, error) {
	if strings.HasPrefix(s, "data:image/") && strings.Contains(s, ";base64,") {
		return s, nil
	}
	return imageDataURI(s)
}
