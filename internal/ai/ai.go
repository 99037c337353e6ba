/*
Package ai asks Gemini for a short digest of matched announcements: what is being
offered and any deadlines a reader should not miss.
*/
package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/shanehull/annwatch/internal/types"
)

type Highlight struct {
	Title    string `json:"title"`
	Position string `json:"position"`
	Deadline string `json:"deadline"`
}

type Digest struct {
	Summary    []string    `json:"summary"`
	Highlights []Highlight `json:"highlights"`
}

// Client wraps a Gemini client bound to one model.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Summarize returns a digest of matches. It returns nil without calling the API
// when there is nothing to summarize.
func (c *Client) Summarize(ctx context.Context, matches []types.Match) (*Digest, error) {
	if len(matches) == 0 {
		return nil, nil
	}

	contents := []*genai.Content{
		{
			Parts: []*genai.Part{{Text: buildUserPrompt(matches)}},
			Role:  "user",
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   getResponseSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	return parseDigest(resp.Text())
}

func parseDigest(respText string) (*Digest, error) {
	var digest Digest
	if err := json.Unmarshal([]byte(respText), &digest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gemini JSON response: %w. Raw text: %s", err, respText)
	}
	return &digest, nil
}

func getResponseSchema() *genai.Schema {
	highlightSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":    {Type: genai.TypeString, Description: "The announcement title exactly as given."},
			"position": {Type: genai.TypeString, Description: "Position, programme or opportunity being announced."},
			"deadline": {Type: genai.TypeString, Description: "Application deadline if stated in the title, otherwise empty."},
		},
		Required: []string{"title", "position"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "One to three short sentences summarizing the announcements.",
			},
			"highlights": {
				Type:        genai.TypeArray,
				Items:       highlightSchema,
				Description: "One entry per announcement.",
			},
		},
		Required: []string{"summary", "highlights"},
	}
}
