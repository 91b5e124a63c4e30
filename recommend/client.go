// Package recommend talks to the external recommendation and chat service and
// answers with built-in content whenever that service is unavailable.
package recommend

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/neurowell/neurowell/config"
	"github.com/neurowell/neurowell/models"
	"github.com/neurowell/neurowell/utils"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	activitiesSchema  = mustSchema("schemas/activities.schema.json")
	counsellorsSchema = mustSchema("schemas/counsellors.schema.json")
	chatSchema        = mustSchema("schemas/chat.schema.json")
)

const maxResponseBytes = 1 << 20

var errDisabled = errors.New("recommendation service not configured")

func mustSchema(name string) *gojsonschema.Schema {
	b, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
	if err != nil {
		panic(fmt.Sprintf("compile %s: %v", name, err))
	}
	return s
}

// Client calls the recommendation service. It never returns an error to callers:
// every failure is logged and answered with fallback content.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

// NewClient builds a client from configuration. An empty base URL disables remote calls.
func NewClient(cfg config.AppConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.AITimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.AIBaseURL, "/"),
		apiKey:  cfg.AIAPIKey,
		http:    &http.Client{Timeout: timeout},
		log:     logger.Named("recommend"),
	}
}

// Activities returns personalised activities.
func (c *Client) Activities(ctx context.Context, in Input) Activities {
	var out Activities
	err := c.post(ctx, "/api/activities", recommendRequest{
		UserProfile:  in.profile(),
		WellnessData: in.wellness(),
	}, activitiesSchema, &out)
	if err != nil || len(out.Activities) == 0 {
		c.fellBack("activities", err)
		return Activities{Activities: FallbackActivities(in.Averages), Source: SourceFallback}
	}
	out.Source = SourceRemote
	return out
}

// Counsellors ranks the directory for the user.
func (c *Client) Counsellors(ctx context.Context, in Input, directory []models.Counsellor) CounsellorRecommendations {
	var out CounsellorRecommendations
	err := c.post(ctx, "/api/counsellor-recommendations", recommendRequest{
		UserProfile:  in.profile(),
		WellnessData: in.wellness(),
		Counsellors:  directory,
	}, counsellorsSchema, &out)
	if err != nil {
		c.fellBack("counsellors", err)
		return FallbackCounsellors(in, directory)
	}
	if out.Recommendations == nil {
		out.Recommendations = []CounsellorMatch{}
	}
	out.Source = SourceRemote
	return out
}

// Chat produces the companion's next message.
func (c *Client) Chat(ctx context.Context, in ChatInput) ChatReply {
	if in.Mode == "" {
		in.Mode = ModeChat
	}
	history := in.History
	if history == nil {
		history = []ChatMessage{}
	}
	var out struct {
		BotResponse string `json:"bot_response"`
	}
	err := c.post(ctx, "/api/chat", chatRequest{
		Mode:    in.Mode,
		Message: in.Message,
		TestData: map[string]any{
			"user_profile": in.profile(),
			"mental_health": map[string]float64{
				"mood_today":   in.Averages.Mood,
				"stress":       in.Averages.Stress,
				"sleep_hours":  in.Averages.Sleep,
				"productivity": in.Averages.Productivity,
			},
		},
		ConversationHistory: history,
	}, chatSchema, &out)
	if err != nil {
		c.fellBack("chat", err)
		return ChatReply{Reply: FallbackChat(in), Source: SourceFallback}
	}
	return ChatReply{Reply: out.BotResponse, Source: SourceRemote}
}

func (c *Client) fellBack(endpoint string, err error) {
	reason := "empty"
	switch {
	case errors.Is(err, errDisabled):
		reason = "disabled"
	case err != nil:
		reason = "error"
		c.log.Warn("recommendation service call failed, using fallback",
			zap.String("endpoint", endpoint), zap.Error(err))
	}
	utils.AIFallbacks.WithLabelValues(endpoint, reason).Inc()
}

// post sends body as JSON, validates the response against schema and decodes it into out.
func (c *Client) post(ctx context.Context, path string, body any, schema *gojsonschema.Schema, out any) error {
	if c.baseURL == "" {
		return errDisabled
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate response: %w", err)
	}
	if !res.Valid() {
		details := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			details = append(details, e.String())
		}
		return fmt.Errorf("response does not match schema: %s", strings.Join(details, "; "))
	}
	return json.Unmarshal(raw, out)
}
