package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ethosradar/backend/internal/config"
	"github.com/ethosradar/backend/internal/models"
	"github.com/ethosradar/backend/internal/r4r"
	"github.com/ethosradar/backend/pkg/logger"
	"github.com/kaptinlin/jsonrepair"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const contentPrompt = `You compare two reviews exchanged between the same two people on a reputation network and judge whether they look like a "review for review" trade: templated, low effort or copied text written mainly to be reciprocated.

Review A: %q
Review B: %q

Reply with JSON only, no prose:
{"suspiciousScore": <0-100>, "reasoning": "<one sentence>", "patterns": ["<short tag>", ...]}`

const scorerTimeout = 20 * time.Second

type llmReply struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

type userkeyCtxKey struct{}

// WithUsageUserkey tags ctx so scorer calls are attributed to userkey in
// the usage log.
func WithUsageUserkey(ctx context.Context, userkey string) context.Context {
	return context.WithValue(ctx, userkeyCtxKey{}, userkey)
}

func usageUserkey(ctx context.Context) string {
	s, _ := ctx.Value(userkeyCtxKey{}).(string)
	return s
}

// LLMContentScorer asks the configured LLM how templated two review
// comments look. It implements r4r.ContentScorer.
type LLMContentScorer struct {
	cfg   *config.LLMConfig
	usage *AIUsageService
	call  func(ctx context.Context, prompt string) (*llmReply, error)
}

func NewContentScorer(cfg *config.LLMConfig, usage *AIUsageService) *LLMContentScorer {
	s := &LLMContentScorer{cfg: cfg, usage: usage}
	s.call = s.callLLM
	return s
}

func (s *LLMContentScorer) ScoreContent(ctx context.Context, comment1, comment2 string) (*r4r.ContentAssessment, error) {
	ctx, cancel := context.WithTimeout(ctx, scorerTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.call(ctx, fmt.Sprintf(contentPrompt, comment1, comment2))

	usage := &models.AIUsageLog{
		Userkey:   usageUserkey(ctx),
		Provider:  s.cfg.Provider,
		Model:     s.cfg.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	defer s.usage.Record(usage)

	if err != nil {
		usage.ErrorMessage = truncate(err.Error(), 500)
		return nil, err
	}
	usage.PromptTokens = reply.PromptTokens
	usage.CompletionTokens = reply.CompletionTokens
	usage.TotalTokens = reply.PromptTokens + reply.CompletionTokens

	assessment, repaired, err := parseAssessment(reply.Content)
	usage.Repaired = repaired
	if err != nil {
		usage.ErrorMessage = truncate(err.Error(), 500)
		return nil, err
	}
	usage.Success = true
	return assessment, nil
}

// parseAssessment pulls the JSON object out of an LLM reply, repairing it
// when the model produced slightly broken JSON.
func parseAssessment(content string) (*r4r.ContentAssessment, bool, error) {
	raw := extractJSONObject(content)
	if raw == "" {
		return nil, false, errors.New("no JSON object in LLM reply")
	}

	var a r4r.ContentAssessment
	if err := json.Unmarshal([]byte(raw), &a); err == nil {
		return &a, false, nil
	}

	fixed, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, true, fmt.Errorf("repair LLM reply: %w", err)
	}
	if err := json.Unmarshal([]byte(fixed), &a); err != nil {
		return nil, true, fmt.Errorf("decode repaired LLM reply: %w", err)
	}
	return &a, true, nil
}

func extractJSONObject(content string) string {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		// truncated reply; let the repair step close it
		return s[start:]
	}
	return s[start : end+1]
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (s *LLMContentScorer) callLLM(ctx context.Context, prompt string) (*llmReply, error) {
	logger.Debug().Str("provider", s.cfg.Provider).Str("model", s.cfg.Model).Msg("[ContentScorer] Calling LLM")

	switch s.cfg.Provider {
	case "anthropic":
		return s.callAnthropic(ctx, prompt)
	case "ollama":
		return s.callOllama(ctx, prompt)
	case "gemini":
		return s.callGemini(ctx, prompt)
	default:
		// openai, groq and other OpenAI-compatible services
		return s.callOpenAI(ctx, prompt)
	}
}

func (s *LLMContentScorer) callOpenAI(ctx context.Context, prompt string) (*llmReply, error) {
	clientConfig := openai.DefaultConfig(s.cfg.APIKey)
	if s.cfg.BaseURL != "" {
		clientConfig.BaseURL = s.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", s.cfg.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", s.cfg.Provider)
	}

	return &llmReply{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (s *LLMContentScorer) callAnthropic(ctx context.Context, prompt string) (*llmReply, error) {
	opts := []option.RequestOption{option.WithAPIKey(s.cfg.APIKey)}
	if s.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := s.cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return &llmReply{
		Content:          content.String(),
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func (s *LLMContentScorer) callOllama(ctx context.Context, prompt string) (*llmReply, error) {
	baseURL := s.cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := s.cfg.Model
	if model == "" {
		model = "llama3"
	}

	reply := &llmReply{}
	var content strings.Builder
	stream := false
	err = client.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Format:   json.RawMessage(`"json"`),
		Stream:   &stream,
		Options:  map[string]interface{}{"temperature": 0.1},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			reply.PromptTokens = resp.PromptEvalCount
			reply.CompletionTokens = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Ollama API error: %w", err)
	}
	reply.Content = content.String()
	return reply, nil
}

func (s *LLMContentScorer) callGemini(ctx context.Context, prompt string) (*llmReply, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: s.cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("Gemini client error: %w", err)
	}

	model := s.cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	reply := &llmReply{Content: resp.Text()}
	if resp.UsageMetadata != nil {
		reply.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		reply.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return reply, nil
}
