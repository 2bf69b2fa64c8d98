package formatters

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

// Defaults for the OpenAI-compatible endpoint, shared with the config layer.
const (
	DefaultLLMBaseURL = "https://api.groq.com/openai/v1"
	DefaultLLMModel   = "llama-3.3-70b-versatile"
)

const defaultLLMTimeout = 30 * time.Second

// chatClient is the subset of the go-openai client used here.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLM asks an OpenAI-compatible chat endpoint for the post text.
type LLM struct {
	client   chatClient
	model    string
	maxRunes int
	timeout  time.Duration
}

// NewLLM builds an LLM formatter. An API key is required.
func NewLLM(opts Options) (*LLM, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.Mark(fmt.Errorf("llm formatter requires an api key"), errors.ErrConfig)
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = DefaultLLMBaseURL
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	l := &LLM{
		client:   openai.NewClientWithConfig(cfg),
		model:    opts.Model,
		maxRunes: opts.MaxRunes,
		timeout:  opts.Timeout,
	}
	if l.model == "" {
		l.model = DefaultLLMModel
	}
	if l.maxRunes <= 0 {
		l.maxRunes = DefaultMaxRunes
	}
	if l.timeout <= 0 {
		l.timeout = defaultLLMTimeout
	}
	return l, nil
}

// Format implements Formatter.
func (l *LLM) Format(ctx context.Context, item domain.CandidateItem) (domain.Payload, error) {
	title := strings.TrimSpace(item.DisplayTitle)
	if title == "" {
		return domain.Payload{}, formatErr("item %s has no title", item.NaturalKey)
	}
	media, err := itemMedia(item)
	if err != nil {
		return domain.Payload{}, err
	}
	link := itemLink(item)

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.model,
		Temperature: 0.8,
		MaxTokens:   200,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(item, l.maxRunes-utf8.RuneCountInString(link)-4)},
		},
	})
	if err != nil {
		return domain.Payload{}, errors.Mark(fmt.Errorf("llm completion for %s: %w", item.NaturalKey, err), errors.ErrFormat)
	}
	if len(resp.Choices) == 0 {
		return domain.Payload{}, formatErr("llm returned no choices for %s", item.NaturalKey)
	}

	tweet, tags, err := parseCompletion(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.Payload{}, errors.Mark(fmt.Errorf("parse completion for %s: %w", item.NaturalKey, err), errors.ErrFormat)
	}

	text := tweet
	if tags != "" {
		text += "\n\n" + tags
	}
	text += "\n\n" + link
	if n := utf8.RuneCountInString(text); n > l.maxRunes {
		return domain.Payload{}, formatErr("llm post for %s is %d runes, limit %d", item.NaturalKey, n, l.maxRunes)
	}
	return domain.Payload{Item: item, Text: text, MediaPath: media}, nil
}

func buildPrompt(item domain.CandidateItem, budget int) string {
	if budget < 80 {
		budget = 80
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Write an engaging social media post about: %s\n", item.DisplayTitle)
	if c := item.Attribute(domain.AttrCompany); c != "" {
		fmt.Fprintf(&b, "Company: %s\n", c)
	}
	fmt.Fprintf(&b, "Keep the post and hashtags together under %d characters and suggest 3 relevant hashtags.\n", budget)
	b.WriteString("Do not include any links.\n")
	b.WriteString("Format your response exactly as:\nTWEET: [the post content]\nHASHTAGS: [hashtag1] [hashtag2] [hashtag3]\n")
	return b.String()
}

// parseCompletion extracts the TWEET and HASHTAGS lines.
func parseCompletion(content string) (tweet, tags string, err error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	inTweet := false
	var body []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upper, "TWEET:"):
			inTweet = true
			body = append(body, strings.TrimSpace(trimmed[len("TWEET:"):]))
		case strings.HasPrefix(upper, "HASHTAGS:"):
			inTweet = false
			tags = strings.Join(strings.Fields(trimmed[len("HASHTAGS:"):]), " ")
		case inTweet && trimmed != "":
			body = append(body, trimmed)
		}
	}
	tweet = strings.TrimSpace(strings.Join(body, "\n"))
	if tweet == "" {
		return "", "", fmt.Errorf("no TWEET: section in completion")
	}
	return tweet, tags, nil
}
