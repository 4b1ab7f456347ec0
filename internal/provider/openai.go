package provider

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/errors"
)

// OpenAI defaults.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultOpenAIVoice = "alloy"
)

// OpenAIConfig configures the OpenAI bindings.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	JudgeModel string
	Voice      string
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
	// MaxRetries is the SDK retry budget; collaborator timeouts still apply.
	MaxRetries int
}

func (cfg OpenAIConfig) clientOptions() []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return opts
}

// OpenAIClient generates verses and verdicts with the Chat Completions API.
type OpenAIClient struct {
	client     openai.Client
	model      string
	judgeModel string
}

// NewOpenAIClient creates a chat binding. The API key is required.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.Wrap(errors.ErrNotConfigured, "openai API key is not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.JudgeModel == "" {
		cfg.JudgeModel = cfg.Model
	}
	return &OpenAIClient{
		client:     openai.NewClient(cfg.clientOptions()...),
		model:      cfg.Model,
		judgeModel: cfg.JudgeModel,
	}, nil
}

// Name identifies the binding in health output and logs.
func (c *OpenAIClient) Name() string { return "openai" }

// Generate implements the generation collaborator.
func (c *OpenAIClient) Generate(ctx context.Context, p battle.Prompt) (string, error) {
	user, err := TurnPrompt(p)
	if err != nil {
		return "", err
	}
	model := c.model
	if p.Speaker.Profile.Model != "" {
		model = p.Speaker.Profile.Model
	}
	temperature := 0.9
	if p.Speaker.Profile.Temperature > 0 {
		temperature = p.Speaker.Profile.Temperature
	}

	text, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(p)),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(verseMaxTokens),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", errors.NewCollaboratorError("generate verse", err).WithProvider(c.Name())
	}
	verse := cleanVerse(text)
	if verse == "" {
		return "", errors.NewCollaboratorError("generate verse", errors.ErrEmptyOutput).WithProvider(c.Name())
	}
	return verse, nil
}

// Adjudicate implements the adjudication collaborator.
func (c *OpenAIClient) Adjudicate(ctx context.Context, t battle.Transcript) (string, error) {
	text, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.judgeModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(judgeSystemPrompt),
			openai.UserMessage(JudgePrompt(t)),
		},
		MaxTokens:   openai.Int(verdictMaxTokens),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", errors.NewCollaboratorError("adjudicate", err).WithProvider(c.Name())
	}
	return text, nil
}

func (c *OpenAIClient) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.ErrEmptyOutput
	}
	return resp.Choices[0].Message.Content, nil
}

// ArtifactStore persists synthesized audio and returns a reference to it.
type ArtifactStore interface {
	Save(ctx context.Context, key string, data []byte) (string, error)
}

// OpenAISynthesizer renders verses to mp3 with the Speech API and stores
// them in an ArtifactStore.
type OpenAISynthesizer struct {
	client openai.Client
	voice  string
	store  ArtifactStore
}

// NewOpenAISynthesizer creates a speech binding. The API key is required.
func NewOpenAISynthesizer(cfg OpenAIConfig, store ArtifactStore) (*OpenAISynthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.Wrap(errors.ErrNotConfigured, "openai API key is not set")
	}
	if store == nil {
		return nil, errors.Wrap(errors.ErrNotConfigured, "audio artifact store is required")
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultOpenAIVoice
	}
	return &OpenAISynthesizer{
		client: openai.NewClient(cfg.clientOptions()...),
		voice:  cfg.Voice,
		store:  store,
	}, nil
}

// Name identifies the binding in health output and logs.
func (s *OpenAISynthesizer) Name() string { return "openai" }

// AudioKey returns the artifact key for a turn's audio.
func AudioKey(sessionID string, turnIndex int) string {
	return fmt.Sprintf("%s/turn-%02d.mp3", sessionID, turnIndex)
}

// Synthesize implements the audio collaborator.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, sessionID string, turnIndex int, text string) (string, error) {
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModelTTS1,
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return "", errors.NewCollaboratorError("synthesize audio", err).WithProvider(s.Name())
	}
	defer func() { _ = resp.Body.Close() }()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewCollaboratorError("read audio", err).WithProvider(s.Name())
	}
	if len(audio) == 0 {
		return "", errors.NewCollaboratorError("synthesize audio", errors.ErrEmptyOutput).WithProvider(s.Name())
	}

	ref, err := s.store.Save(ctx, AudioKey(sessionID, turnIndex), audio)
	if err != nil {
		return "", errors.Wrap(err, "store audio")
	}
	return ref, nil
}
