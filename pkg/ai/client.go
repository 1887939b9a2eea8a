package ai

import (
	"context"
	"log"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/datx24/storefront/pkg/global"
)

const defaultDeployment = "gpt-35-turbo"

// Service wraps an Azure OpenAI compatible chat endpoint. A Service without
// credentials is disabled and every report falls back to raw data.
type Service struct {
	client     *openai.Client
	deployment string
}

// InitializeAIService builds the service from AZURE_OPENAI_* environment variables
func InitializeAIService() *Service {
	endpoint := global.GetEnvOrDefault("AZURE_OPENAI_ENDPOINT", "")
	apiKey := global.GetEnvOrDefault("AZURE_OPENAI_API_KEY", "")

	if endpoint == "" || apiKey == "" {
		log.Println("AI service disabled - Azure OpenAI credentials not provided")
		log.Println("Required: AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY environment variables")
		return &Service{}
	}

	svc := NewService(endpoint, apiKey, global.GetEnvOrDefault("AZURE_OPENAI_DEPLOYMENT_NAME", defaultDeployment))
	log.Println("AI service initialized with Azure OpenAI")
	return svc
}

func NewService(endpoint, apiKey, deployment string) *Service {
	clientValue := openai.NewClient(
		option.WithBaseURL(endpoint),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
	)
	if deployment == "" {
		deployment = defaultDeployment
	}
	return &Service{client: &clientValue, deployment: deployment}
}

// IsEnabled returns whether the AI service is properly initialized
func (s *Service) IsEnabled() bool {
	return s != nil && s.client != nil
}

func (s *Service) generateCompletion(ctx context.Context, systemMessage, userMessage string) (string, error) {
	if !s.IsEnabled() {
		return "", &AIError{Message: "AI service is not enabled"}
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(systemMessage),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(userMessage),
					},
				},
			},
		},
		MaxTokens:   openai.Int(1000),
		Temperature: openai.Float(0.4),
	})

	if err != nil {
		log.Printf("AI API Error: %v", err)
		return "", &AIError{Message: "Failed to generate AI response", Cause: err}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &AIError{Message: "AI returned empty response"}
	}

	return resp.Choices[0].Message.Content, nil
}

type AIError struct {
	Message string
	Cause   error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AIError) Unwrap() error {
	return e.Cause
}
