package classifier

import (
	"context"
	"encoding/json"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lumenlabs/handoff/internal/domain"
	"github.com/lumenlabs/handoff/internal/sanitizer"
)

// DefaultChatModel is the model used for classification when none is configured.
const DefaultChatModel = openai.GPT4oMini

const classifierSystemPrompt = `You classify short workplace documents.
Respond with a single JSON object and nothing else:
{"category": "work" | "personal", "confidence": <number between 0 and 1>}
"work" means the text concerns professional projects, clients, or operations.
"personal" means anything else. If unsure, answer "personal".`

// ChatAPI is the slice of the OpenAI client used for classification.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelClassifier asks a chat model for a category and confidence. The item
// text is redacted and re-checked before it is sent, so raw PII never reaches
// the external call; placeholders keep enough topicality to classify on. Any
// transport error or malformed model output becomes ErrClassificationFailure;
// the caller drops the item rather than guessing.
type ModelClassifier struct {
	api       ChatAPI
	model     string
	sanitizer *sanitizer.Sanitizer
}

// NewModelClassifier creates a ModelClassifier backed by the given API key.
func NewModelClassifier(apiKey, model string, san *sanitizer.Sanitizer) *ModelClassifier {
	if model == "" {
		model = DefaultChatModel
	}
	return &ModelClassifier{
		api:       openai.NewClient(apiKey),
		model:     model,
		sanitizer: san,
	}
}

// NewModelClassifierWithAPI creates a ModelClassifier with an explicit API,
// used by tests.
func NewModelClassifierWithAPI(api ChatAPI, model string, san *sanitizer.Sanitizer) *ModelClassifier {
	if model == "" {
		model = DefaultChatModel
	}
	return &ModelClassifier{api: api, model: model, sanitizer: san}
}

type modelLabel struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Classify redacts the item text, sends it to the chat model, and parses the
// structured verdict. Redaction plus the Validate re-check runs before the
// request is built; text that still trips a pattern never leaves the process.
func (c *ModelClassifier) Classify(ctx context.Context, item *domain.RawItem) (domain.ClassificationLabel, error) {
	if err := domain.ValidateRawItem(item); err != nil {
		return domain.ClassificationLabel{}, err
	}

	text := item.Content
	if strings.TrimSpace(item.Subject) != "" {
		text = item.Subject + "\n\n" + item.Content
	}
	redacted, _, err := c.sanitizer.Sanitize(text)
	if err != nil {
		return domain.ClassificationLabel{}, err
	}
	if !c.sanitizer.Validate(redacted) {
		return domain.ClassificationLabel{}, domain.ErrPIIResidual
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: redacted},
		},
	})
	if err != nil {
		return domain.ClassificationLabel{}, domain.NewDomainErrorWithCause(
			domain.ErrCodeClassificationFailure, "classification request failed", err)
	}
	if len(resp.Choices) == 0 {
		return domain.ClassificationLabel{}, domain.ErrClassificationFailure
	}

	return parseModelLabel(resp.Choices[0].Message.Content)
}

// parseModelLabel decodes the model's JSON verdict. Models occasionally wrap
// JSON in a code fence, which is stripped before decoding; anything else
// unexpected fails closed.
func parseModelLabel(raw string) (domain.ClassificationLabel, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var parsed modelLabel
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return domain.ClassificationLabel{}, domain.NewDomainErrorWithCause(
			domain.ErrCodeClassificationFailure, "model returned malformed label", err)
	}

	category := domain.Category(parsed.Category)
	if category != domain.CategoryWork && category != domain.CategoryPersonal {
		return domain.ClassificationLabel{}, domain.ErrClassificationFailure
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return domain.ClassificationLabel{}, domain.ErrClassificationFailure
	}

	return domain.ClassificationLabel{Category: category, Confidence: parsed.Confidence}, nil
}
