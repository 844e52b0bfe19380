package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizarena-service/internal/domain"
)

// Client calls the question-generation API and turns its output into
// playable MCQs. Generated content is untrusted: every item is validated and
// invalid items are dropped rather than failing the batch.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type generateRequest struct {
	Topic string `json:"topic"`
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

type generatedItem struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctAnswerIndex"`
	TimeLimit    int      `json:"timeLimit"`
}

type generateResponse struct {
	Questions []generatedItem `json:"questions"`
}

// Generate requests count MCQs on the given topic and skill level. The
// returned slice may be shorter than count when items fail validation.
func (c *Client) Generate(ctx context.Context, topic, skill string, count int) ([]domain.Question, error) {
	if count <= 0 || count > domain.MaxQuestionsPerQuiz {
		return nil, fmt.Errorf("%w: count must be 1..%d", domain.ErrInvalidQuestion, domain.MaxQuestionsPerQuiz)
	}

	body, err := json.Marshal(generateRequest{Topic: topic, Skill: skill, Count: count})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generate questions: unexpected status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode generation response: %w", err)
	}

	questions := make([]domain.Question, 0, len(parsed.Questions))
	for _, item := range parsed.Questions {
		q, ok := c.toQuestion(item, topic, skill)
		if !ok {
			c.log.Warnw("dropping invalid generated question", "topic", topic, "text", item.Question)
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (c *Client) toQuestion(item generatedItem, topic, skill string) (domain.Question, bool) {
	if item.Question == "" {
		return domain.Question{}, false
	}
	if len(item.Options) != domain.MCQOptionCount {
		return domain.Question{}, false
	}
	if item.CorrectIndex < 0 || item.CorrectIndex >= domain.MCQOptionCount {
		return domain.Question{}, false
	}
	for _, opt := range item.Options {
		if opt == "" {
			return domain.Question{}, false
		}
	}
	limit := item.TimeLimit
	if limit <= 0 {
		limit = 30
	}
	return domain.Question{
		ID:         uuid.NewString(),
		Text:       item.Question,
		TimeLimit:  limit,
		Technology: topic,
		Skill:      skill,
		Detail: domain.MCQDetail{
			Options:      item.Options,
			CorrectIndex: item.CorrectIndex,
		},
	}, true
}
