package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"mapguess-server/shared/interfaces"
	"math"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultJudgeModel = openai.GPT4oMini

const judgeSystemPrompt = `You judge answers in a map guessing game. The player sees a map and describes what it shows.

Decide whether the player's guess names the same concept as the correct answer.
Be lenient about word order, singular/plural, spelling mistakes, abbreviations and articles.
Be strict about what is measured, the geographic scope, and the type of statistic.
The guess must express the complete concept: a single matching keyword is not enough.

Respond with a JSON object only:
{"correct": true|false, "confidence": <number between 0 and 1>, "reasoning": "<one short sentence>"}`

var _ interfaces.Judge = (*OpenAIJudge)(nil)

// OpenAIJudge решает, совпадает ли догадка с ответом, через chat completion в JSON-режиме.
type OpenAIJudge struct {
	client *openai.Client
	model  string
	guard  *callGuard
	logger *zap.Logger
}

func NewOpenAIJudge(cfg OpenAIConfig, logger *zap.Logger) *OpenAIJudge {
	if cfg.Model == "" {
		cfg.Model = DefaultJudgeModel
	}
	named := logger.Named("OpenAIJudge")
	return &OpenAIJudge{
		client: newOpenAIClient(cfg),
		model:  cfg.Model,
		guard:  newCallGuard("openai", cfg.Limits, named),
		logger: named,
	}
}

type judgeReply struct {
	Correct    bool    `json:"correct"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func judgeUserPrompt(guess, answer string, variants []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Correct answer: %q\n", answer)
	if len(variants) > 0 {
		b.WriteString("Also accepted phrasings:\n")
		for _, v := range variants {
			fmt.Fprintf(&b, "- %q\n", v)
		}
	}
	fmt.Fprintf(&b, "Player's guess: %q", guess)
	return b.String()
}

// Judge возвращает ошибку при сбое транспорта или разбора ответа; решение
// о fail-closed принимает вызывающий.
func (j *OpenAIJudge) Judge(ctx context.Context, guess, answer string, variants []string) (interfaces.JudgeVerdict, error) {
	userPrompt := judgeUserPrompt(guess, answer, variants)

	var resp openai.ChatCompletionResponse
	err := j.guard.call(ctx, "judge", func(ctx context.Context) error {
		var err error
		resp, err = j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: j.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: judgeSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			// 0 опускается при сериализации, поэтому минимальное ненулевое значение
			Temperature: math.SmallestNonzeroFloat32,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		return err
	})
	if err != nil {
		return interfaces.JudgeVerdict{}, fmt.Errorf("judge request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return interfaces.JudgeVerdict{}, fmt.Errorf("judge returned no choices")
	}
	j.observeTokens(resp.Usage, userPrompt, resp.Choices[0].Message.Content)

	var reply judgeReply
	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return interfaces.JudgeVerdict{}, fmt.Errorf("judge reply is not valid JSON: %w", err)
	}

	j.logger.Debug("Judge verdict",
		zap.String("guess", guess),
		zap.Bool("correct", reply.Correct),
		zap.Float64("confidence", reply.Confidence),
		zap.String("reasoning", reply.Reasoning),
	)
	return interfaces.JudgeVerdict{
		Correct:    reply.Correct,
		Confidence: reply.Confidence,
		Reasoning:  reply.Reasoning,
	}, nil
}

// observeTokens пишет usage из ответа, а если его нет - оценку через tiktoken.
func (j *OpenAIJudge) observeTokens(usage openai.Usage, userPrompt, completion string) {
	prompt, completionTokens := usage.PromptTokens, usage.CompletionTokens
	if usage.TotalTokens == 0 {
		tke, err := tiktoken.EncodingForModel(j.model)
		if err != nil {
			j.logger.Debug("Token estimation unavailable", zap.String("model", j.model), zap.Error(err))
			return
		}
		prompt = len(tke.Encode(judgeSystemPrompt, nil, nil)) + len(tke.Encode(userPrompt, nil, nil))
		completionTokens = len(tke.Encode(completion, nil, nil))
	}
	llmPromptTokens.WithLabelValues(j.model, "judge").Observe(float64(prompt))
	llmCompletionTokens.WithLabelValues(j.model, "judge").Observe(float64(completionTokens))
}

// stripCodeFence снимает обертку ```json ... ```, которую модели иногда добавляют.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
