package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Summarizer turns structured provider data into user-facing comparison
// text. Implementations must only restate supplied data; the orchestrator
// guarantees they are never invoked on empty data.
type Summarizer interface {
	Summarize(ctx context.Context, in SummaryInput) (string, error)
}

// SummaryInput carries a length-capped view of one leg's provider data plus
// the request context fields the summary may mention.
type SummaryInput struct {
	Departure   string          `json:"departure"`
	Destination string          `json:"destination"`
	Date        string          `json:"date"`
	Profile     string          `json:"profile,omitempty"`
	Rail        *ProviderResult `json:"rail,omitempty"`
	Flight      *ProviderResult `json:"flight,omitempty"`
}

const summarySystemPrompt = `你是交通比价助手。你会收到交通查询数据（火车/航班）与用户画像profile。
严格规则（必须遵守）：
- 只能基于"交通数据"中给出的内容做结论；禁止用常识/经验补全价格、时长、车次/航班号。
- 禁止出现"通常/一般/大概X小时/经验上"等推断语句。
- 如果某方式数据缺失或只有 error，请明确写"数据缺失/查询失败"，并给下一步建议。
- 输出只要纯文本，不要JSON，不要代码块。

输出结构必须包含：
【结论】1-2句话：总体建议（仅基于数据）。
【火车建议】如有数据：给出"最快/最省/综合"各1条（引用数据字段；缺字段就说明缺失）。
【飞机建议】如有数据：给出"最快/最省/综合"各1条（引用数据字段；缺字段就说明缺失）。
【对比建议】仅基于数据的对比点：价格区间、出发到达时间段、是否直达/中转等（数据没有就不要写）。
【下一步确认】最多2个问题，用于推进下一步（例如：是否固定出发时段/是否只看直达/是否只看高铁）。`

// OpenAISummarizer implements Summarizer on the Chat Completions API.
type OpenAISummarizer struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAISummarizer builds the production summarizer. An empty model
// falls back to gpt-4o-mini.
func NewOpenAISummarizer(apiKey, model string) *OpenAISummarizer {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &OpenAISummarizer{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: 0.1,
	}
}

// Summarize sends one non-streaming completion request. Errors propagate to
// the orchestrator, which converts them into a literal failure notice.
func (s *OpenAISummarizer) Summarize(ctx context.Context, in SummaryInput) (string, error) {
	data, err := json.Marshal(map[string]any{
		"train":  in.Rail,
		"flight": in.Flight,
	})
	if err != nil {
		return "", fmt.Errorf("encode transport data: %w", err)
	}

	user := fmt.Sprintf("出发地：%s\n目的地：%s\n出发日期：%s\n用户画像profile(JSON)：%s\n交通数据(JSON)：%s\n",
		in.Departure, in.Destination, in.Date, compactProfile(in.Profile), data)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarySystemPrompt),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(s.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("summarization call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from summarizer")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "已获取到交通数据，但模型未返回分析文本。", nil
	}
	return text, nil
}

// compactProfile bounds the profile context so one oversized field can't
// blow up the request payload.
func compactProfile(profile string) string {
	s := strings.TrimSpace(profile)
	if s == "" {
		return "{}"
	}
	return truncate(s, 1400)
}
