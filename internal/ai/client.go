package ai

import (
	"context"
	"errors"
)

var ErrNoAPIKey = errors.New("missing API key")

// Client is the interface for AI providers
type Client interface {
	// Analyze sends the rendered job prompt and returns the model's market
	// analysis as markdown.
	Analyze(ctx context.Context, prompt string) (string, error)
}

// buildSystemPrompt creates the system instruction for the AI model
func buildSystemPrompt() string {
	return `你是一名资深的招聘市场分析师和职业顾问。
用户会提供他的求职条件以及一组真实的岗位描述。

要求:
1. 总结这些岗位共同要求的技术栈、经验和学历，指出出现频率最高的技能。
2. 对比用户的学历、期望薪资和工作经验，判断其竞争力，并说明差距。
3. 给出具体可执行的求职建议(简历重点、需要补充的技能、薪资谈判区间)。
4. 只根据提供的岗位信息作答，不要编造公司或岗位。
5. 使用 Markdown 输出，包含小标题和列表。`
}
