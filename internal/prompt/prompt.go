// Package prompt renders collected job details into the analysis request
// sent to the LLM.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"go-bosszp-automation/internal/models"
)

var funcs = template.FuncMap{
	"join": func(items []string, sep string) string { return strings.Join(items, sep) },
}

var singleJob = template.Must(template.New("job").Funcs(funcs).Parse(`岗位名称: {{.JobInfo.JobName}}
薪资范围: {{.JobInfo.SalaryDesc}}
{{if .JobInfo.DegreeName}}学历要求: {{.JobInfo.DegreeName}}{{end}}
{{if .JobInfo.ExperienceName}}经验要求: {{.JobInfo.ExperienceName}}{{end}}
{{if .JobInfo.ShowSkills}}技能要求: {{join .JobInfo.ShowSkills ", "}}{{end}}
{{.JobInfo.PostDescription}}`))

var analysis = template.Must(template.New("prompt").Funcs(funcs).Parse(`
我是一名面试者，请根据我的职位搜索关键词和岗位描述，帮我分析当前招聘市场情况，并给出招聘建议。
职位搜索关键词: {{join .Keywords ", "}}
学历: {{.Criteria.Degree}}
薪资: {{.Criteria.Salary}}
经验: {{.Criteria.Experience}}

详细岗位列表描述如下:
{{.Jobs}}`))

// RenderJob renders the block for one posting.
func RenderJob(detail models.JobDetailItem) (string, error) {
	var b strings.Builder
	if err := singleJob.Execute(&b, detail); err != nil {
		return "", fmt.Errorf("render job %s: %w", detail.JobInfo.EncryptID, err)
	}
	return b.String(), nil
}

// RenderJobs wraps each posting in numbered <岗位N> tags, separated by a blank line.
func RenderJobs(details []models.JobDetailItem) (string, error) {
	blocks := make([]string, 0, len(details))
	for i, detail := range details {
		body, err := RenderJob(detail)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, fmt.Sprintf("<岗位%d>\n%s\n</岗位%d>", i+1, body, i+1))
	}
	return strings.Join(blocks, "\n\n"), nil
}

// Render builds the full prompt.
func Render(details []models.JobDetailItem, keywords []string, criteria models.UserCriteria) (string, error) {
	jobs, err := RenderJobs(details)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	err = analysis.Execute(&b, struct {
		Keywords []string
		Criteria models.UserCriteria
		Jobs     string
	}{keywords, criteria, jobs})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// Preview shortens a long prompt to its head and tail for logging.
func Preview(prompt string, n int) string {
	runes := []rune(prompt)
	if len(runes) <= 2*n {
		return prompt
	}
	return string(runes[:n]) + "..." + string(runes[len(runes)-n:])
}
