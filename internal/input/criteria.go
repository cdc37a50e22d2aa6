package input

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go-bosszp-automation/internal/models"
)

const (
	otherSalary    = "其他"
	defaultSalary  = "40-50K"
	defaultExp     = "3"
	defaultMaxSize = 10
)

// Choices are the options offered for the select questions.
type Choices struct {
	Degrees  []string
	Salaries []string
}

// CollectCriteria asks for every criterion, offering prev (the previous
// run's answers) as defaults.
func CollectCriteria(p Prompter, prev models.UserCriteria, choices Choices) (models.UserCriteria, error) {
	var c models.UserCriteria
	var err error

	degreeDefault := prev.Degree
	if degreeDefault == "" && len(choices.Degrees) > 0 {
		degreeDefault = choices.Degrees[0]
	}
	if c.Degree, err = p.Select("你的最高学历?", choices.Degrees, degreeDefault); err != nil {
		return c, err
	}

	salaryOptions := append(append([]string(nil), choices.Salaries...), otherSalary)
	salaryDefault := prev.Salary
	if salaryDefault != "" && !slices.Contains(choices.Salaries, salaryDefault) {
		salaryDefault = otherSalary
	}
	if c.Salary, err = p.Select("你的期望薪资?", salaryOptions, salaryDefault); err != nil {
		return c, err
	}
	if c.Salary == otherSalary {
		custom := prev.Salary
		if custom == "" || slices.Contains(choices.Salaries, custom) {
			custom = defaultSalary
		}
		if c.Salary, err = p.Text("请输入具体薪资范围（如：40-50K）:", custom); err != nil {
			return c, err
		}
	}

	expDefault := prev.Experience
	if expDefault == "" {
		expDefault = defaultExp
	}
	if c.Experience, err = p.Text("你的工作经验(如：3年、5年、10年)?", expDefault); err != nil {
		return c, err
	}

	names, err := p.Text("搜索的职位关键词(多个用逗号分隔)?", strings.Join(prev.JobNames, ","))
	if err != nil {
		return c, err
	}
	c.JobNames = SplitKeywords(names)

	sizeDefault := prev.MaxSize
	if sizeDefault <= 0 {
		sizeDefault = defaultMaxSize
	}
	size, err := p.Text("每个关键词最多收集多少个岗位?", strconv.Itoa(sizeDefault))
	if err != nil {
		return c, err
	}
	if c.MaxSize, err = strconv.Atoi(size); err != nil {
		return c, fmt.Errorf("invalid max size %q: %w", size, err)
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid criteria: %w", err)
	}
	return c, nil
}

// SplitKeywords splits on ASCII and full-width commas, dropping blanks.
func SplitKeywords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '，' })
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
