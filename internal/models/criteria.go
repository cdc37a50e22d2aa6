package models

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// UserCriteria is what the user asked for. It is stored as user_input.json
// and offered as defaults on the next run.
type UserCriteria struct {
	Degree     string   `json:"degree" validate:"required,oneof=本科 硕士 博士 大专"`
	Salary     string   `json:"salary" validate:"required,salary_range"`
	Experience string   `json:"experience" validate:"required"`
	JobNames   []string `json:"job_names" validate:"required,min=1,dive,required"`
	MaxSize    int      `json:"max_size" validate:"gt=0"`
}

var salaryRange = regexp.MustCompile(`^\d+-\d+[kK]?$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("salary_range", func(fl validator.FieldLevel) bool {
		return salaryRange.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks the criteria are complete enough to run a search.
func (c *UserCriteria) Validate() error {
	return validate.Struct(c)
}
