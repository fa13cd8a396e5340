package validator

import "github.com/go-playground/validator/v10"

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewScrapeValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("query", queryValidator),
		},
	}
}

func NewScrapeLogValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("scrape_log_status", scrapeLogStatusValidator),
		},
	}
}
