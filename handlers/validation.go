package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"card_recommend/services"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// 错误信息中使用JSON字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// feerange: "N"、"N-M"（N<=M）或 "N+"
	_ = v.RegisterValidation("feerange", func(fl validator.FieldLevel) bool {
		_, ok := services.ParseFeeRange(fl.Field().String())
		return ok
	})
	return v
}

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

var ruleMessages = map[string]string{
	"required": "%s is required",
	"feerange": "%s must look like \"0\", \"0-100\" or \"95+\"",
	"max":      "%s exceeds the maximum length",
	"gt":       "%s must be greater than %s",
	"oneof":    "%s must be one of: %s",
}

// validateRequest 校验请求体，失败时返回字段级错误列表
func validateRequest(v interface{}) []FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Rule: "invalid", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), reflect.TypeOf(v).Elem().Name()+".")
		msg := fmt.Sprintf("%s is invalid", field)
		if tmpl, ok := ruleMessages[fe.Tag()]; ok {
			if strings.Count(tmpl, "%s") == 2 {
				msg = fmt.Sprintf(tmpl, field, fe.Param())
			} else {
				msg = fmt.Sprintf(tmpl, field)
			}
		}
		out = append(out, FieldError{Field: field, Rule: fe.Tag(), Message: msg})
	}
	return out
}
