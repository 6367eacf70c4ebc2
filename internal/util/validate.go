package util

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"workforce-license-engine/internal/license"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	orgTypeTag  = "org_type"
	orgTypeText = "{0} must be one of workforce_board, training_provider, nonprofit, government, apprenticeship_sponsor, other"
)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// 错误信息使用 JSON 字段名
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(orgTypeTag, func(fl validator.FieldLevel) bool {
		return license.OrganizationType(fl.Field().String()).IsValid()
	})
	_ = Validate.RegisterTranslation(orgTypeTag, Translator,
		func(t ut.Translator) error { return t.Add(orgTypeTag, orgTypeText, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(orgTypeTag, fe.Field())
			return s
		},
	)
}

// ValidateStruct 校验结构体, 返回 字段名 -> 错误信息
func ValidateStruct(s interface{}) map[string]string {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Translate(Translator)
	}
	return out
}
