package validator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

func (v *Validator) registerCustomTranslations() {
	v.registerTranslations(LangEN, map[string]string{
		TagNotBlank:    "{0} must not be blank",
		TagImageBase64: "{0} must be a base64 encoded image",
	})
	v.registerTranslations(LangZH, map[string]string{
		TagNotBlank:    "{0}不能为空白",
		TagImageBase64: "{0}必须是 base64 编码的图片",
	})
}

func (v *Validator) registerTranslations(lang string, messages map[string]string) {
	trans := v.trans[lang]
	for tag, message := range messages {
		_ = v.validate.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(tag, message, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T(fe.Tag(), fe.Field())
				return t
			},
		)
	}
}
