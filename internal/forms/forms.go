// Package forms はフォーム入力の型定義とバリデーションを提供します。
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// RegisterForm はユーザー登録フォームです。
type RegisterForm struct {
	Email    string `form:"email" validate:"notblank,email"`
	Password string `form:"password" validate:"required"`
	Name     string `form:"name" validate:"notblank"`
}

// LoginForm はログインフォームです。
type LoginForm struct {
	Email    string `form:"email" validate:"notblank,email"`
	Password string `form:"password" validate:"required"`
}

// PostForm は記事の作成・編集フォームです。
type PostForm struct {
	Title    string `form:"title" validate:"notblank"`
	Subtitle string `form:"subtitle" validate:"notblank"`
	ImgURL   string `form:"img_url" validate:"notblank,url"`
	Body     string `form:"body" validate:"notblank"`
}

// CommentForm はコメント投稿フォームです。
type CommentForm struct {
	Comment string `form:"comment" validate:"notblank"`
}

// ContactForm はお問い合わせフォームです。検証ルールはありません。
type ContactForm struct {
	Name    string `form:"name"`
	Email   string `form:"email"`
	Phone   string `form:"phone_number"`
	Message string `form:"message"`
}

// FieldError はフィールド単位のエラーです。Field はフォームのフィールド名です。
type FieldError struct {
	Field   string
	Message string
}

// Result は検証結果です。
type Result struct {
	Errors []FieldError
}

// OK はエラーがなければ true を返します。
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Add はエラーを追加します。
func (r *Result) Add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// For は指定フィールドの最初のエラーメッセージを返します。
func (r Result) For(field string) string {
	for _, e := range r.Errors {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// Error は全エラーを 1 行にまとめます。
func (r Result) Error() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.Split(f.Tag.Get("form"), ",")[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("forms: register notblank: %v", err))
	}
}

var messages = map[string]string{
	"required": "This field is required.",
	"notblank": "This field is required.",
	"email":    "Invalid email address.",
	"url":      "Invalid URL.",
}

func parseMessage(e validator.FieldError) string {
	if msg, ok := messages[e.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("Invalid value (%s).", e.Tag())
}

// Bind はリクエストのフォーム値を dst に読み込みます。検証は行いません。
func Bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindWith(dst, binding.Form); err != nil {
		return fmt.Errorf("forms: bind: %w", err)
	}
	return nil
}

// Validate はフォーム構造体を検証します。form にはポインターを渡してください。
func Validate(form any) Result {
	var result Result
	err := validate.Struct(form)
	if err == nil {
		return result
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		result.Add("", err.Error())
		return result
	}
	for _, e := range validationErrs {
		result.Add(e.Field(), parseMessage(e))
	}
	return result
}
