// Package forms contains the input shapes accepted by the auth and
// procedure endpoints and the field level validation shared by the
// server and the Go client.
package forms

import (
	"errors"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

type SignInForm struct {
	Email       string `json:"email" form:"email" validate:"required,email"`
	Password    string `json:"password" form:"password" validate:"required"`
	CallbackURL string `json:"callbackURL,omitempty" form:"callbackURL"`
}

type SignUpForm struct {
	Name            string `json:"name" form:"name" validate:"required,notblank,max=255"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,max=255"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"required,eqfield=Password"`
	Image           string `json:"image,omitempty" form:"image" validate:"omitempty,url"`
	CallbackURL     string `json:"callbackURL,omitempty" form:"callbackURL"`
}

type SocialForm struct {
	Provider    string `json:"provider" form:"provider" validate:"required"`
	CallbackURL string `json:"callbackURL,omitempty" form:"callbackURL"`
}

type AgentForm struct {
	Name         string `json:"name" validate:"required,notblank,max=255"`
	Instructions string `json:"instructions" validate:"required,notblank"`
}

type AgentPatch struct {
	Name         *string `json:"name,omitempty" validate:"omitnil,notblank,max=255"`
	Instructions *string `json:"instructions,omitempty" validate:"omitnil,notblank"`
}

type MeetingForm struct {
	Name    string `json:"name" validate:"required,notblank,max=255"`
	AgentID string `json:"agentId" validate:"required"`
}

type MeetingPatch struct {
	Name          *string    `json:"name,omitempty" validate:"omitnil,notblank,max=255"`
	AgentID       *string    `json:"agentId,omitempty" validate:"omitnil,notblank"`
	Status        *string    `json:"status,omitempty" validate:"omitnil,oneof=upcoming active completed processing cancelled"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	TranscriptURL *string    `json:"transcriptUrl,omitempty" validate:"omitempty,url"`
	RecordingURL  *string    `json:"recordingUrl,omitempty" validate:"omitempty,url"`
	Summary       *string    `json:"summary,omitempty"`
}

func (p *AgentPatch) Empty() bool {
	return p.Name == nil && p.Instructions == nil
}

func (p *MeetingPatch) Empty() bool {
	return p.Name == nil && p.AgentID == nil && p.Status == nil &&
		p.StartedAt == nil && p.EndedAt == nil &&
		p.TranscriptURL == nil && p.RecordingURL == nil && p.Summary == nil
}

// Errors maps a json field name to the message shown next to it
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, len(keys))
	for i, k := range keys {
		msgs[i] = k + ": " + e[k]
	}

	return strings.Join(msgs, "; ")
}

// Messages that depend on the field, keyed by "field.tag"
var fieldMessages = map[string]string{
	"name.required":            "Name is required",
	"email.required":           "Invalid email",
	"password.required":        "Password is required",
	"confirmPassword.required": "Password is required",
	"confirmPassword.eqfield":  "Password is not match",
	"instructions.required":    "Instructions are required",
	"instructions.min":         "Instructions are required",
	"agentId.required":         "Agent is required",
	"agentId.min":              "Agent is required",
	"name.min":                 "Name is required",
	"name.notblank":            "Name is required",
	"instructions.notblank":    "Instructions are required",
	"agentId.notblank":         "Agent is required",
	"provider.required":        "Provider is required",
}

var tagMessages = map[string]string{
	"email": "Invalid email",
	"url":   "Invalid URL",
	"oneof": "Invalid status",
	"max":   "Value is too long",
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterValidation("notblank", validators.NotBlank)
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})

	return validate
}

// Validate checks v against its validate tags. It returns nil when v is
// well formed.
func Validate(v any) Errors {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{"": err.Error()}
	}

	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, taken := out[field]; taken {
			continue
		}

		out[field] = message(field, fe.Tag())
	}

	return out
}

func message(field, tag string) string {
	if m, ok := fieldMessages[field+"."+tag]; ok {
		return m
	}

	if m, ok := tagMessages[tag]; ok {
		return m
	}

	return "Invalid value"
}

// SafeCallback returns raw if it is a same origin path free of control
// characters and backslashes, "/" otherwise
func SafeCallback(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}

	if strings.ContainsFunc(raw, func(r rune) bool { return r < 0x20 || r == 0x7f || r == '\\' }) {
		return "/"
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}

	return raw
}
