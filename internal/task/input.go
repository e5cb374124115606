package task

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate *validator.Validate

// idPattern rejects characters that carry meaning in the plan document grammar.
var idPattern = regexp.MustCompile(`^[^\s,()\[\]*]+$`)

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		_, err := ParsePriority(fl.Field().String())
		return err == nil
	})

	_ = validate.RegisterValidation("wbsid", func(fl validator.FieldLevel) bool {
		return idPattern.MatchString(fl.Field().String())
	})

	_ = validate.RegisterValidation("nonempty", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	// Titles are rendered between ** markers on a single line.
	_ = validate.RegisterValidation("singleline", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return !strings.ContainsAny(s, "\r\n") && !strings.Contains(s, "**")
	})
}

// Validator returns the shared validator so other packages register against the
// same custom tags.
func Validator() *validator.Validate {
	return validate
}

// Input is the caller-supplied task record. Level is a pointer so that an
// omitted level is distinguishable from level 0.
type Input struct {
	// ID is the stable identifier, usually a dotted path such as "1.2"
	ID string `json:"id" yaml:"id" validate:"required,wbsid"`

	// Title is a short single-line name
	Title string `json:"title" yaml:"title" validate:"required,nonempty,singleline,max=200"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Level is the depth in the hierarchy, 0 for roots
	Level *int `json:"level" yaml:"level" validate:"required,min=0"`

	// Priority is High, Medium or Low (case-insensitive)
	Priority string `json:"priority" yaml:"priority" validate:"required,priority"`

	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty" validate:"omitempty,dive,wbsid"`

	// ParentID is required when Level > 0
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty" validate:"omitempty,wbsid"`

	Order     int  `json:"order,omitempty" yaml:"order,omitempty"`
	Completed bool `json:"completed,omitempty" yaml:"completed,omitempty"`
}

// FieldErrors validates the record's tags and returns readable messages.
func (in *Input) FieldErrors() []string {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, FormatFieldError(fe))
	}
	return msgs
}

// ToTask converts a validated record. Call FieldErrors first.
func (in *Input) ToTask() Task {
	p, _ := ParsePriority(in.Priority)
	level := 0
	if in.Level != nil {
		level = *in.Level
	}
	return Task{
		ID:           strings.TrimSpace(in.ID),
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Level:        level,
		Priority:     p,
		Dependencies: dedupe(in.Dependencies),
		ParentID:     strings.TrimSpace(in.ParentID),
		Order:        in.Order,
		Completed:    in.Completed,
	}
}

// FormatFieldError creates a human-readable error message
func FormatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "nonempty":
		return fmt.Sprintf("%s cannot be empty or whitespace", err.Field())
	case "singleline":
		return fmt.Sprintf("%s must be a single line without ** markers", err.Field())
	case "priority":
		return fmt.Sprintf("%s must be one of High, Medium, Low (got %v)", err.Field(), err.Value())
	case "wbsid":
		return fmt.Sprintf("%s %q must not contain whitespace, commas, brackets or *", err.Field(), err.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		if err.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		}
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", err.Field(), err.Tag())
	}
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
