// Package validation checks and normalizes task payloads before they
// reach a repository. It never touches the store.
package validation

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"taskmanager/internal/model"
	"taskmanager/internal/query"
)

const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 2000
)

// taskFields are the only keys a task payload may carry.
var taskFields = map[string]bool{
	"title":       true,
	"description": true,
	"status":      true,
	"dueDate":     true,
}

// Structural pass: JSON types only. Value rules live in the struct tags below.
const taskSchemaJSON = `{
	"type": "object",
	"properties": {
		"title":       {"type": "string"},
		"description": {"type": "string"},
		"status":      {"type": "string"},
		"dueDate":     {"type": "string"}
	}
}`

var taskSchema = jsonschema.MustCompileString("task.schema.json", taskSchemaJSON)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, ok := ParseDate(fl.Field().String())
		return ok
	}); err != nil {
		panic(err)
	}
	return v
}

type taskPayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueDate     *string `json:"dueDate"`
}

type createRules struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Status      string `json:"status" validate:"oneof=Pending 'In Progress' Completed"`
	DueDate     string `json:"dueDate" validate:"required,isodate"`
}

type updateRules struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=120"`
	Description *string `json:"description" validate:"omitnil,max=2000"`
	Status      *string `json:"status" validate:"omitnil,oneof=Pending 'In Progress' Completed"`
	DueDate     *string `json:"dueDate" validate:"omitnil,isodate"`
}

// ValidateCreate checks a create payload and applies defaults: empty
// description and Pending status.
func ValidateCreate(body []byte) (model.NewTask, error) {
	payload, _, err := decodeTask(body)
	if err != nil {
		return model.NewTask{}, err
	}

	rules := createRules{
		Title:       trimmed(payload.Title),
		Description: trimmed(payload.Description),
		Status:      string(model.StatusPending),
		DueDate:     trimmed(payload.DueDate),
	}
	if payload.Status != nil {
		rules.Status = *payload.Status
	}

	if err := checkRules(rules); err != nil {
		return model.NewTask{}, err
	}

	due, _ := ParseDate(rules.DueDate)
	return model.NewTask{
		Title:       rules.Title,
		Description: rules.Description,
		Status:      model.Status(rules.Status),
		DueDate:     due,
	}, nil
}

// ValidateUpdate checks a partial update. At least one recognized field
// must be present.
func ValidateUpdate(body []byte) (model.TaskPatch, error) {
	payload, recognized, err := decodeTask(body)
	if err != nil {
		return model.TaskPatch{}, err
	}
	if recognized == 0 {
		return model.TaskPatch{}, newError("at least one field required")
	}

	rules := updateRules{
		Title:       trimmedPtr(payload.Title),
		Description: trimmedPtr(payload.Description),
		Status:      payload.Status,
		DueDate:     trimmedPtr(payload.DueDate),
	}

	if err := checkRules(rules); err != nil {
		return model.TaskPatch{}, err
	}

	patch := model.TaskPatch{
		Title:       rules.Title,
		Description: rules.Description,
	}
	if rules.Status != nil {
		status := model.Status(*rules.Status)
		patch.Status = &status
	}
	if rules.DueDate != nil {
		due, _ := ParseDate(*rules.DueDate)
		patch.DueDate = &due
	}
	return patch, nil
}

// ParseFilter turns list query parameters into a filter. Status is an
// exact match, so an unknown status simply matches no task. A blank
// search is treated as absent.
func ParseFilter(status, search string) query.Filter {
	var f query.Filter

	if status != "" {
		s := model.Status(status)
		f.Status = &s
	}

	f.Search = strings.TrimSpace(search)
	return f
}

// decodeTask runs the key and JSON-type passes and returns the typed
// payload with the number of recognized keys.
func decodeTask(body []byte) (taskPayload, int, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return taskPayload{}, 0, newError("request body must be a JSON object")
	}

	verr := &Error{}
	recognized := 0

	unknown := make([]string, 0)
	for key := range raw {
		if taskFields[key] {
			recognized++
			continue
		}
		unknown = append(unknown, key)
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		verr.add(key, "is not allowed")
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return taskPayload{}, 0, newError("request body must be a JSON object")
	}
	if err := taskSchema.Validate(doc); err != nil {
		collectSchemaErrors(err, verr)
	}

	if err := verr.orNil(); err != nil {
		return taskPayload{}, 0, err
	}

	var payload taskPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return taskPayload{}, 0, newError("request body must be a JSON object")
	}
	return payload, recognized, nil
}

func collectSchemaErrors(err error, out *Error) {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		out.add("", err.Error())
		return
	}
	collectLeaves(ve, out)
}

func collectLeaves(ve *jsonschema.ValidationError, out *Error) {
	if len(ve.Causes) == 0 {
		field := strings.TrimPrefix(ve.InstanceLocation, "/")
		if field == "" {
			out.add("", "request body must be a JSON object")
			return
		}
		out.add(field, "must be a string")
		return
	}
	for _, cause := range ve.Causes {
		collectLeaves(cause, out)
	}
}

func checkRules(rules interface{}) error {
	err := validate.Struct(rules)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{}
	for _, fe := range verrs {
		out.add(fe.Field(), ruleMessage(fe))
	}
	return out
}

// ParseDate accepts the ISO 8601 forms clients send. A date-time without
// a zone is read in server local time; a bare date is midnight UTC. The
// result is always UTC.
func ParseDate(s string) (time.Time, bool) {
	layouts := []struct {
		layout string
		loc    *time.Location
	}{
		{time.RFC3339Nano, time.UTC},
		{"2006-01-02T15:04Z07:00", time.UTC},
		{"2006-01-02T15:04:05.999999999", time.Local},
		{"2006-01-02T15:04", time.Local},
		{"2006-01-02", time.UTC},
	}
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l.layout, s, l.loc); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func statusList() string {
	names := make([]string, len(model.Statuses))
	for i, s := range model.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
