package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxIDLen limits path IDs before they reach a store lookup.
const maxIDLen = 100

type sequenceNameRequest struct {
	Name string `json:"name" validate:"max=100"`
}

type stepRequest struct {
	Action          string `json:"action" validate:"required"`
	Param           string `json:"param"`
	DurationSeconds int    `json:"duration_seconds" validate:"required"`
}

type stepFieldRequest struct {
	Field string `json:"field" validate:"required,oneof=action param duration"`
	Value string `json:"value"`
}

type swapStepsRequest struct {
	I *int `json:"i" validate:"required,min=0"`
	J *int `json:"j" validate:"required,min=0"`
}

type executeRequest struct {
	Source string `json:"source" validate:"max=100"`
}

type createScheduleRequest struct {
	SequenceID  string `json:"sequence_id" validate:"required,max=100"`
	TriggerTime string `json:"trigger_time" validate:"required"`
	Frequency   string `json:"frequency" validate:"required,oneof=daily weekdays weekends once"`
}

type scheduleFieldRequest struct {
	Field string `json:"field" validate:"required,oneof=sequence_id trigger_time frequency active"`
	Value string `json:"value"`
}

// decodeRequest reads a JSON body into dst and checks its shape. It writes
// the 400 response itself and reports whether the handler may continue.
// With allowEmpty an absent body leaves dst at its zero value.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			writeBadRequest(w, "invalid JSON body")
			return false
		}
	}

	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, describeValidation(err))
		return false
	}
	return true
}

// describeValidation renders validator errors using JSON field names.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, name+" is required")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of: %s", name, fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", name, fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", name, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", name, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// newValidator reports failures by JSON field name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// splitList parses a comma separated query value, dropping blanks.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pathID reads a chi URL parameter, writing a 400 when it is unusable.
func pathID(w http.ResponseWriter, value, what string) (string, bool) {
	if value == "" || len(value) > maxIDLen {
		writeBadRequest(w, "invalid "+what+" ID")
		return "", false
	}
	return value, true
}
