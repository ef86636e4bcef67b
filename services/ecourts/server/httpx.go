package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error is an error with an HTTP status, its Detail is what the client
// sees.
type Error struct {
	StatusCode int
	Detail     any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %v", e.StatusCode, e.Detail)
}

func errorf(status int, format string, args ...any) *Error {
	return &Error{StatusCode: status, Detail: fmt.Sprintf(format, args...)}
}

type errorRsp struct {
	Detail any `json:"detail"`
}

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{StatusCode: http.StatusUnprocessableEntity, Detail: err.Error()}
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, ferr := range verrs {
		message := fmt.Sprintf("failed on the '%s' rule", ferr.Tag())
		if ferr.Param() != "" {
			message = fmt.Sprintf("failed on the '%s=%s' rule", ferr.Tag(), ferr.Param())
		}
		fields = append(fields, FieldError{
			Field:   ferr.Field(),
			Rule:    ferr.Tag(),
			Message: message,
		})
	}
	return &Error{StatusCode: http.StatusUnprocessableEntity, Detail: fields}
}

// decode reads a JSON body into `out` and validates it.
func (s *Server) decode(r *http.Request, out any) error {
	if r.Body == nil {
		return &Error{StatusCode: http.StatusUnprocessableEntity, Detail: "request body is required"}
	}
	err := json.NewDecoder(r.Body).Decode(out)
	if err != nil {
		return &Error{StatusCode: http.StatusUnprocessableEntity, Detail: fmt.Sprintf("invalid request body: %v", err)}
	}
	err = s.validate.Struct(out)
	if err != nil {
		return validationError(err)
	}
	return nil
}

func sendJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// wrap turns a handler's returned error into a JSON error response.
func (s *Server) wrap(id string, handler handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := handler(w, r)
		if err == nil {
			return
		}
		var httpErr *Error
		if errors.As(err, &httpErr) {
			if httpErr.StatusCode >= 500 {
				s.tel.ReportWarning(id, err)
			}
			sendJson(w, httpErr.StatusCode, errorRsp{Detail: httpErr.Detail})
			return
		}
		s.tel.ReportBroken(id, err)
		sendJson(w, http.StatusInternalServerError, errorRsp{Detail: "internal server error"})
	}
}
