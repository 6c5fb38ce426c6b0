package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/Lllllllleong/voicedocflow/internal/apperr"
	"github.com/Lllllllleong/voicedocflow/internal/auth"
	"github.com/Lllllllleong/voicedocflow/internal/drive"
	"github.com/Lllllllleong/voicedocflow/internal/models"
	"github.com/go-playground/validator/v10"
)

const maxJSONBytes = 1 << 20

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// decodeAndValidate reads a JSON body into v and checks its validate tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.InvalidInput, "could not parse JSON", err)
	}
	if err := getValidator().Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperr.Wrap(apperr.InvalidInput, "validation failed", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Field()+": "+fieldMessage(fe))
		}
		return apperr.New(apperr.InvalidInput, strings.Join(msgs, "; "))
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gt", "gte":
		return "must be positive"
	default:
		return "is invalid"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// errorStatus resolves the status, message and kind reported for err. Any
// Drive rejection of the credential becomes a 401 with the re-login message.
func errorStatus(err error) (int, string, apperr.Kind) {
	kind := apperr.KindOf(err)
	if drive.IsAuthError(err) {
		return http.StatusUnauthorized, apperr.ReauthMessage, kind
	}
	return apperr.HTTPStatus(kind), apperr.MessageOf(err), kind
}

func writeError(w http.ResponseWriter, err error) {
	status, msg, kind := errorStatus(err)
	writeJSON(w, status, models.StatusResponse{Success: false, Error: msg, ErrorKind: string(kind)})
}

// session returns the caller's session; Require guarantees it is present.
func session(r *http.Request) *auth.Session {
	s, _ := auth.SessionFrom(r.Context())
	return s
}
