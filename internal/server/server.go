package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"dmaker/internal/engine"
	"dmaker/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"duplicated_member_id"`
	Message string         `json:"message" example:"member id already in use"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"memberId\":\"dev1\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the DMaker API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors surface as 400 bad_request.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("DMaker API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerDevelopers(group, cfg.Engine)
	registerRetired(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "no_developer", "no developer with that member id", nil)
	case errors.Is(err, engine.ErrDuplicateMemberID):
		return newAPIError(http.StatusConflict, "duplicated_member_id", err.Error(), nil)
	case errors.Is(err, engine.ErrLevelExperienceMismatch):
		return newAPIError(http.StatusBadRequest, "level_experience_mismatch", err.Error(), nil)
	case errors.Is(err, engine.ErrInvalidLevel), errors.Is(err, engine.ErrInvalidSkillType):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "no_developer"
	case http.StatusConflict:
		return "duplicated_member_id"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func bodyBytes(ctx context.Context) []byte {
	if b, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return b
	}
	return nil
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join("/", basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", basePath, "openapi.json")
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>DMaker API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerDevelopers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-all-employed-developers",
		Method:      http.MethodGet,
		Path:        "/developers",
		Summary:     "List employed developers",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []DeveloperSummaryResponse `json:"body"`
	}, error) {
		items, err := e.GetAllEmployedDevelopers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []DeveloperSummaryResponse `json:"body"`
		}{Body: mapSummaries(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-developer-detail",
		Method:      http.MethodGet,
		Path:        "/developers/{memberId}",
		Summary:     "Get developer detail",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MemberID string `path:"memberId"`
	}) (*struct {
		Body DeveloperDetailResponse `json:"body"`
	}, error) {
		d, err := e.GetDeveloperDetail(ctx, input.MemberID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DeveloperDetailResponse `json:"body"`
		}{Body: developerDetail(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-developer",
		Method:        http.MethodPost,
		Path:          "/create-developer",
		Summary:       "Create developer",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateDeveloperRequest `json:"body"`
	}) (*struct {
		Body DeveloperDetailResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.MemberID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "memberId is required", nil)
		}
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		if input.Body.ExperienceYears == nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "experienceYears is required", nil)
		}
		if *input.Body.ExperienceYears < 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "experienceYears must be non-negative", nil)
		}
		if input.Body.Age == nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "age is required", nil)
		}
		if *input.Body.Age < 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "age must be non-negative", nil)
		}
		d, err := e.CreateDeveloper(ctx, engine.CreateDeveloperOptions{
			MemberID:        input.Body.MemberID,
			Name:            input.Body.Name,
			Age:             *input.Body.Age,
			Level:           input.Body.Level,
			SkillType:       input.Body.SkillType,
			ExperienceYears: *input.Body.ExperienceYears,
			ActorID:         actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DeveloperDetailResponse `json:"body"`
		}{Body: developerDetail(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-developer",
		Method:      http.MethodPut,
		Path:        "/developer/{memberId}",
		Summary:     "Edit developer",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		MemberID string               `path:"memberId"`
		Body     EditDeveloperRequest `json:"body"`
	}) (*struct {
		Body DeveloperDetailResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.ExperienceYears == nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "experienceYears is required", nil)
		}
		if *input.Body.ExperienceYears < 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "experienceYears must be non-negative", nil)
		}
		d, err := e.EditDeveloper(ctx, input.MemberID, engine.EditDeveloperOptions{
			Level:           input.Body.Level,
			SkillType:       input.Body.SkillType,
			ExperienceYears: *input.Body.ExperienceYears,
			ActorID:         actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DeveloperDetailResponse `json:"body"`
		}{Body: developerDetail(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "retire-developer",
		Method:      http.MethodDelete,
		Path:        "/developer/{memberId}",
		Summary:     "Retire developer",
		Errors: []int{
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		MemberID string `path:"memberId"`
	}) (*struct {
		Body DeveloperDetailResponse `json:"body"`
	}, error) {
		d, err := e.RetireDeveloper(ctx, input.MemberID, actorIDFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DeveloperDetailResponse `json:"body"`
		}{Body: developerDetail(d)}, nil
	})
}

func registerRetired(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-retired-developers",
		Method:      http.MethodGet,
		Path:        "/retired-developers",
		Summary:     "List retirement snapshots",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []RetiredDeveloperResponse `json:"body"`
	}, error) {
		items, err := e.ListRetiredDevelopers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := []RetiredDeveloperResponse{}
		for _, rd := range items {
			res = append(res, retiredResponse(rd))
		}
		return &struct {
			Body []RetiredDeveloperResponse `json:"body"`
		}{Body: res}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List journal events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Limit    int    `query:"limit" default:"20"`
		Type     string `query:"type"`
		MemberID string `query:"memberId"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		items, err := e.Repo.LatestEvents(ctx, input.Limit, input.Type, input.MemberID)
		if err != nil {
			return nil, handleError(err)
		}
		res := []EventResponse{}
		for _, evt := range items {
			res = append(res, eventResponse(evt))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: res}, nil
	})
}
