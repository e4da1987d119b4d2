package http

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

//go:embed openapi.yaml
var openAPIDocument []byte

var loadOpenAPI = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
})

// OpenAPI returns the parsed description of the REST API. It is served as
// JSON at /swagger/doc.json.
func OpenAPI() (*openapi3.T, error) {
	return loadOpenAPI()
}

// swaggerDoc feeds the embedded document to echo-swagger.
type swaggerDoc struct{}

func (swaggerDoc) ReadDoc() string {
	doc, err := loadOpenAPI()
	if err != nil {
		return "{}"
	}
	b, err := doc.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(b)
}

func init() {
	swag.Register(swag.Name, swaggerDoc{})
}

// RequestSpecValidator checks path parameters and JSON bodies against the
// OpenAPI document before the handler binds them. Authentication stays with
// RequireAuth, so it runs after it in the route chain.
type RequestSpecValidator struct {
	router routers.Router
}

func NewRequestSpecValidator(doc *openapi3.T) (*RequestSpecValidator, error) {
	if doc == nil {
		return nil, errors.New("openapi document is required")
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &RequestSpecValidator{router: router}, nil
}

func (v *RequestSpecValidator) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		route, pathParams, err := v.router.FindRoute(req)
		if err != nil {
			// Not described; nothing to check.
			return next(c)
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				MultiError:         true,
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(req.Context(), input); err != nil {
			return writeError(c, requestSpecError(err))
		}
		return next(c)
	}
}

// requestSpecError turns kin-openapi errors into the ValidationError shape
// used by the struct validator, keyed by JSON path.
func requestSpecError(err error) error {
	var parseErr *openapi3filter.ParseError
	if errors.As(err, &parseErr) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	fields := make(map[string]string)
	collectSpecErrors(err, "", fields)
	if len(fields) == 0 {
		fields["body"] = err.Error()
	}
	return &ValidationError{Fields: fields}
}

func collectSpecErrors(err error, param string, fields map[string]string) {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			collectSpecErrors(inner, param, fields)
		}
	case *openapi3filter.RequestError:
		if e.Parameter != nil {
			param = e.Parameter.Name
		}
		if e.Err == nil {
			fields[fieldOr(param, "body")] = e.Reason
			return
		}
		collectSpecErrors(e.Err, param, fields)
	case *openapi3.SchemaError:
		field := strings.Join(e.JSONPointer(), ".")
		if param != "" {
			field = param
		}
		fields[fieldOr(field, "body")] = schemaMessage(e)
	default:
		fields[fieldOr(param, "body")] = err.Error()
	}
}

func schemaMessage(e *openapi3.SchemaError) string {
	switch e.SchemaField {
	case "required":
		return "is required"
	case "maxLength":
		if e.Schema != nil && e.Schema.MaxLength != nil {
			return fmt.Sprintf("must be at most %d", *e.Schema.MaxLength)
		}
	case "minLength":
		if e.Schema != nil {
			return fmt.Sprintf("must be at least %d", e.Schema.MinLength)
		}
	case "type":
		return "has the wrong type"
	}
	return "is invalid"
}

func fieldOr(field, fallback string) string {
	if field == "" {
		return fallback
	}
	return field
}
