//go:build swagger

package httpapi

import (
	_ "embed"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

//go:embed openapi.json
var openAPISpec string

type openAPIDoc struct{}

func (openAPIDoc) ReadDoc() string { return openAPISpec }

func init() {
	swag.Register(swag.Name, openAPIDoc{})
}

// MountSwagger serves the swagger UI and /swagger/doc.json.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
