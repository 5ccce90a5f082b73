package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-kit/log"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	appMiddleware "github.com/dropbin/service/internal/middleware"
	"github.com/dropbin/service/internal/response"
	"github.com/dropbin/service/internal/upload"
	"github.com/dropbin/service/internal/web"

	_ "github.com/dropbin/service/docs/swagger"
)

// objectsPrefix is where the memory backend serves stored objects.
const objectsPrefix = "/objects"

// newRouter mounts every route. objects is non-nil only for the memory driver.
func newRouter(uploadHandler *upload.Handler, objects http.Handler, allowedOrigins []string, logger log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	// Swagger UI at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Get("/", web.Index)
	r.Head("/", web.Index)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", uploadHandler.Upload)
	})

	if objects != nil {
		r.Handle(objectsPrefix+"/*", http.StripPrefix(objectsPrefix, objects))
	}

	return r
}
