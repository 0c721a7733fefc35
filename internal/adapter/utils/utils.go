package utils

import (
	"net/http"

	_ "github.com/akolanti/LibraryRAG/cmd/api/docs"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/http-swagger"
)

func GetNewUUID() string {
	return uuid.New().String()
}

func GetChiURLParam(request *http.Request, key string) string {
	return chi.URLParam(request, key)
}

// NewRouter returns a router with the unauthenticated surfaces mounted: swagger and prometheus.
func NewRouter() *chi.Mux {
	router := chi.NewRouter()
	//behind the proxy the rate limiter must key on the client, not the proxy
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	InitSwagger(router)
	router.Handle("/metrics", promhttp.Handler())
	return router
}

func InitSwagger(r *chi.Mux) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
