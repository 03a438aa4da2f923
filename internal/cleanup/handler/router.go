package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"sweeper/pkg/contracts"
	apperrors "sweeper/pkg/errors"
)

// NewRouter registers the given handlers and answers unknown routes and
// methods with JSON errors instead of httprouter's plain text.
func NewRouter(handlers ...contracts.Handler) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = apperrors.WriteError(w, apperrors.NotFound("route "+r.URL.Path))
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = apperrors.WriteError(w, apperrors.MethodNotAllowed(r.Method, r.URL.Path))
	})

	for _, h := range handlers {
		h.RegisterRoutes(router)
	}
	return router
}
