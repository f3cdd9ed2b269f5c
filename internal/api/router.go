package api

import (
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"

	"github.com/fieldops-copilot/server/internal/api/respond"
	logx "github.com/fieldops-copilot/server/pkg/logger"
)

// NewRouter wires every HTTP route.
func NewRouter(handler *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(recoveryMiddleware)

	router.HandleFunc("/api/health", handler.CheckHealth).Methods("GET")

	router.HandleFunc("/api/copilot/message", handler.PostMessage).Methods("POST")
	router.HandleFunc("/api/copilot/plan/confirm", handler.ConfirmPlan).Methods("POST")
	router.HandleFunc("/api/copilot/plan/reject", handler.RejectPlan).Methods("POST")
	router.HandleFunc("/api/copilot/conversations/{conversationId}", handler.DeleteConversation).Methods("DELETE")

	router.HandleFunc("/api/copilot/tools", handler.ListTools).Methods("GET")
	router.HandleFunc("/api/copilot/audit", handler.GetAudit).Methods("GET")

	return router
}

// recoveryMiddleware turns handler panics into 500 responses.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logx.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("handler panic recovered")
				respond.WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
