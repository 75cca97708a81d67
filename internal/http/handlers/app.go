package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tenqz/videosos/internal/domain"
	"github.com/tenqz/videosos/internal/infra"
	"github.com/tenqz/videosos/internal/orchestrator"
)

// App bundles the handler dependencies.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Store        domain.MediaStore
	Logger       infra.Logger
}

// NewApp wires handler dependencies into the app container.
func NewApp(orch *orchestrator.Orchestrator, store domain.MediaStore, logger infra.Logger) *App {
	return &App{Orchestrator: orch, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]string{"error": slug, "message": message})
}
