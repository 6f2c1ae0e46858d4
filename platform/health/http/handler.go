package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Check проверка зависимости (ping БД, брокера и т.п.)
type Check func(ctx context.Context) error

// Handler возвращает handler для /health.
// 200 {"status":"ok"} если все проверки прошли, иначе 503 с ошибками по именам проверок.
func Handler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if len(failed) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "not ready", "checks": failed})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
