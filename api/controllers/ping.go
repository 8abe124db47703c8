package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/zohosync-backend/api/responses"
	"github.com/angelmondragon/zohosync-backend/pkg/config"
)

func PublicPing(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"service": "zohosync",
			"env":     cfg.App.Env,
			"time":    time.Now().UTC(),
		})
	}
}
