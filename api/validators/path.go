package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	"github.com/angelmondragon/zohosync-backend/pkg/validate"
)

type entityParam struct {
	Entity string `json:"entity" validate:"required,oneof=items customers orders invoices packages"`
}

// ParseEntityParam reads and checks the {entity} path segment.
func ParseEntityParam(r *http.Request, key string) (enums.SyncEntity, error) {
	param := entityParam{Entity: strings.ToLower(strings.TrimSpace(chi.URLParam(r, key)))}
	if err := validate.Struct(param); err != nil {
		return "", err
	}
	return enums.ParseSyncEntity(param.Entity)
}
