// Package tenancy enforces household membership on every request under the
// household subtree. The target household comes only from the route; payload
// and query values are never trusted for tenancy decisions.
package tenancy

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hearth/internal/directory"
	dErrors "hearth/pkg/domain-errors"
	id "hearth/pkg/domain"
	"hearth/pkg/httputil"
	"hearth/pkg/requestcontext"
)

// URLParamHouseholdID is the chi route parameter carrying the household id.
const URLParamHouseholdID = "householdID"

// Enforce resolves the caller's role in the routed household and rejects
// everyone without one. Unknown households and non-member callers get the
// same Forbidden answer, so probing cannot distinguish "no access" from
// "does not exist".
func Enforce(dir directory.Directory, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			householdID, err := id.ParseHouseholdID(chi.URLParam(r, URLParamHouseholdID))
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			actorID := requestcontext.ActorID(ctx)
			if actorID.IsNil() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			exists, err := dir.HouseholdExists(ctx, householdID)
			if err != nil {
				logger.Error("directory existence lookup failed",
					"error", err,
					"household_id", householdID.String(),
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "tenancy check failed"))
				return
			}

			role := directory.RoleNone
			if exists {
				role, err = dir.RoleOf(ctx, actorID, householdID)
				if err != nil {
					logger.Error("directory role lookup failed",
						"error", err,
						"household_id", householdID.String(),
					)
					httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "tenancy check failed"))
					return
				}
			}
			if role == directory.RoleNone {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "no access to this household"))
				return
			}

			ctx = requestcontext.WithHouseholdID(ctx, householdID)
			ctx = requestcontext.WithRole(ctx, string(role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
