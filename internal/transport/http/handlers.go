// Package transporthttp exposes the household service over JSON HTTP. The
// handlers stay thin: decode, call the service, encode. All tenancy and
// identity decisions happen in middleware before a handler runs.
package transporthttp

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hearth/internal/audit"
	"hearth/internal/household/models"
	"hearth/internal/household/service"
	dErrors "hearth/pkg/domain-errors"
	id "hearth/pkg/domain"
	"hearth/pkg/httputil"
)

// ExpectedVersionHeader carries the client's last-seen version for
// conditional updates. Absent means unconditional.
const ExpectedVersionHeader = "X-Expected-Version"

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

func entityIDParam(r *http.Request) (id.EntityID, error) {
	return id.ParseEntityID(chi.URLParam(r, "entityID"))
}

// expectedVersion parses the conditional-update header. A present but
// malformed value is a client error, not an unconditional update.
func expectedVersion(r *http.Request) (*int64, error) {
	raw := r.Header.Get(ExpectedVersionHeader)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+ExpectedVersionHeader+" header")
	}
	return &v, nil
}

// Members

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var m models.Member
	if err := decodeBody(r, &m); err != nil {
		httputil.WriteError(w, err)
		return
	}
	created, err := h.svc.CreateMember(r.Context(), &m)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	entityID, err := entityIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := h.svc.GetMember(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.ListMembers(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if members == nil {
		members = []*models.Member{}
	}
	httputil.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	entityID, err := entityIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	expected, err := expectedVersion(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var m models.Member
	if err := decodeBody(r, &m); err != nil {
		httputil.WriteError(w, err)
		return
	}
	m.ID = entityID
	updated, err := h.svc.UpdateMember(r.Context(), &m, expected)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	entityID, err := entityIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.DeleteMember(r.Context(), entityID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Assets

func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var a models.Asset
	if err := decodeBody(r, &a); err != nil {
		httputil.WriteError(w, err)
		return
	}
	created, err := h.svc.CreateAsset(r.Context(), &a)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	entityID, err := entityIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.svc.GetAsset(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.svc.ListAssets(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if assets == nil {
		assets = []*models.Asset{}
	}
	httputil.WriteJSON(w, http.StatusOK, assets)
}

func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	entityID, err := entityIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	expected, err := expectedVersion(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var a models.Asset
	if err := decodeBody(r, &a); err != nil {
		httputil.WriteError(w, err)
		return
	}
	a.ID = entityID
	updated, err := h.svc.UpdateAsset(r.Context(), &a, expected)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	entityID, err := entityIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.DeleteAsset(r.Context(), entityID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Finance accounts

func (h *Handler) CreateFinanceAccount(w http.ResponseWriter, r *http.Request) {
	var f models.FinanceAccount
	if err := decodeBody(r, &f); err != nil {
		httputil.WriteError(w, err)
		return
	}
	created, err := h.svc.CreateFinanceAccount(r.Context(), &f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetFinanceAccount(w http.ResponseWriter, r *http.Request) {
	entityID, err := entityIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	f, err := h.svc.GetFinanceAccount(r.Context(), entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) ListFinanceAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListFinanceAccounts(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if accounts == nil {
		accounts = []*models.FinanceAccount{}
	}
	httputil.WriteJSON(w, http.StatusOK, accounts)
}

func (h *Handler) UpdateFinanceAccount(w http.ResponseWriter, r *http.Request) {
	entityID, err := entityIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	expected, err := expectedVersion(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var f models.FinanceAccount
	if err := decodeBody(r, &f); err != nil {
		httputil.WriteError(w, err)
		return
	}
	f.ID = entityID
	updated, err := h.svc.UpdateFinanceAccount(r.Context(), &f, expected)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteFinanceAccount(w http.ResponseWriter, r *http.Request) {
	entityID, err := entityIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.DeleteFinanceAccount(r.Context(), entityID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Audit reads

func (h *Handler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid limit"))
			return
		}
		limit = v
	}
	activity, err := h.svc.RecentActivity(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if activity == nil {
		activity = []service.ActivityEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, activity)
}

func (h *Handler) ActivitySummary(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid window"))
			return
		}
		window = d
	}
	buckets, err := h.svc.ActivitySummary(r.Context(), window)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if buckets == nil {
		buckets = []audit.ActivityBucket{}
	}
	httputil.WriteJSON(w, http.StatusOK, buckets)
}
