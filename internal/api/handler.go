package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/punchamoorthee/bazaarops/internal/models"
	"github.com/punchamoorthee/bazaarops/internal/service"
)

type Handler struct {
	svc        *service.Service
	adminToken string
}

func NewHandler(svc *service.Service, adminToken string) *Handler {
	return &Handler{svc: svc, adminToken: adminToken}
}

// NewRouter wires every engine endpoint. Health and metrics are open;
// everything else requires a bearer token.
func NewRouter(h *Handler, jwtSecret []byte) *mux.Router {
	r := mux.NewRouter()
	r.Use(DurationMiddleware)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthHandler).Methods("GET")

	authed := r.NewRoute().Subrouter()
	authed.Use(AuthMiddleware(jwtSecret))

	authed.HandleFunc("/draw/status", h.DrawStatusHandler).Methods("GET")
	authed.HandleFunc("/draw/daily", h.DailyDrawHandler).Methods("POST")
	authed.HandleFunc("/draw/bonus", h.BonusDrawHandler).Methods("POST")
	authed.HandleFunc("/draw/sacrificial/preview", h.SacrificialPreviewHandler).Methods("GET")
	authed.HandleFunc("/draw/sacrificial", h.SacrificialDrawHandler).Methods("POST")

	authed.HandleFunc("/cards/catalog", h.CatalogHandler).Methods("GET")
	authed.HandleFunc("/cards/categories", h.CategoriesHandler).Methods("GET")
	authed.HandleFunc("/cards/inventory", h.InventoryHandler).Methods("GET")
	authed.HandleFunc("/user/stats", h.StatsHandler).Methods("GET")

	authed.HandleFunc("/bazaar/search", h.SearchHandler).Methods("GET")
	authed.HandleFunc("/bazaar/propose", h.ProposeHandler).Methods("POST")
	authed.HandleFunc("/bazaar/accept/{id}", h.AcceptHandler).Methods("POST")
	authed.HandleFunc("/bazaar/decline/{id}", h.DeclineHandler).Methods("POST")
	authed.HandleFunc("/bazaar/cancel/{id}", h.CancelHandler).Methods("DELETE")
	authed.HandleFunc("/bazaar/requests", h.RequestsHandler).Methods("GET")

	authed.HandleFunc("/user/vault", h.VaultHandler).Methods("GET")
	authed.HandleFunc("/vault/deposit", h.DepositHandler).Methods("POST")
	authed.HandleFunc("/vault/withdraw", h.WithdrawHandler).Methods("POST")

	authed.HandleFunc("/admin/bonus", h.GrantBonusHandler).Methods("POST")

	return r
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "/health", http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) DrawStatusHandler(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.DrawStatus(r.Context(), callerID(r))
	if err != nil {
		h.respondServiceError(w, r, "/draw/status", err)
		return
	}
	h.respond(w, r, "/draw/status", http.StatusOK, status)
}

func (h *Handler) DailyDrawHandler(w http.ResponseWriter, r *http.Request) {
	h.handleDraw(w, r, "/draw/daily", "daily", h.svc.DailyDraw)
}

func (h *Handler) BonusDrawHandler(w http.ResponseWriter, r *http.Request) {
	h.handleDraw(w, r, "/draw/bonus", "bonus", h.svc.BonusDraw)
}

func (h *Handler) SacrificialDrawHandler(w http.ResponseWriter, r *http.Request) {
	h.handleDraw(w, r, "/draw/sacrificial", "sacrificial", h.svc.SacrificialDraw)
}

func (h *Handler) handleDraw(w http.ResponseWriter, r *http.Request, endpoint, kind string,
	draw func(ctx context.Context, userID string) (models.DrawResult, error)) {
	result, err := draw(r.Context(), callerID(r))
	if err != nil {
		h.respondServiceError(w, r, endpoint, err)
		return
	}
	drawsTotal.WithLabelValues(kind).Inc()
	upgradesTotal.Add(float64(len(result.Upgrades)))
	discoveriesTotal.Add(float64(len(result.Discoveries)))
	h.respond(w, r, endpoint, http.StatusOK, result)
}

func (h *Handler) SacrificialPreviewHandler(w http.ResponseWriter, r *http.Request) {
	preview, err := h.svc.SacrificialPreview(r.Context(), callerID(r))
	if err != nil {
		h.respondServiceError(w, r, "/draw/sacrificial/preview", err)
		return
	}
	h.respond(w, r, "/draw/sacrificial/preview", http.StatusOK, map[string]any{
		"sacrifices": preview,
	})
}

func (h *Handler) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "/cards/catalog", http.StatusOK, h.svc.Catalog().Cards())
}

func (h *Handler) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	type categoryDTO struct {
		Name   string  `json:"name"`
		Weight float64 `json:"weight"`
	}
	cats := h.svc.Catalog().Categories()
	out := make([]categoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryDTO{Name: c.Name, Weight: c.Weight})
	}
	h.respond(w, r, "/cards/categories", http.StatusOK, out)
}

func (h *Handler) InventoryHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Inventory(r.Context(), callerID(r))
	if err != nil {
		h.respondServiceError(w, r, "/cards/inventory", err)
		return
	}
	h.respond(w, r, "/cards/inventory", http.StatusOK, items)
}

func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), callerID(r))
	if err != nil {
		h.respondServiceError(w, r, "/user/stats", err)
		return
	}
	h.respond(w, r, "/user/stats", http.StatusOK, stats)
}

func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	params := models.SearchParams{
		Query:                r.URL.Query().Get("q"),
		Category:             r.URL.Query().Get("category"),
		IncludeNonDuplicates: r.URL.Query().Get("include_non_duplicates") == "true",
		Page:                 1,
		PerPage:              20,
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			h.respondError(w, r, "/bazaar/search", http.StatusBadRequest, "invalid page number")
			return
		}
		params.Page = page
	}
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > 100 {
			h.respondError(w, r, "/bazaar/search", http.StatusBadRequest, "per_page must be between 1 and 100")
			return
		}
		params.PerPage = size
	}

	result, err := h.svc.Search(r.Context(), callerID(r), params)
	if err != nil {
		h.respondServiceError(w, r, "/bazaar/search", err)
		return
	}
	h.respond(w, r, "/bazaar/search", http.StatusOK, result)
}

func (h *Handler) ProposeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ProposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, "/bazaar/propose", http.StatusBadRequest, "invalid request body")
		return
	}
	trade, err := h.svc.Propose(r.Context(), callerID(r), req)
	if err != nil {
		h.respondServiceError(w, r, "/bazaar/propose", err)
		return
	}
	h.respond(w, r, "/bazaar/propose", http.StatusCreated, trade)
}

func (h *Handler) AcceptHandler(w http.ResponseWriter, r *http.Request) {
	trade, err := h.svc.Accept(r.Context(), callerID(r), mux.Vars(r)["id"])
	if err != nil {
		h.respondServiceError(w, r, "/bazaar/accept", err)
		return
	}
	tradesResolvedTotal.WithLabelValues("accepted").Inc()
	h.respond(w, r, "/bazaar/accept", http.StatusOK, trade)
}

func (h *Handler) DeclineHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Decline(r.Context(), callerID(r), mux.Vars(r)["id"]); err != nil {
		h.respondServiceError(w, r, "/bazaar/decline", err)
		return
	}
	tradesResolvedTotal.WithLabelValues("declined").Inc()
	h.respond(w, r, "/bazaar/decline", http.StatusOK, map[string]string{"status": "declined"})
}

func (h *Handler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(r.Context(), callerID(r), mux.Vars(r)["id"]); err != nil {
		h.respondServiceError(w, r, "/bazaar/cancel", err)
		return
	}
	tradesResolvedTotal.WithLabelValues("cancelled").Inc()
	h.respond(w, r, "/bazaar/cancel", http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) RequestsHandler(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.Requests(r.Context(), callerID(r))
	if err != nil {
		h.respondServiceError(w, r, "/bazaar/requests", err)
		return
	}
	h.respond(w, r, "/bazaar/requests", http.StatusOK, requests)
}

func (h *Handler) VaultHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Vault(r.Context(), callerID(r))
	if err != nil {
		h.respondServiceError(w, r, "/user/vault", err)
		return
	}
	h.respond(w, r, "/user/vault", http.StatusOK, items)
}

func (h *Handler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	h.handleVaultMove(w, r, "/vault/deposit", h.svc.Deposit)
}

func (h *Handler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.handleVaultMove(w, r, "/vault/withdraw", h.svc.Withdraw)
}

func (h *Handler) handleVaultMove(w http.ResponseWriter, r *http.Request, endpoint string,
	move func(ctx context.Context, userID string, card models.CardRef) error) {
	var req models.VaultMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, endpoint, http.StatusBadRequest, "invalid request body")
		return
	}
	ref := models.CardRef{Category: req.Category, Name: req.Name}
	if err := move(r.Context(), callerID(r), ref); err != nil {
		h.respondServiceError(w, r, endpoint, err)
		return
	}
	h.respond(w, r, endpoint, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GrantBonusHandler(w http.ResponseWriter, r *http.Request) {
	if h.adminToken == "" || r.Header.Get("X-Admin-Token") != h.adminToken {
		h.respondError(w, r, "/admin/bonus", http.StatusForbidden, "admin token required")
		return
	}
	var req models.BonusGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, "/admin/bonus", http.StatusBadRequest, "invalid request body")
		return
	}
	balance, err := h.svc.GrantBonus(r.Context(), req.UserID, req.Amount)
	if err != nil {
		h.respondServiceError(w, r, "/admin/bonus", err)
		return
	}
	h.respond(w, r, "/admin/bonus", http.StatusOK, map[string]any{
		"user_id": req.UserID,
		"balance": balance,
	})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		h.respondError(w, r, endpoint, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrRateLimited):
		h.respondError(w, r, endpoint, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrQuotaExceeded):
		h.respondError(w, r, endpoint, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrNotFound):
		h.respondError(w, r, endpoint, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrConflict):
		h.respondError(w, r, endpoint, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNegativeCount):
		zap.L().Error("inventory balance violation", zap.String("endpoint", endpoint), zap.Error(err))
		h.respondError(w, r, endpoint, http.StatusInternalServerError, "internal inventory error")
	default:
		zap.L().Error("unhandled service error", zap.String("endpoint", endpoint), zap.Error(err))
		h.respondError(w, r, endpoint, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, endpoint string, code int, payload any) {
	httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(code)).Inc()
	writeJSON(w, code, payload)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, endpoint string, code int, detail string) {
	httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(code)).Inc()
	writeJSON(w, code, map[string]string{"detail": detail})
}

func respondError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("failed to marshal response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}
