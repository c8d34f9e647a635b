package tokens

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/scriptura-app/scriptura/internal/api"
	"github.com/scriptura-app/scriptura/internal/identity"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

type ConsumeRequest struct {
	Language string `json:"language" validate:"required"`
	Feature  string `json:"feature"`
}

type ConsumeResponse struct {
	Consumed int            `json:"consumed"`
	Balance  *BalanceStatus `json:"balance"`
}

type PurchaseRequest struct {
	Tokens int `json:"tokens" validate:"required,gt=0"`
}

// GetBalance returns the caller's current token balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrAuthenticationRequired)
		return
	}

	status, err := h.svc.GetBalance(r.Context(), p.Identity, p.Plan)
	if err != nil {
		slog.Error("fetching balance", "identity", p.Identity.Key(), "error", err)
		api.HandleError(w, api.ErrUpstreamFailure)
		return
	}

	api.JSON(w, http.StatusOK, status)
}

// Consume prices the requested operation and charges the caller's balance.
func (h *Handler) Consume(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrAuthenticationRequired)
		return
	}

	var req ConsumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrInvalidRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewInvalidRequestError(err.Error()))
		return
	}

	cost, err := h.svc.CostOf(req.Language)
	if err != nil {
		api.HandleError(w, api.ErrUnsupportedLanguage)
		return
	}

	balance, err := h.svc.Consume(r.Context(), p.Identity, p.Plan, cost)
	if err != nil {
		if errors.Is(err, ErrInsufficientTokens) {
			api.HandleError(w, api.ErrInsufficientTokens)
			return
		}
		slog.Error("consuming tokens", "identity", p.Identity.Key(), "cost", cost, "error", err)
		api.HandleError(w, api.ErrUpstreamFailure)
		return
	}

	api.JSON(w, http.StatusOK, ConsumeResponse{Consumed: cost, Balance: balance})
}

// Purchase credits purchased tokens to the caller's balance.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrAuthenticationRequired)
		return
	}

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrInvalidRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewInvalidRequestError(err.Error()))
		return
	}

	balance, err := h.svc.Purchase(r.Context(), p.Identity, p.Plan, req.Tokens)
	if err != nil {
		if errors.Is(err, ErrPurchaseNotAllowed) {
			api.HandleError(w, api.NewInvalidRequestError("current plan cannot purchase tokens"))
			return
		}
		slog.Error("purchasing tokens", "identity", p.Identity.Key(), "error", err)
		api.HandleError(w, api.ErrUpstreamFailure)
		return
	}

	api.JSON(w, http.StatusOK, balance)
}
