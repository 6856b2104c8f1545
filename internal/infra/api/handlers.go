package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"popup-shop/internal/domain"
	"popup-shop/internal/domain/model"
	"popup-shop/internal/infra/logging"
	"popup-shop/internal/usecase"
)

// ---- DTOs (instants are unix milliseconds) ----

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.UnixMilli()
	return &v
}

type shopResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Slug               string `json:"slug"`
	OwnerContact       string `json:"owner_contact"`
	PayoutAccount      string `json:"payout_account"`
	ActivationStatus   string `json:"activation_status"`
	VerificationStatus string `json:"verification_status"`
	ActivationPlan     string `json:"activation_plan,omitempty"`
	ActiveFrom         int64  `json:"active_from,omitempty"`
	ActiveUntil        int64  `json:"active_until,omitempty"`
	LastActivatedAt    *int64 `json:"last_activated_at,omitempty"`
	CreatedAt          int64  `json:"created_at"`
}

func toShopResponse(s *model.Shop) shopResponse {
	return shopResponse{
		ID:                 s.ID,
		Name:               s.Name,
		Slug:               s.Slug,
		OwnerContact:       s.OwnerContact,
		PayoutAccount:      s.PayoutAccount,
		ActivationStatus:   string(s.ActivationStatus),
		VerificationStatus: string(s.VerificationStatus),
		ActivationPlan:     string(s.ActivationPlan),
		ActiveFrom:         millis(s.ActiveFrom),
		ActiveUntil:        millis(s.ActiveUntil),
		LastActivatedAt:    millisPtr(s.LastActivatedAt),
		CreatedAt:          millis(s.CreatedAt),
	}
}

type activationResponse struct {
	ID                 string `json:"id"`
	ShopID             string `json:"shop_id"`
	Plan               string `json:"plan"`
	Amount             int64  `json:"amount"`
	Message            string `json:"message"`
	ActiveFrom         int64  `json:"active_from"`
	ActiveUntil        int64  `json:"active_until"`
	VerificationStatus string `json:"verification_status"`
	VerifiedAt         *int64 `json:"verified_at,omitempty"`
	CreatedAt          int64  `json:"created_at"`
}

func toActivationResponse(a *model.ShopActivation) activationResponse {
	return activationResponse{
		ID:                 a.ID,
		ShopID:             a.ShopID,
		Plan:               string(a.Plan),
		Amount:             a.Amount,
		Message:            a.Message,
		ActiveFrom:         millis(a.ActiveFrom),
		ActiveUntil:        millis(a.ActiveUntil),
		VerificationStatus: string(a.VerificationStatus),
		VerifiedAt:         millisPtr(a.VerifiedAt),
		CreatedAt:          millis(a.CreatedAt),
	}
}

type transactionResponse struct {
	ID         string                  `json:"id"`
	ShopID     string                  `json:"shop_id"`
	Amount     int64                   `json:"amount"`
	Reference  string                  `json:"reference"`
	Status     string                  `json:"status"`
	Items      []model.TransactionItem `json:"items"`
	CreatedAt  int64                   `json:"created_at"`
	VerifiedAt *int64                  `json:"verified_at,omitempty"`
}

func toTransactionResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:         t.ID,
		ShopID:     t.ShopID,
		Amount:     t.Amount,
		Reference:  t.Reference,
		Status:     string(t.Status),
		Items:      t.Items,
		CreatedAt:  millis(t.CreatedAt),
		VerifiedAt: millisPtr(t.VerifiedAt),
	}
}

func listLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return def
}

// ---- shops ----

type createShopRequest struct {
	Name          string `json:"name"`
	OwnerContact  string `json:"owner_contact"`
	PayoutAccount string `json:"payout_account"`
	Slug          string `json:"slug,omitempty"`
}

type createShopResponse struct {
	ShopID string `json:"shop_id"`
	Slug   string `json:"slug"`
}

func (s *Server) createShop(w http.ResponseWriter, r *http.Request) {
	var req createShopRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	shop, err := s.shopUC.Create(r.Context(), req.Name, req.OwnerContact, req.PayoutAccount, req.Slug)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createShopResponse{ShopID: shop.ID, Slug: shop.Slug})
}

func (s *Server) getShop(w http.ResponseWriter, r *http.Request) {
	shop, err := s.shopUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShopResponse(shop))
}

type admissionResponse struct {
	ShopID      string `json:"shop_id"`
	Slug        string `json:"slug"`
	Admissible  bool   `json:"admissible"`
	ActiveUntil int64  `json:"active_until,omitempty"`
}

func (s *Server) admission(w http.ResponseWriter, r *http.Request) {
	shop, ok, err := s.shopUC.Admission(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, admissionResponse{
		ShopID:      shop.ID,
		Slug:        shop.Slug,
		Admissible:  ok,
		ActiveUntil: millis(shop.ActiveUntil),
	})
}

// ---- activations ----

type activateRequest struct {
	Plan string `json:"plan"`
}

type activateResponse struct {
	ShopID             string `json:"shop_id"`
	ActivationID       string `json:"activation_id"`
	ActivationStatus   string `json:"activation_status"`
	VerificationStatus string `json:"verification_status"`
	Plan               string `json:"plan"`
	ActiveFrom         int64  `json:"active_from"`
	ActiveUntil        int64  `json:"active_until"`
	Amount             int64  `json:"amount"`
	Message            string `json:"message"`
}

func (s *Server) activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	plan, err := model.ParsePlan(req.Plan)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	shopID := chi.URLParam(r, "id")
	ctx := logging.WithShopID(r.Context(), shopID)
	res, err := s.actUC.Activate(ctx, shopID, plan)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activateResponse{
		ShopID:             res.ShopID,
		ActivationID:       res.ActivationID,
		ActivationStatus:   string(res.ActivationStatus),
		VerificationStatus: string(res.VerificationStatus),
		Plan:               string(res.Plan),
		ActiveFrom:         millis(res.ActiveFrom),
		ActiveUntil:        millis(res.ActiveUntil),
		Amount:             res.Amount,
		Message:            res.Message,
	})
}

func (s *Server) listActivations(w http.ResponseWriter, r *http.Request) {
	list, err := s.actUC.ListActivations(r.Context(), chi.URLParam(r, "id"), listLimit(r, 50))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := make([]activationResponse, 0, len(list))
	for _, a := range list {
		items = append(items, toActivationResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) verifyActivation(w http.ResponseWriter, r *http.Request) {
	act, err := s.actUC.VerifyActivation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivationResponse(act))
}

// ---- transactions ----

type createTransactionRequest struct {
	ShopID    string                  `json:"shop_id"`
	Amount    int64                   `json:"amount,omitempty"`
	Reference string                  `json:"reference,omitempty"`
	Items     []model.TransactionItem `json:"items"`
}

type createTransactionResponse struct {
	TransactionID string `json:"transaction_id"`
	Reference     string `json:"reference"`
	Amount        int64  `json:"amount"`
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	if strings.TrimSpace(req.ShopID) == "" || len(req.Items) == 0 {
		s.fail(w, r, domain.ErrInvalidInput)
		return
	}

	amount := req.Amount
	if amount == 0 {
		total, err := model.Total(req.Items)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		amount = total
	}
	if amount <= 0 {
		s.fail(w, r, domain.ErrInvalidInput)
		return
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		shop, err := s.shopUC.Get(ctx, req.ShopID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		reference, err = usecase.CheckoutReference(shop.Slug, s.now())
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}

	id, err := s.txUC.Create(ctx, req.ShopID, amount, reference, req.Items)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createTransactionResponse{TransactionID: id, Reference: reference, Amount: amount})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.txUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := s.txUC.ListByShop(r.Context(), chi.URLParam(r, "id"), listLimit(r, 100))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		items = append(items, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) verifyTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.txUC.Verify(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.txUC.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}
