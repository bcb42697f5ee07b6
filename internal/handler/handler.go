package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/jmorales-gt/crediventa/internal/apperr"
	"github.com/jmorales-gt/crediventa/internal/middleware"
	"github.com/jmorales-gt/crediventa/internal/models"
	"github.com/jmorales-gt/crediventa/internal/service"
	"github.com/jmorales-gt/crediventa/internal/store"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type listResponse struct {
	Data any              `json:"data"`
	Meta service.ListMeta `json:"meta"`
}

// CreateAuthorization handles POST /authorizations.
func (h *Handler) CreateAuthorization(w http.ResponseWriter, r *http.Request) {
	var req service.CreateAuthorizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validationf("invalid request body: %v", err))
		return
	}
	if req.RequestedByID == 0 {
		if id, ok := middleware.UserID(r.Context()); ok {
			req.RequestedByID = id
		}
	}
	auth, err := h.svc.CreateAuthorization(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, auth)
}

// ListAuthorizations handles GET /authorizations.
func (h *Handler) ListAuthorizations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.AuthorizationFilter{
		Search:   q.Get("search"),
		SortBy:   q.Get("sort_by"),
		SortDesc: q.Get("order") == "desc",
		Page:     intParam(q.Get("page")),
		Limit:    intParam(q.Get("limit")),
	}
	if v := q.Get("status"); v != "" {
		st := models.AuthorizationStatus(v)
		f.Status = &st
	}
	f.BranchID = int64Param(q.Get("branch_id"))
	f.ClientID = int64Param(q.Get("client_id"))
	f.From = dateParam(q.Get("from"))
	f.To = dateParam(q.Get("to"))

	items, meta, err := h.svc.ListAuthorizations(r.Context(), f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, listResponse{Data: items, Meta: meta})
}

// ApproveAuthorization handles POST /authorizations/{id}/approve.
func (h *Handler) ApproveAuthorization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req service.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validationf("invalid request body: %v", err))
		return
	}
	req.AuthorizationID = id
	if req.AdminID == 0 {
		if uid, ok := middleware.UserID(r.Context()); ok {
			req.AdminID = uid
		}
	}
	credit, err := h.svc.ApproveAuthorization(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, credit)
}

// RejectAuthorization handles POST /authorizations/{id}/reject.
func (h *Handler) RejectAuthorization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req service.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validationf("invalid request body: %v", err))
		return
	}
	req.AuthorizationID = id
	if req.AdminID == 0 {
		if uid, ok := middleware.UserID(r.Context()); ok {
			req.AdminID = uid
		}
	}
	auth, err := h.svc.RejectAuthorization(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, auth)
}

// ListCredits handles GET /credits.
func (h *Handler) ListCredits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.CreditFilter{
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		SortDesc:  q.Get("order") == "desc",
		InArrears: q.Get("in_arrears") == "true",
		Overdue:   q.Get("overdue") == "true",
		Page:      intParam(q.Get("page")),
		Limit:     intParam(q.Get("limit")),
	}
	if v := q.Get("status"); v != "" {
		st := models.CreditStatus(v)
		f.Status = &st
	}
	if v := q.Get("plan_mode"); v != "" {
		pm := models.PlanMode(v)
		f.PlanMode = &pm
	}
	if v := q.Get("interest_kind"); v != "" {
		ik := models.InterestKind(v)
		f.InterestKind = &ik
	}
	f.BranchID = int64Param(q.Get("branch_id"))
	f.ClientID = int64Param(q.Get("client_id"))
	f.OperatorID = int64Param(q.Get("operator_id"))
	f.StartFrom = dateParam(q.Get("start_from"))
	f.StartTo = dateParam(q.Get("start_to"))
	f.NextDueFrom = dateParam(q.Get("next_due_from"))
	f.NextDueTo = dateParam(q.Get("next_due_to"))

	items, meta, err := h.svc.ListCredits(r.Context(), f)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, listResponse{Data: items, Meta: meta})
}

// GetCredit handles GET /credits/{id}.
func (h *Handler) GetCredit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	credit, err := h.svc.GetCredit(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, credit)
}

// ApplyPayment handles POST /credits/{id}/payments.
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req service.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validationf("invalid request body: %v", err))
		return
	}
	req.CreditID = id
	if req.OperatorID == 0 {
		if uid, ok := middleware.UserID(r.Context()); ok {
			req.OperatorID = uid
		}
	}
	payment, err := h.svc.ApplyPayment(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, payment)
}

// ReversePayment handles POST /installments/{id}/reverse.
func (h *Handler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var creds service.AdminCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.respondError(w, apperr.Validationf("invalid request body: %v", err))
		return
	}
	if err := h.svc.ReversePayment(r.Context(), id, creds); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "reversed"})
}

// DeleteCredit handles DELETE /credits/{id}.
func (h *Handler) DeleteCredit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var creds service.AdminCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.respondError(w, apperr.Validationf("invalid request body: %v", err))
		return
	}
	if err := h.svc.DeleteCredit(r.Context(), id, creds); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

// CloseCredit handles POST /credits/{id}/close.
func (h *Handler) CloseCredit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req struct {
		Status  models.CreditStatus `json:"status"`
		Comment string              `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperr.Validationf("invalid request body: %v", err))
		return
	}
	actorID, _ := middleware.UserID(r.Context())
	if err := h.svc.CloseCredit(r.Context(), id, req.Status, req.Comment, actorID); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("invalid id in path")
	}
	return id, nil
}

func intParam(v string) int {
	n, _ := strconv.Atoi(v)
	return n
}

func int64Param(v string) *int64 {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func dateParam(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	return &t
}
