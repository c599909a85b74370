package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tallybook/tallybook/internal/shared"
)

// Handler wires HTTP endpoints for bill and customer management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers billing routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/bills", func(br chi.Router) {
		br.Get("/", h.listBills)
		br.Post("/", h.createBill)
		br.Get("/{id}", h.getBill)
		br.Patch("/{id}", h.updateBill)
		br.Delete("/{id}", h.deleteBill)
		br.Post("/{id}/restore", h.restoreBill)
	})
	r.Route("/customers", func(cr chi.Router) {
		cr.Get("/", h.listCustomers)
		cr.Post("/", h.createCustomer)
		cr.Get("/{id}", h.getCustomer)
		cr.Patch("/{id}", h.updateCustomer)
		cr.Delete("/{id}", h.deleteCustomer)
	})
}

type lineItemForm struct {
	Name      string   `json:"name" validate:"required"`
	UnitPrice float64  `json:"unitPrice" validate:"gte=0"`
	Quantity  float64  `json:"quantity" validate:"gte=0"`
	LineTotal *float64 `json:"lineTotal,omitempty"`
}

type adjustmentForm struct {
	Name   string  `json:"name" validate:"required"`
	Kind   string  `json:"kind" validate:"required,oneof=add subtract"`
	Amount float64 `json:"amount"`
}

type billForm struct {
	CustomerID   *uuid.UUID       `json:"customerId,omitempty"`
	CustomerName string           `json:"customerName" validate:"required"`
	BillDate     string           `json:"billDate" validate:"required"`
	LineItems    []lineItemForm   `json:"lineItems" validate:"required,min=1,dive"`
	Adjustments  []adjustmentForm `json:"adjustments,omitempty" validate:"dive"`
	Sum          *float64         `json:"sum,omitempty"`
	Debt         *float64         `json:"debt,omitempty"`
	PrePay       *float64         `json:"prePay,omitempty"`
	FinalResult  *float64         `json:"finalResult,omitempty"`
}

type customerForm struct {
	Name        string `json:"name" validate:"required"`
	DisplayName string `json:"displayName,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

func (h *Handler) createBill(w http.ResponseWriter, r *http.Request) {
	var form billForm
	if !h.decodeAndValidate(w, r, &form) {
		return
	}
	input, err := form.toCreateInput()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bill, err := h.service.CreateBill(r.Context(), input)
	if err != nil {
		h.respondError(w, "create bill", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, bill)
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	bill, err := h.service.GetBill(r.Context(), id)
	if err != nil {
		h.respondError(w, "get bill", err)
		return
	}
	h.respondJSON(w, http.StatusOK, bill)
}

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListBillsRequest{
		Search:  q.Get("search"),
		Page:    parseIntDefault(q.Get("page"), 1),
		PerPage: parseIntDefault(q.Get("perPage"), shared.DefaultPerPage),
	}
	if raw := strings.TrimSpace(q.Get("customerId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid customer id", http.StatusBadRequest)
			return
		}
		req.CustomerID = &id
	}
	if raw := strings.TrimSpace(q.Get("billDate")); raw != "" {
		d, err := parseBillDate(raw)
		if err != nil {
			http.Error(w, "invalid billDate parameter", http.StatusBadRequest)
			return
		}
		req.BillDate = &d
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		d, err := parseBillDate(raw)
		if err != nil {
			http.Error(w, "invalid from parameter", http.StatusBadRequest)
			return
		}
		req.From = &d
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		d, err := parseBillDate(raw)
		if err != nil {
			http.Error(w, "invalid to parameter", http.StatusBadRequest)
			return
		}
		req.To = &d
	}
	if raw := strings.TrimSpace(q.Get("isDeleted")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "invalid isDeleted parameter", http.StatusBadRequest)
			return
		}
		req.IsDeleted = v
	}

	bills, total, err := h.service.ListBills(r.Context(), req)
	if err != nil {
		h.respondError(w, "list bills", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results":    bills,
		"pagination": shared.NewPagination(req.Page, req.PerPage, total),
	})
}

func (h *Handler) updateBill(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var form billForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	input, err := form.toUpdateInput()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bill, err := h.service.UpdateBill(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update bill", err)
		return
	}
	h.respondJSON(w, http.StatusOK, bill)
}

func (h *Handler) deleteBill(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteBill(r.Context(), id); err != nil {
		h.respondError(w, "delete bill", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) restoreBill(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.RestoreBill(r.Context(), id); err != nil {
		h.respondError(w, "restore bill", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var form customerForm
	if !h.decodeAndValidate(w, r, &form) {
		return
	}
	customer, err := h.service.CreateCustomer(r.Context(), CreateCustomerInput{
		Name:        form.Name,
		DisplayName: form.DisplayName,
		PhoneNumber: form.PhoneNumber,
	})
	if err != nil {
		h.respondError(w, "create customer", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, customer)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		h.respondError(w, "get customer", err)
		return
	}
	h.respondJSON(w, http.StatusOK, customer)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListCustomersRequest{
		Search:  q.Get("search"),
		Page:    parseIntDefault(q.Get("page"), 1),
		PerPage: parseIntDefault(q.Get("perPage"), shared.DefaultPerPage),
	}

	customers, total, err := h.service.ListCustomers(r.Context(), req)
	if err != nil {
		h.respondError(w, "list customers", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results":    customers,
		"pagination": shared.NewPagination(req.Page, req.PerPage, total),
	})
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var form customerForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	input := UpdateCustomerInput{}
	if form.Name != "" {
		input.Name = &form.Name
	}
	if form.DisplayName != "" {
		input.DisplayName = &form.DisplayName
	}
	if form.PhoneNumber != "" {
		input.PhoneNumber = &form.PhoneNumber
	}

	customer, err := h.service.UpdateCustomer(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update customer", err)
		return
	}
	h.respondJSON(w, http.StatusOK, customer)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCustomer(r.Context(), id); err != nil {
		h.respondError(w, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			http.Error(w, "invalid field: "+fieldErrs[0].Field(), http.StatusBadRequest)
			return false
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, context string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, ErrAlreadyExists):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(context, slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (f billForm) toCreateInput() (CreateBillInput, error) {
	billDate, err := parseBillDate(f.BillDate)
	if err != nil {
		return CreateBillInput{}, err
	}
	input := CreateBillInput{
		CustomerID:   f.CustomerID,
		CustomerName: f.CustomerName,
		BillDate:     billDate,
		LineItems:    toLineItems(f.LineItems),
		Adjustments:  toAdjustments(f.Adjustments),
		Debt:         f.Debt,
		PrePay:       f.PrePay,
		FinalResult:  f.FinalResult,
	}
	if f.Sum != nil {
		input.Sum = *f.Sum
	}
	return input, nil
}

func (f billForm) toUpdateInput() (UpdateBillInput, error) {
	input := UpdateBillInput{
		CustomerID:  f.CustomerID,
		Sum:         f.Sum,
		Debt:        f.Debt,
		PrePay:      f.PrePay,
		FinalResult: f.FinalResult,
	}
	if f.CustomerName != "" {
		input.CustomerName = &f.CustomerName
	}
	if f.BillDate != "" {
		billDate, err := parseBillDate(f.BillDate)
		if err != nil {
			return UpdateBillInput{}, err
		}
		input.BillDate = &billDate
	}
	if f.LineItems != nil {
		input.LineItems = toLineItems(f.LineItems)
	}
	if f.Adjustments != nil {
		input.Adjustments = toAdjustments(f.Adjustments)
	}
	return input, nil
}

func toLineItems(forms []lineItemForm) []LineItem {
	items := make([]LineItem, 0, len(forms))
	for _, f := range forms {
		item := LineItem{Name: f.Name, UnitPrice: f.UnitPrice, Quantity: f.Quantity}
		if f.LineTotal != nil {
			item.LineTotal = *f.LineTotal
		}
		items = append(items, item)
	}
	return items
}

func toAdjustments(forms []adjustmentForm) []Adjustment {
	adjustments := make([]Adjustment, 0, len(forms))
	for _, f := range forms {
		adjustments = append(adjustments, Adjustment{
			Name:   f.Name,
			Kind:   AdjustmentKind(f.Kind),
			Amount: f.Amount,
		})
	}
	return adjustments
}

func parseBillDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("billing: invalid bill date")
}

func parseIntDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
