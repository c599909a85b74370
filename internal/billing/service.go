package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort defines data access methods for bills and customers.
type RepositoryPort interface {
	QueryBills(ctx context.Context, f BillFilter) ([]Bill, error)
	QueryCustomers(ctx context.Context) ([]Customer, error)

	CreateBill(ctx context.Context, b Bill) (*Bill, error)
	GetBill(ctx context.Context, id uuid.UUID) (*Bill, error)
	UpdateBill(ctx context.Context, b Bill) (*Bill, error)
	SoftDeleteBill(ctx context.Context, id uuid.UUID) error
	RestoreBill(ctx context.Context, id uuid.UUID) error
	ListBills(ctx context.Context, req ListBillsRequest) ([]Bill, int, error)

	CreateCustomer(ctx context.Context, c Customer) (*Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)
	UpdateCustomer(ctx context.Context, c Customer) (*Customer, error)
	SoftDeleteCustomer(ctx context.Context, id uuid.UUID) error
	ListCustomers(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
}

// ReportInvalidator is notified after every ledger mutation so cached
// financial reports are recomputed on the next read.
type ReportInvalidator interface {
	Bump(ctx context.Context) error
}

// Service handles bill and customer business logic.
type Service struct {
	repo    RepositoryPort
	reports ReportInvalidator
}

// NewService builds a Service instance. The invalidator may be nil.
func NewService(repo RepositoryPort, reports ReportInvalidator) *Service {
	return &Service{repo: repo, reports: reports}
}

// CreateBill validates and records a new bill.
func (s *Service) CreateBill(ctx context.Context, input CreateBillInput) (*Bill, error) {
	if input.BillDate.IsZero() {
		return nil, fmt.Errorf("%w: bill date required", ErrInvalidInput)
	}
	if input.CustomerName == "" {
		return nil, fmt.Errorf("%w: customer name required", ErrInvalidInput)
	}
	if len(input.LineItems) == 0 {
		return nil, fmt.Errorf("%w: at least one line item required", ErrInvalidInput)
	}
	items := make([]LineItem, len(input.LineItems))
	for i, item := range input.LineItems {
		if item.Quantity < 0 || item.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: line item quantity and price must not be negative", ErrInvalidInput)
		}
		if item.LineTotal == 0 {
			item.LineTotal = item.Quantity * item.UnitPrice
		}
		items[i] = item
	}
	bill := Bill{
		ID:           uuid.New(),
		CustomerID:   input.CustomerID,
		CustomerName: input.CustomerName,
		BillDate:     input.BillDate,
		LineItems:    items,
		Adjustments:  input.Adjustments,
		Sum:          input.Sum,
		Debt:         input.Debt,
		PrePay:       input.PrePay,
		FinalResult:  input.FinalResult,
	}
	created, err := s.repo.CreateBill(ctx, bill)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return created, nil
}

// UpdateBill applies a partial update to an existing bill.
func (s *Service) UpdateBill(ctx context.Context, id uuid.UUID, input UpdateBillInput) (*Bill, error) {
	bill, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill.DeletedAt != nil {
		return nil, fmt.Errorf("%w: cannot update a deleted bill", ErrInvalidInput)
	}
	if input.BillDate != nil {
		bill.BillDate = *input.BillDate
	}
	if input.CustomerID != nil {
		bill.CustomerID = input.CustomerID
	}
	if input.CustomerName != nil {
		bill.CustomerName = *input.CustomerName
	}
	if input.LineItems != nil {
		bill.LineItems = input.LineItems
	}
	if input.Adjustments != nil {
		bill.Adjustments = input.Adjustments
	}
	if input.Sum != nil {
		bill.Sum = *input.Sum
	}
	if input.Debt != nil {
		bill.Debt = input.Debt
	}
	if input.PrePay != nil {
		bill.PrePay = input.PrePay
	}
	if input.FinalResult != nil {
		bill.FinalResult = input.FinalResult
	}
	updated, err := s.repo.UpdateBill(ctx, *bill)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// GetBill returns one bill by id.
func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return s.repo.GetBill(ctx, id)
}

// DeleteBill soft-deletes a bill.
func (s *Service) DeleteBill(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDeleteBill(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RestoreBill reverses a soft delete.
func (s *Service) RestoreBill(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.RestoreBill(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ListBills returns a page of bills plus the total count.
func (s *Service) ListBills(ctx context.Context, req ListBillsRequest) ([]Bill, int, error) {
	if req.BillDate != nil && (req.From != nil || req.To != nil) {
		return nil, 0, fmt.Errorf("%w: billDate and date range are mutually exclusive", ErrInvalidInput)
	}
	return s.repo.ListBills(ctx, req)
}

// CreateCustomer registers a customer, deriving the slug from the name.
func (s *Service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*Customer, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: customer name required", ErrInvalidInput)
	}
	display := input.DisplayName
	if display == "" {
		display = input.Name
	}
	customer := Customer{
		ID:          uuid.New(),
		Name:        input.Name,
		DisplayName: display,
		PhoneNumber: input.PhoneNumber,
		Slug:        Slugify(input.Name),
	}
	return s.repo.CreateCustomer(ctx, customer)
}

// UpdateCustomer applies a partial update to a customer.
func (s *Service) UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*Customer, error) {
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer.DeletedAt != nil {
		return nil, fmt.Errorf("%w: cannot update a deleted customer", ErrInvalidInput)
	}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("%w: customer name required", ErrInvalidInput)
		}
		customer.Name = *input.Name
		customer.Slug = Slugify(*input.Name)
	}
	if input.DisplayName != nil {
		customer.DisplayName = *input.DisplayName
	}
	if input.PhoneNumber != nil {
		customer.PhoneNumber = *input.PhoneNumber
	}
	return s.repo.UpdateCustomer(ctx, *customer)
}

// GetCustomer returns one customer by id.
func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// DeleteCustomer soft-deletes a customer. Their bills stay in the ledger.
func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDeleteCustomer(ctx, id)
}

// ListCustomers returns a page of customers plus the total count.
func (s *Service) ListCustomers(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	return s.repo.ListCustomers(ctx, req)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.reports == nil {
		return
	}
	// Invalidation failure must not fail the mutation; stale reports expire
	// with the cache TTL anyway.
	bumpCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	_ = s.reports.Bump(bumpCtx)
}
