package billing

import (
	"time"

	"github.com/google/uuid"
)

// AdjustmentKind enumerates the direction of a bill adjustment.
type AdjustmentKind string

const (
	AdjustmentAdd      AdjustmentKind = "add"
	AdjustmentSubtract AdjustmentKind = "subtract"
)

// LineItem is a single purchased item on a bill.
type LineItem struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  float64 `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

// Adjustment is an ad-hoc balance correction recorded on a bill. Two
// adjustment names carry special meaning for reconciliation (declared
// payment and carried-over debt); those names are configuration, not
// constants in this package.
type Adjustment struct {
	Name   string         `json:"name"`
	Kind   AdjustmentKind `json:"kind"`
	Amount float64        `json:"amount"`
}

// Bill is an immutable financial document. FinalResult is the outstanding
// debt the merchant declared when the bill closed; it is a running balance,
// not a per-bill charge.
type Bill struct {
	ID           uuid.UUID    `json:"id"`
	CustomerID   *uuid.UUID   `json:"customerId,omitempty"`
	CustomerName string       `json:"customerName"`
	BillDate     time.Time    `json:"billDate"`
	LineItems    []LineItem   `json:"lineItems"`
	Adjustments  []Adjustment `json:"adjustments,omitempty"`
	Sum          float64      `json:"sum"`
	Debt         *float64     `json:"debt,omitempty"`
	PrePay       *float64     `json:"prePay,omitempty"`
	FinalResult  *float64     `json:"finalResult,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	DeletedAt    *time.Time   `json:"deletedAt,omitempty"`
}

// FinalBalance returns the declared closing balance, defaulting to zero when
// the merchant never filled it in.
func (b Bill) FinalBalance() float64 {
	if b.FinalResult == nil {
		return 0
	}
	return *b.FinalResult
}

// Customer model.
type Customer struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	Slug        string     `json:"slug"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// BillFilter selects bills for the reporting engine and listings.
// DateEq and the DateFrom/DateTo range are mutually exclusive.
type BillFilter struct {
	CustomerID     *uuid.UUID
	DateEq         *time.Time
	DateFrom       *time.Time
	DateTo         *time.Time
	IncludeDeleted bool
}

// CreateBillInput carries the fields accepted when recording a bill.
type CreateBillInput struct {
	BillDate     time.Time
	CustomerID   *uuid.UUID
	CustomerName string
	LineItems    []LineItem
	Adjustments  []Adjustment
	Sum          float64
	Debt         *float64
	PrePay       *float64
	FinalResult  *float64
}

// UpdateBillInput carries the mutable fields of a bill.
type UpdateBillInput struct {
	BillDate     *time.Time
	CustomerID   *uuid.UUID
	CustomerName *string
	LineItems    []LineItem
	Adjustments  []Adjustment
	Sum          *float64
	Debt         *float64
	PrePay       *float64
	FinalResult  *float64
}

// CreateCustomerInput carries the fields accepted when registering a customer.
type CreateCustomerInput struct {
	Name        string
	DisplayName string
	PhoneNumber string
}

// UpdateCustomerInput carries the mutable fields of a customer.
type UpdateCustomerInput struct {
	Name        *string
	DisplayName *string
	PhoneNumber *string
}

// ListBillsRequest describes a paginated bill listing. BillDate and the
// From/To range are mutually exclusive, as in BillFilter.
type ListBillsRequest struct {
	Search     string
	CustomerID *uuid.UUID
	BillDate   *time.Time
	From       *time.Time
	To         *time.Time
	IsDeleted  bool
	Page       int
	PerPage    int
}

// ListCustomersRequest describes a paginated customer listing.
type ListCustomersRequest struct {
	Search  string
	Page    int
	PerPage int
}
