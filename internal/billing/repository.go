package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("billing: not found")
	// ErrAlreadyExists indicates a uniqueness conflict (customer slug).
	ErrAlreadyExists = errors.New("billing: already exists")
	// ErrInvalidInput indicates a request that failed business validation.
	ErrInvalidInput = errors.New("billing: invalid input")
)

// Repository provides PostgreSQL backed persistence for bills and customers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const billColumns = `id, customer_id, customer_name, bill_date, line_items, adjustments,
	bill_sum, debt, pre_pay, final_result, created_at, updated_at, deleted_at`

// QueryBills returns bills matching the filter ordered by bill date then
// insertion time ascending. The reporting engine depends on this ordering.
func (r *Repository) QueryBills(ctx context.Context, f BillFilter) ([]Bill, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if f.CustomerID != nil {
		conds = append(conds, "customer_id = "+arg(*f.CustomerID))
	}
	if f.DateEq != nil {
		conds = append(conds, "bill_date = "+arg(*f.DateEq))
	}
	if f.DateFrom != nil {
		conds = append(conds, "bill_date >= "+arg(*f.DateFrom))
	}
	if f.DateTo != nil {
		conds = append(conds, "bill_date <= "+arg(*f.DateTo))
	}

	query := "SELECT " + billColumns + " FROM bills"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY bill_date ASC, created_at ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBills(rows)
}

// QueryCustomers returns all non-deleted customers.
func (r *Repository) QueryCustomers(ctx context.Context) ([]Customer, error) {
	const query = `SELECT id, name, display_name, phone_number, slug, created_at, updated_at, deleted_at
		FROM customers WHERE deleted_at IS NULL ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCustomers(rows)
}

// CreateBill inserts a bill and returns it with timestamps populated.
func (r *Repository) CreateBill(ctx context.Context, b Bill) (*Bill, error) {
	items, err := json.Marshal(b.LineItems)
	if err != nil {
		return nil, err
	}
	adjs, err := json.Marshal(b.Adjustments)
	if err != nil {
		return nil, err
	}
	const query = `
		INSERT INTO bills (id, customer_id, customer_name, name_search, bill_date, line_items, adjustments,
			bill_sum, debt, pre_pay, final_result, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at`
	err = r.pool.QueryRow(ctx, query,
		b.ID,
		optionalUUID(b.CustomerID),
		b.CustomerName,
		Fold(b.CustomerName),
		b.BillDate,
		items,
		adjs,
		b.Sum,
		optionalFloat(b.Debt),
		optionalFloat(b.PrePay),
		optionalFloat(b.FinalResult),
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBill fetches one bill by id, including soft-deleted ones.
func (r *Repository) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	query := "SELECT " + billColumns + " FROM bills WHERE id = $1"
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bills, err := scanBills(rows)
	if err != nil {
		return nil, err
	}
	if len(bills) == 0 {
		return nil, ErrNotFound
	}
	return &bills[0], nil
}

// UpdateBill replaces the mutable columns of a bill.
func (r *Repository) UpdateBill(ctx context.Context, b Bill) (*Bill, error) {
	items, err := json.Marshal(b.LineItems)
	if err != nil {
		return nil, err
	}
	adjs, err := json.Marshal(b.Adjustments)
	if err != nil {
		return nil, err
	}
	const query = `
		UPDATE bills SET customer_id = $2, customer_name = $3, name_search = $4, bill_date = $5,
			line_items = $6, adjustments = $7, bill_sum = $8, debt = $9,
			pre_pay = $10, final_result = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err = r.pool.QueryRow(ctx, query,
		b.ID,
		optionalUUID(b.CustomerID),
		b.CustomerName,
		Fold(b.CustomerName),
		b.BillDate,
		items,
		adjs,
		b.Sum,
		optionalFloat(b.Debt),
		optionalFloat(b.PrePay),
		optionalFloat(b.FinalResult),
	).Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// SoftDeleteBill marks a bill deleted without removing the row.
func (r *Repository) SoftDeleteBill(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE bills SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RestoreBill clears the soft-delete marker.
func (r *Repository) RestoreBill(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE bills SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBills returns a page of bills for the admin listing, newest first.
func (r *Repository) ListBills(ctx context.Context, req ListBillsRequest) ([]Bill, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if req.IsDeleted {
		conds = append(conds, "deleted_at IS NOT NULL")
	} else {
		conds = append(conds, "deleted_at IS NULL")
	}
	if req.Search != "" {
		conds = append(conds, "name_search LIKE "+arg("%"+Fold(req.Search)+"%"))
	}
	if req.CustomerID != nil {
		conds = append(conds, "customer_id = "+arg(*req.CustomerID))
	}
	if req.BillDate != nil {
		conds = append(conds, "bill_date = "+arg(*req.BillDate))
	}
	if req.From != nil {
		conds = append(conds, "bill_date >= "+arg(*req.From))
	}
	if req.To != nil {
		conds = append(conds, "bill_date <= "+arg(*req.To))
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM bills"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	query := "SELECT " + billColumns + " FROM bills" + where +
		" ORDER BY created_at DESC" +
		" LIMIT " + arg(perPage) + " OFFSET " + arg((page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	bills, err := scanBills(rows)
	if err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

// CreateCustomer inserts a customer. Slug collisions map to ErrAlreadyExists.
func (r *Repository) CreateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	const query = `
		INSERT INTO customers (id, name, display_name, phone_number, slug, name_search, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, c.ID, c.Name, c.DisplayName, c.PhoneNumber, c.Slug, Fold(c.Name)).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return &c, nil
}

// GetCustomer fetches one customer by id.
func (r *Repository) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	const query = `SELECT id, name, display_name, phone_number, slug, created_at, updated_at, deleted_at
		FROM customers WHERE id = $1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	customers, err := scanCustomers(rows)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, ErrNotFound
	}
	return &customers[0], nil
}

// UpdateCustomer replaces the mutable columns of a customer.
func (r *Repository) UpdateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	const query = `
		UPDATE customers SET name = $2, display_name = $3, phone_number = $4, slug = $5, name_search = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query, c.ID, c.Name, c.DisplayName, c.PhoneNumber, c.Slug, Fold(c.Name)).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return &c, nil
}

// SoftDeleteCustomer marks a customer deleted.
func (r *Repository) SoftDeleteCustomer(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCustomers returns a page of customers matching the folded name search.
func (r *Repository) ListCustomers(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	var (
		conds = []string{"deleted_at IS NULL"}
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if req.Search != "" {
		conds = append(conds, "name_search LIKE "+arg("%"+Fold(req.Search)+"%"))
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	query := `SELECT id, name, display_name, phone_number, slug, created_at, updated_at, deleted_at
		FROM customers` + where + " ORDER BY name ASC LIMIT " + arg(perPage) + " OFFSET " + arg((page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	customers, err := scanCustomers(rows)
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func scanBills(rows pgx.Rows) ([]Bill, error) {
	var bills []Bill
	for rows.Next() {
		var (
			b          Bill
			customerID pgtype.UUID
			items      []byte
			adjs       []byte
			debt       pgtype.Float8
			prePay     pgtype.Float8
			final      pgtype.Float8
			deletedAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&b.ID, &customerID, &b.CustomerName, &b.BillDate, &items, &adjs,
			&b.Sum, &debt, &prePay, &final, &b.CreatedAt, &b.UpdatedAt, &deletedAt); err != nil {
			return nil, err
		}
		if customerID.Valid {
			id := uuid.UUID(customerID.Bytes)
			b.CustomerID = &id
		}
		if len(items) > 0 {
			if err := json.Unmarshal(items, &b.LineItems); err != nil {
				return nil, fmt.Errorf("billing: decode line items: %w", err)
			}
		}
		if len(adjs) > 0 {
			if err := json.Unmarshal(adjs, &b.Adjustments); err != nil {
				return nil, fmt.Errorf("billing: decode adjustments: %w", err)
			}
		}
		b.Debt = floatPtr(debt)
		b.PrePay = floatPtr(prePay)
		b.FinalResult = floatPtr(final)
		if deletedAt.Valid {
			t := deletedAt.Time
			b.DeletedAt = &t
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func scanCustomers(rows pgx.Rows) ([]Customer, error) {
	var customers []Customer
	for rows.Next() {
		var (
			c         Customer
			phone     pgtype.Text
			deletedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.DisplayName, &phone, &c.Slug, &c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
			return nil, err
		}
		if phone.Valid {
			c.PhoneNumber = phone.String
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			c.DeletedAt = &t
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func optionalUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func optionalFloat(v *float64) pgtype.Float8 {
	if v == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *v, Valid: true}
}

func floatPtr(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
