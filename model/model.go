package model

// Tenant is the top-level scoping entity.
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TransactionStatus is the lifecycle state of a transaction.
// The zero value means "any status" when used as a filter.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Valid reports whether s is a known status. The empty status is valid.
func (s TransactionStatus) Valid() bool {
	switch s {
	case "", StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Role is a user's role within a tenant.
// The zero value means "any role" when used as a filter.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role. The empty role is valid.
func (r Role) Valid() bool {
	switch r {
	case "", RoleAdmin, RoleUser:
		return true
	}
	return false
}

// Transaction is a single monetary movement for a tenant.
type Transaction struct {
	ID          string            `json:"id"`
	TenantID    string            `json:"tenantId"`
	Amount      int64             `json:"amount"`
	Description string            `json:"description"`
	Date        string            `json:"date"`
	Status      TransactionStatus `json:"status"`
}

// User is a member of a tenant.
type User struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Active   bool   `json:"active"`
}

// Page is the paginated envelope returned by listing endpoints.
type Page[T any] struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Data     []T `json:"data"`
}

// TransactionQuery parameterizes a transactions listing.
// StartDate and EndDate are ISO dates and inclusive; empty means unbounded.
type TransactionQuery struct {
	TenantID  string
	Page      int
	PageSize  int
	Status    TransactionStatus
	StartDate string
	EndDate   string
}

// UserQuery parameterizes a users listing.
type UserQuery struct {
	TenantID string
	Page     int
	PageSize int
	Role     Role
}
