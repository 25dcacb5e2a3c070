package apitest

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/jonwraymond/tenantview/model"
)

// GenerateTenants returns n tenants tenant-1..tenant-n named Company A, B, ...
func GenerateTenants(n int) []model.Tenant {
	out := make([]model.Tenant, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.Tenant{
			ID:   fmt.Sprintf("tenant-%d", i),
			Name: "Company " + companyLetter(i),
		})
	}
	return out
}

func companyLetter(i int) string {
	if i >= 1 && i <= 26 {
		return string(rune('A' + i - 1))
	}
	return fmt.Sprintf("%d", i)
}

// DateLayout is the ISO-8601 layout of transaction dates, with milliseconds.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

func rng(seed uint64, tenantID, kind string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tenantID + "/" + kind))
	// #nosec G404 -- deterministic fixture data, not security sensitive.
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}

// GenerateTransactions returns n transactions for tenantID dated within the
// six months before now, sorted newest first. The same inputs always yield
// the same data.
func GenerateTransactions(seed uint64, tenantID string, n int, now time.Time) []model.Transaction {
	r := rng(seed, tenantID, "transactions")
	statuses := []model.TransactionStatus{model.StatusPending, model.StatusCompleted, model.StatusFailed}
	from := now.AddDate(0, -6, 0)
	span := now.Sub(from)

	type dated struct {
		at  time.Time
		txn model.Transaction
	}
	rows := make([]dated, 0, n)
	for i := 1; i <= n; i++ {
		at := from.Add(time.Duration(r.Int64N(int64(span)))).UTC().Truncate(time.Millisecond)
		rows = append(rows, dated{at: at, txn: model.Transaction{
			ID:          fmt.Sprintf("%s-txn-%d", tenantID, i),
			TenantID:    tenantID,
			Amount:      r.Int64N(10000) + 10,
			Description: fmt.Sprintf("Transaction %d", i),
			Date:        at.Format(DateLayout),
			Status:      statuses[r.IntN(len(statuses))],
		}})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.After(rows[j].at) })

	out := make([]model.Transaction, len(rows))
	for i, row := range rows {
		out[i] = row.txn
	}
	return out
}

// GenerateUsers returns n users for tenantID.
func GenerateUsers(seed uint64, tenantID string, n int) []model.User {
	r := rng(seed, tenantID, "users")
	roles := []model.Role{model.RoleAdmin, model.RoleUser}

	out := make([]model.User, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.User{
			ID:       fmt.Sprintf("%s-user-%d", tenantID, i),
			TenantID: tenantID,
			Name:     fmt.Sprintf("User %d", i),
			Email:    fmt.Sprintf("user%d@%s.com", i, tenantID),
			Role:     roles[r.IntN(len(roles))],
			Active:   r.Float64() > 0.2,
		})
	}
	return out
}
