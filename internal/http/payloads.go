package http

import (
	"time"

	"duit/internal/core"
	"duit/internal/format"
	"duit/internal/stats"
)

// moneyPayload pairs the raw amount with the rendered Rupiah string so
// clients never reimplement the formatting.
type moneyPayload struct {
	Units   int64  `json:"units"`
	Display string `json:"display"`
}

func money(m core.Money) moneyPayload {
	return moneyPayload{Units: m.Units, Display: format.Rupiah(m.Units)}
}

type transactionPayload struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Type        string       `json:"type"`
	Amount      moneyPayload `json:"amount"`
	Description string       `json:"description"`
	Date        string       `json:"date"`
	CreatedAt   string       `json:"createdAt"`
}

func transaction(tx core.Transaction) transactionPayload {
	createdAt := ""
	if !tx.CreatedAt.IsZero() {
		createdAt = tx.CreatedAt.UTC().Format(time.RFC3339)
	}
	return transactionPayload{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        string(tx.Kind),
		Amount:      money(tx.Amount),
		Description: tx.Description,
		Date:        tx.Date.ISO(),
		CreatedAt:   createdAt,
	}
}

type statsPayload struct {
	MonthlyIncome  moneyPayload `json:"monthlyIncome"`
	MonthlyExpense moneyPayload `json:"monthlyExpense"`
	MonthlyBalance moneyPayload `json:"monthlyBalance"`
	YearlyExpense  moneyPayload `json:"yearlyExpense"`
}

func statsResponse(st stats.Stats) statsPayload {
	return statsPayload{
		MonthlyIncome:  money(st.MonthlyIncome),
		MonthlyExpense: money(st.MonthlyExpense),
		MonthlyBalance: money(st.MonthlyBalance),
		YearlyExpense:  money(st.YearlyExpense),
	}
}

type bucketPayload struct {
	Label   string       `json:"label"`
	Income  moneyPayload `json:"income"`
	Expense moneyPayload `json:"expense"`
	Net     moneyPayload `json:"net"`
}

type seriesPayload struct {
	Window  string          `json:"window"`
	Buckets []bucketPayload `json:"buckets"`
}

func seriesResponse(w stats.Window, buckets []stats.Bucket) seriesPayload {
	out := make([]bucketPayload, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, bucketPayload{
			Label:   b.Label,
			Income:  money(b.Income),
			Expense: money(b.Expense),
			Net:     money(b.Net),
		})
	}
	return seriesPayload{Window: string(w), Buckets: out}
}

type breakdownPayload struct {
	Window       string       `json:"window"`
	TotalIncome  moneyPayload `json:"totalIncome"`
	TotalExpense moneyPayload `json:"totalExpense"`
}

func breakdownResponse(w stats.Window, bd stats.Breakdown) breakdownPayload {
	return breakdownPayload{
		Window:       string(w),
		TotalIncome:  money(bd.TotalIncome),
		TotalExpense: money(bd.TotalExpense),
	}
}

type userPayload struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func user(u core.User) userPayload {
	createdAt := ""
	if !u.CreatedAt.IsZero() {
		createdAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return userPayload{
		ID:        u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: createdAt,
	}
}
