package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"duit/internal/core"
	"duit/internal/storage"
)

type transactionRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// parse validates the raw request fields into domain values. The
// amount accepts the grouped forms users type, like "200.000".
func (req transactionRequest) parse() (core.Kind, core.Money, string, core.Date, error) {
	kind := core.Kind(strings.ToLower(strings.TrimSpace(req.Type)))
	if err := kind.Validate(); err != nil {
		return "", core.Money{}, "", core.Date{}, err
	}

	units, err := core.ParseAmount(req.Amount)
	if err != nil {
		return "", core.Money{}, "", core.Date{}, err
	}

	date, err := core.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return "", core.Money{}, "", core.Date{}, err
	}

	return kind, core.Money{Units: units}, sanitizeInput(req.Description), date, nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	usr, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r, usr)
	case http.MethodPost:
		s.createTransaction(w, r, usr)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, usr core.User) {
	txs, err := s.transactions.List(r.Context(), usr.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "user_id", usr.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	payload := make([]transactionPayload, 0, len(txs))
	for _, tx := range txs {
		payload = append(payload, transaction(tx))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request, usr core.User) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	kind, amount, description, date, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.transactions.Create(r.Context(), usr.ID, kind, amount, description, date)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create transaction", "user_id", usr.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	s.invalidateAggregates()
	slog.InfoContext(r.Context(), "Transaction created",
		"transaction_id", tx.ID,
		"user_id", usr.ID,
		"transaction_kind", tx.Kind,
		"amount_units", tx.Amount.Units)
	writeJSON(w, http.StatusCreated, transaction(tx))
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	usr, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut:
		s.updateTransaction(w, r, usr, id)
	case http.MethodDelete:
		s.deleteTransaction(w, r, usr, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, usr core.User, id string) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	kind, amount, description, date, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx := core.Transaction{
		ID:          id,
		UserID:      usr.ID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		Date:        date,
	}
	if err := s.transactions.Update(r.Context(), tx); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update transaction",
			"transaction_id", id,
			"user_id", usr.ID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "failed to update transaction")
		return
	}

	s.invalidateAggregates()
	writeJSON(w, http.StatusOK, transaction(tx))
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, usr core.User, id string) {
	if err := s.transactions.Delete(r.Context(), usr.ID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete transaction",
			"transaction_id", id,
			"user_id", usr.ID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	s.invalidateAggregates()
	writeJSON(w, http.StatusNoContent, nil)
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidKind) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrEmptyDescription) ||
		errors.Is(err, core.ErrEmptyUserID)
}
