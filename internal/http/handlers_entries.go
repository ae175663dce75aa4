package http

import (
	"net/http"
	"strings"

	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/services"
)

// entryDate defaults a missing date to today on create. An update must name
// the date explicitly so the stored one is never replaced by the server clock.
func (s *Server) entryDate(raw string, create bool) (core.Date, error) {
	if create {
		return parseDateOr(raw, s.now())
	}
	if strings.TrimSpace(raw) == "" {
		return core.Date{}, errMissingDate
	}
	return core.ParseDate(raw)
}

func (s *Server) expenseInput(w http.ResponseWriter, r *http.Request, create bool) (services.ExpenseInput, error) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return services.ExpenseInput{}, err
	}
	amount, err := req.Amount.Money()
	if err != nil {
		return services.ExpenseInput{}, err
	}
	date, err := s.entryDate(req.Date, create)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	return services.ExpenseInput{
		AccountID:   sanitizeInput(req.AccountID),
		Amount:      amount,
		Date:        date,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
	}, nil
}

func (s *Server) incomeInput(w http.ResponseWriter, r *http.Request, create bool) (services.IncomeInput, error) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return services.IncomeInput{}, err
	}
	amount, err := req.Amount.Money()
	if err != nil {
		return services.IncomeInput{}, err
	}
	date, err := s.entryDate(req.Date, create)
	if err != nil {
		return services.IncomeInput{}, err
	}
	return services.IncomeInput{
		AccountID:   sanitizeInput(req.AccountID),
		Amount:      amount,
		Date:        date,
		Source:      sanitizeInput(req.Source),
		Description: sanitizeInput(req.Description),
	}, nil
}

func writeExpense(w http.ResponseWriter, status int, res services.ExpenseResult) {
	NewJSONResponse().
		Status(status).
		Field("expense", res.Expense).
		Field("account", res.Account).
		Write(w)
}

func writeIncome(w http.ResponseWriter, status int, res services.IncomeResult) {
	b := NewJSONResponse().
		Status(status).
		Field("income", res.Income).
		Field("account", res.Account)
	if res.Overdrawn {
		b.Field("overdrawn", true)
	}
	b.Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := s.expenseInput(w, r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.CreateExpense(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeExpense(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := s.expenseInput(w, r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.UpdateExpense(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeExpense(w, http.StatusOK, res)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.DeleteExpense(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeExpense(w, http.StatusOK, res)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.ListExpenses(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	NewJSONResponse().Field("expenses", nonNil(expenses)).Write(w)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	in, err := s.incomeInput(w, r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.CreateIncome(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeIncome(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	in, err := s.incomeInput(w, r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.UpdateIncome(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeIncome(w, http.StatusOK, res)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.DeleteIncome(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeIncome(w, http.StatusOK, res)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.svc.ListIncomes(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	NewJSONResponse().Field("incomes", nonNil(incomes)).Write(w)
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
