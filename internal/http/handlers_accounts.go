package http

import (
	"net/http"

	"ledger/internal/auth"
	"ledger/internal/services"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.ListAccounts(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	NewJSONResponse().
		Field("accounts", nonNil(summary.Accounts)).
		Field("totalBalance", summary.Total).
		Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	opening, err := req.InitialBalance.OptionalMoney()
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := s.svc.CreateAccount(r.Context(), auth.UserID(r.Context()), services.AccountInput{
		Name:           sanitizeInput(req.Name),
		Type:           sanitizeInput(req.Type),
		InitialBalance: opening,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Field("account", account).Write(w)
}

func (s *Server) handleAccountJournal(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.svc.AccountJournal(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	NewJSONResponse().Field("entries", nonNil(entries)).Write(w)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	amount, err := req.Amount.Money()
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.Transfer(r.Context(), auth.UserID(r.Context()), services.TransferInput{
		SourceAccountID:      sanitizeInput(req.SourceAccountID),
		DestinationAccountID: sanitizeInput(req.DestinationAccountID),
		Amount:               amount,
		Description:          sanitizeInput(req.Description),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Field("transfer", res.Transfer).
		Field("sourceAccount", res.Source).
		Field("destinationAccount", res.Destination).
		Write(w)
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := s.svc.ListTransfers(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	NewJSONResponse().Field("transfers", nonNil(transfers)).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	target, err := req.TargetAmount.Money()
	if err != nil {
		writeError(w, err)
		return
	}
	goal, err := s.svc.CreateSavingGoal(r.Context(), auth.UserID(r.Context()), services.GoalInput{
		Name:         sanitizeInput(req.Name),
		TargetAmount: target,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Field("goal", goal).Write(w)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.ListSavingGoals(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	NewJSONResponse().Field("goals", nonNil(goals)).Write(w)
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	amount, err := req.Amount.Money()
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.AllocateToGoal(r.Context(), auth.UserID(r.Context()), services.AllocationInput{
		GoalID:    r.PathValue("id"),
		AccountID: sanitizeInput(req.AccountID),
		Amount:    amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	NewJSONResponse().
		Field("goal", res.Goal).
		Field("account", res.Account).
		Write(w)
}
