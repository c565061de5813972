package http

import (
	"errors"
	"log/slog"
	"net/http"

	"piggybank/internal/core"
)

// piggyView is the wire representation of a piggy bank. Amount and goal are
// formatted to two decimal places, so 500.5 stored reads back as "500.50".
type piggyView struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Amount string `json:"amount"`
	Goal   string `json:"goal"`
	Need   string `json:"need"`
}

func newPiggyView(p core.PiggyBank) piggyView {
	return piggyView{
		ID:     p.ID,
		Title:  p.Title,
		Amount: core.FormatCents(p.AmountCents),
		Goal:   core.FormatCents(p.GoalCents),
		Need:   string(p.Need),
	}
}

// piggyResponse is the {success, piggy} envelope returned by write endpoints.
type piggyResponse struct {
	Success bool      `json:"success"`
	Piggy   piggyView `json:"piggy"`
}

func (s *Server) handleListPiggies(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		UnauthorizedError().Write(w)
		return
	}

	piggies, err := s.piggies.List(r.Context(), p.Username)
	if err != nil {
		slog.ErrorContext(r.Context(), "List piggy banks failed",
			"owner", p.Username, "error", err)
		InternalServerError().Write(w)
		return
	}

	views := make([]piggyView, 0, len(piggies))
	for _, piggy := range piggies {
		views = append(views, newPiggyView(piggy))
	}
	NewJSONResponse().Body(views).Write(w)
}

func (s *Server) handleCreatePiggy(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		UnauthorizedError().Write(w)
		return
	}

	input, ok := parsePiggyInput(w, r)
	if !ok {
		return
	}

	saved, err := s.piggies.Create(r.Context(), p.Username, input)
	if err != nil {
		s.writePiggyError(w, r, err)
		return
	}

	NewJSONResponse().Body(piggyResponse{Success: true, Piggy: newPiggyView(saved)}).Write(w)
}

func (s *Server) handleUpdatePiggy(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		UnauthorizedError().Write(w)
		return
	}

	id, ok := pathID(r)
	if !ok {
		ForbiddenError().Write(w)
		return
	}

	input, ok := parsePiggyInput(w, r)
	if !ok {
		return
	}

	updated, err := s.piggies.Update(r.Context(), id, p.Username, input)
	if err != nil {
		s.writePiggyError(w, r, err)
		return
	}

	NewJSONResponse().Body(piggyResponse{Success: true, Piggy: newPiggyView(updated)}).Write(w)
}

func (s *Server) handleDeletePiggy(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		UnauthorizedError().Write(w)
		return
	}

	id, ok := pathID(r)
	if !ok {
		ForbiddenError().Write(w)
		return
	}

	if err := s.piggies.Delete(r.Context(), id, p.Username); err != nil {
		s.writePiggyError(w, r, err)
		return
	}

	SuccessResponse("Piggy bank deleted").Write(w)
}

func parsePiggyInput(w http.ResponseWriter, r *http.Request) (core.PiggyInput, bool) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return core.PiggyInput{}, false
	}
	return core.PiggyInput{
		Title:  parser.Get("title"),
		Amount: parser.Get("amount"),
		Goal:   parser.Get("goal"),
		Need:   parser.Get("need"),
	}, true
}

// writePiggyError maps service errors to wire responses: validation failures
// carry their reason, a missing or foreign record is a uniform 403, anything
// else is a detail-free 500.
func (s *Server) writePiggyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isValidationError(err):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrPiggyNotFound):
		ForbiddenError().Write(w)
	default:
		slog.ErrorContext(r.Context(), "Piggy bank operation failed", "error", err)
		InternalServerError().Write(w)
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrEmptyTitle,
		core.ErrInvalidAmount,
		core.ErrInvalidGoal,
		core.ErrInvalidNeed,
		core.ErrNonPositive,
		core.ErrGoalBelowAmount,
		core.ErrAboveCeiling,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
