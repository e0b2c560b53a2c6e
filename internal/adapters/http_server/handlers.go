package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"tailtown/internal/app"
	"tailtown/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	B *app.BookingService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/availability", h.getAvailability)
	s.mux.Post("/v1/reservations", h.postReservation)
	s.mux.Get("/v1/reservations/conflicts", h.getConflicts)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// parseStayTime accepts RFC3339 or a bare date; bare dates mean midnight UTC,
// which keeps stay windows half-open on day boundaries.
func parseStayTime(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func parseWindow(r *http.Request) (start, end time.Time, ok bool) {
	start, ok = parseStayTime(r.URL.Query().Get("start"))
	if !ok {
		return
	}
	end, ok = parseStayTime(r.URL.Query().Get("end"))
	return
}

type availabilityResponse struct {
	Tier      string    `json:"tier"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
	SuiteID   *string   `json:"suite_id,omitempty"`
	SuiteName *string   `json:"suite_name,omitempty"`
}

func (h *Handlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseWindow(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid window", "start and end must be RFC3339 timestamps or YYYY-MM-DD dates")
		return
	}
	tier := r.URL.Query().Get("tier")

	view, err := h.Q.Availability(r.Context(), tier, start, end)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInterval) {
			writeProblem(w, http.StatusBadRequest, "Invalid interval", "start must be before end")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal error", "availability lookup failed")
		return
	}

	resp := availabilityResponse{
		Tier: view.Tier, Start: view.StartAt, End: view.EndAt,
		Available: view.Available, SuiteID: view.SuiteID, SuiteName: view.SuiteName,
	}
	etag, body := calcETagAndBody(resp)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write availability body")
	}
}

type reservationRequest struct {
	PetID      string `json:"pet_id"`
	CustomerID string `json:"customer_id"`
	Tier       string `json:"tier"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

type reservationResponse struct {
	ID      string    `json:"id"`
	SuiteID string    `json:"suite_id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Status  string    `json:"status"`
}

func (h *Handlers) postReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "request body must be JSON")
		return
	}
	start, ok := parseStayTime(req.Start)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid window", "start must be RFC3339 or YYYY-MM-DD")
		return
	}
	end, ok := parseStayTime(req.End)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid window", "end must be RFC3339 or YYYY-MM-DD")
		return
	}

	res, err := h.B.Book(r.Context(), app.BookingRequest{
		PetID:      req.PetID,
		CustomerID: req.CustomerID,
		Tier:       req.Tier,
		StartAt:    start,
		EndAt:      end,
	})
	switch {
	case errors.Is(err, domain.ErrInvalidInterval):
		writeProblem(w, http.StatusBadRequest, "Invalid interval", "start must be before end")
		return
	case errors.Is(err, app.ErrNoCapacity):
		// expected business outcome, for lost races too — never a 500
		writeProblem(w, http.StatusConflict, "No suites available", "no suites available for these dates")
		return
	case err != nil:
		log.Error().Err(err).Msg("booking failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "booking failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(reservationResponse{
		ID:      res.ID,
		SuiteID: *res.SuiteID,
		Start:   res.StartAt,
		End:     res.EndAt,
		Status:  string(res.Status),
	}); err != nil {
		log.Error().Err(err).Msg("failed to write reservation body")
	}
}

type conflictItem struct {
	SuiteID     string    `json:"suite_id"`
	FirstID     string    `json:"first_id"`
	SecondID    string    `json:"second_id"`
	FirstStart  time.Time `json:"first_start"`
	FirstEnd    time.Time `json:"first_end"`
	SecondStart time.Time `json:"second_start"`
	SecondEnd   time.Time `json:"second_end"`
}

type conflictsResponse struct {
	Start time.Time      `json:"start"`
	End   time.Time      `json:"end"`
	Items []conflictItem `json:"items"`
}

func (h *Handlers) getConflicts(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseWindow(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid window", "start and end must be RFC3339 timestamps or YYYY-MM-DD dates")
		return
	}

	report, err := h.Q.Conflicts(r.Context(), start, end)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInterval) {
			writeProblem(w, http.StatusBadRequest, "Invalid interval", "start must be before end")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal error", "conflict audit failed")
		return
	}

	resp := conflictsResponse{Start: report.StartAt, End: report.EndAt, Items: []conflictItem{}}
	for _, c := range report.Items {
		resp.Items = append(resp.Items, conflictItem{
			SuiteID:     c.SuiteID,
			FirstID:     c.FirstID,
			SecondID:    c.SecondID,
			FirstStart:  c.FirstSpan[0],
			FirstEnd:    c.FirstSpan[1],
			SecondStart: c.SecondSpan[0],
			SecondEnd:   c.SecondSpan[1],
		})
	}

	etag, body := calcETagAndBody(resp)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write conflicts body")
	}
}
