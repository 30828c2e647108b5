// Package plans exposes the plan manager over HTTP.
package plans

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/dayplan/core/dayplan"
	"github.com/kilianp07/dayplan/core/logger"
	"github.com/kilianp07/dayplan/core/model"
	"github.com/kilianp07/dayplan/core/planner"
	"github.com/kilianp07/dayplan/core/store"
	"github.com/kilianp07/dayplan/pkg/export"
)

// GenerateBody is the JSON body of POST /api/plans.
type GenerateBody struct {
	UserID string `json:"user_id"`
	// Date is optional, formatted as YYYY-MM-DD.
	Date      string    `json:"date"`
	WakeTime  time.Time `json:"wake_time"`
	SleepTime time.Time `json:"sleep_time"`
	Energy    string    `json:"energy_state"`
	Location  string    `json:"location"`
	Replace   bool      `json:"replace"`
}

// SkipBody is the optional JSON body of the skip endpoint.
type SkipBody struct {
	Reason string `json:"reason"`
}

// DegradeResponse summarizes a degradation.
type DegradeResponse struct {
	Plan    model.DailyPlan `json:"plan"`
	Dropped int             `json:"dropped"`
	Deleted int             `json:"deleted"`
	Created int             `json:"created"`
}

// BehindResponse is the JSON form of dayplan.BehindStatus.
type BehindResponse struct {
	PlanID         string           `json:"plan_id"`
	Behind         bool             `json:"behind"`
	Current        *model.TimeBlock `json:"current,omitempty"`
	OverdueMinutes int              `json:"overdue_minutes"`
	CheckedAt      time.Time        `json:"checked_at"`
}

// Handler serves the /api/plans routes.
type Handler struct {
	mgr   *dayplan.Manager
	token string
	log   logger.Logger
	mux   *http.ServeMux
}

// NewHandler returns the plan API. Requests must include an Authorization
// header with "Bearer <token>" when token is non-empty.
func NewHandler(mgr *dayplan.Manager, token string, log logger.Logger) *Handler {
	h := &Handler{mgr: mgr, token: token, log: logger.OrNop(log), mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /api/plans", h.generate)
	h.mux.HandleFunc("GET /api/plans", h.list)
	h.mux.HandleFunc("GET /api/plans/{id}", h.get)
	h.mux.HandleFunc("POST /api/plans/{id}/degrade", h.degrade)
	h.mux.HandleFunc("GET /api/plans/{id}/behind", h.behind)
	h.mux.HandleFunc("POST /api/plans/{id}/blocks/{blockID}/complete", h.complete)
	h.mux.HandleFunc("POST /api/plans/{id}/blocks/{blockID}/skip", h.skip)
	h.mux.HandleFunc("GET /api/plans/{id}/export", h.export)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && r.Header.Get("Authorization") != "Bearer "+h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var body GenerateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("invalid body: %v", err), http.StatusBadRequest)
		return
	}
	req := dayplan.GenerateRequest{
		UserID:   body.UserID,
		Wake:     body.WakeTime,
		Sleep:    body.SleepTime,
		Energy:   model.EnergyState(body.Energy),
		Location: body.Location,
		Replace:  body.Replace,
	}
	if body.Date != "" {
		d, err := time.ParseInLocation(model.DateLayout, body.Date, body.WakeTime.Location())
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid date: %v", err), http.StatusBadRequest)
			return
		}
		req.Date = d
	}
	plan, err := h.mgr.GeneratePlan(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{UserID: q.Get("user_id")}
	if s := q.Get("date"); s != "" {
		d, err := time.Parse(model.DateLayout, s)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid date: %v", err), http.StatusBadRequest)
			return
		}
		f.Date = d
	}
	if s := q.Get("status"); s != "" {
		st, err := model.ParsePlanStatus(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.Status = st
	}
	plans, err := h.mgr.ListPlans(r.Context(), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	if plans == nil {
		plans = []model.DailyPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.mgr.Plan(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) degrade(w http.ResponseWriter, r *http.Request) {
	res, err := h.mgr.DegradePlan(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DegradeResponse{
		Plan:    res.Plan,
		Dropped: len(res.Dropped),
		Deleted: len(res.Deleted),
		Created: len(res.Created),
	})
}

func (h *Handler) behind(w http.ResponseWriter, r *http.Request) {
	st, err := h.mgr.CheckBehind(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BehindResponse{
		PlanID:         st.PlanID,
		Behind:         st.Behind,
		Current:        st.Current,
		OverdueMinutes: int(st.Overdue / time.Minute),
		CheckedAt:      st.CheckedAt,
	})
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	b, err := h.mgr.CompleteBlock(r.Context(), r.PathValue("id"), r.PathValue("blockID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) skip(w http.ResponseWriter, r *http.Request) {
	var body SkipBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, fmt.Sprintf("invalid body: %v", err), http.StatusBadRequest)
		return
	}
	b, err := h.mgr.SkipBlock(r.Context(), r.PathValue("id"), r.PathValue("blockID"), body.Reason)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	plan, err := h.mgr.Plan(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatJSON
	}
	switch format {
	case export.FormatJSON, export.FormatCSV, export.FormatHTML:
	default:
		http.Error(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	if err := export.Write(w, format, plan); err != nil {
		h.log.Errorf("export plan %s as %s: %v", plan.ID, format, err)
	}
}

// fail maps domain errors to HTTP status codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, planner.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, dayplan.ErrBlockNotFound):
		code = http.StatusNotFound
	case errors.Is(err, store.ErrPlanExists), errors.Is(err, planner.ErrPlanNotActive),
		errors.Is(err, dayplan.ErrInvalidTransition):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		h.log.Errorf("plan api: %v", err)
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
