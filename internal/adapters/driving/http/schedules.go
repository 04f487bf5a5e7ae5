package http

import "net/http"

// UpdateScheduleRequest toggles a recurring schedule
type UpdateScheduleRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.scheduleService.ListSchedules(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req UpdateScheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	schedule, err := s.scheduleService.SetEnabled(r.Context(), r.PathValue("id"), *req.Enabled)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// handleTriggerSchedule enqueues the schedule's job now, outside its interval
func (s *Server) handleTriggerSchedule(w http.ResponseWriter, r *http.Request) {
	job, err := s.scheduleService.TriggerNow(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}
