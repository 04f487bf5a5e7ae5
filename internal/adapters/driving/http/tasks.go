package http

import (
	"net/http"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driving"
)

const defaultActivityLimit = 50

// Project endpoints

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	status := domain.ProjectStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown project status: "+string(status))
		return
	}

	projects, err := s.projectService.List(r.Context(), actorFrom(r), status)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleSubmitProject(w http.ResponseWriter, r *http.Request) {
	var req driving.SubmitProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	project, err := s.projectService.Submit(r.Context(), actorFrom(r), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.projectService.Get(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleUpdateProjectStatus(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateProjectStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	project, err := s.projectService.UpdateStatus(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// handleListProjectTasks lists the project's tasks the caller may see.
// The project itself must be visible, otherwise 404.
func (s *Server) handleListProjectTasks(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	projectID := r.PathValue("id")

	if _, err := s.projectService.Get(r.Context(), actor, projectID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	filter, ok := taskFilterFrom(w, r)
	if !ok {
		return
	}
	filter.ProjectID = projectID

	tasks, err := s.taskService.List(r.Context(), actor, filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ProjectID = r.PathValue("id")

	task, err := s.taskService.Create(r.Context(), actorFrom(r), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Task endpoints

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter, ok := taskFilterFrom(w, r)
	if !ok {
		return
	}
	filter.ProjectID = r.URL.Query().Get("project_id")

	tasks, err := s.taskService.List(r.Context(), actorFrom(r), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskService.Get(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	task, err := s.taskService.Update(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.taskService.Delete(r.Context(), actorFrom(r), r.PathValue("id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTransitionTask moves a task to another status, recording the outcome
func (s *Server) handleTransitionTask(w http.ResponseWriter, r *http.Request) {
	var req driving.TransitionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	task, err := s.taskService.Transition(r.Context(), actorFrom(r), r.PathValue("id"), req)
	taskTransitionsTotal.WithLabelValues(transitionLabel(req.To), transitionResult(err)).Inc()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	var req driving.AssignTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	task, err := s.taskService.Assign(r.Context(), actorFrom(r), r.PathValue("id"), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleTaskActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := s.taskService.Activity(r.Context(), actorFrom(r), r.PathValue("id"),
		queryLimit(r, defaultActivityLimit))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

// taskFilterFrom reads ?status= and ?assigned_to=, accepting the pending_review alias
func taskFilterFrom(w http.ResponseWriter, r *http.Request) (domain.TaskFilter, bool) {
	q := r.URL.Query()
	filter := domain.TaskFilter{AssignedTo: q.Get("assigned_to")}

	if raw := q.Get("status"); raw != "" {
		status, ok := domain.ParseTaskStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown task status: "+raw)
			return filter, false
		}
		filter.Status = status
	}
	return filter, true
}

// transitionLabel bounds the metric label to known statuses
func transitionLabel(raw string) string {
	status, ok := domain.ParseTaskStatus(raw)
	if !ok {
		return "unknown"
	}
	return string(status)
}
