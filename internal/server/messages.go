package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/patchlibrary/feedesk/internal/common"
	"github.com/patchlibrary/feedesk/internal/entity"
	"github.com/patchlibrary/feedesk/internal/message"
	"github.com/patchlibrary/feedesk/internal/message/whatsapp"
	"github.com/patchlibrary/feedesk/internal/outbox"
)

type previewRequest struct {
	TemplateID int32  `json:"template_id,omitempty"`
	Template   string `json:"template,omitempty"`
	Enrollment string `json:"enrollment"`
}

// handlePreviewMessage expands a template for one student without queueing
// anything: the rendered body, the normalized phone, and the deeplink the
// desktop flow would open.
func (s *Server) handlePreviewMessage(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Enrollment == "" {
		writeError(w, http.StatusBadRequest, "enrollment is required")
		return
	}

	tmpl, err := s.resolveTemplate(r.Context(), req.TemplateID, req.Template)
	if err != nil {
		s.writeTemplateError(w, err)
		return
	}

	student, err := s.deps.Students.GetByEnrollment(r.Context(), req.Enrollment)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown enrollment "+req.Enrollment)
			return
		}
		s.logger.Error("message.student.lookup.failed", "enrollment", req.Enrollment, "error", err)
		writeError(w, http.StatusInternalServerError, "student lookup failed")
		return
	}

	body := message.Expand(tmpl, *student)
	phone := message.NormalizePhone(student.Contact)
	deeplink := ""
	if phone != "" {
		deeplink = whatsapp.Deeplink(phone, body)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"body":     body,
		"phone":    phone,
		"deeplink": deeplink,
	})
}

type dispatchRequest struct {
	TemplateID  int32    `json:"template_id,omitempty"`
	Template    string   `json:"template,omitempty"`
	Enrollments []string `json:"enrollments,omitempty"`
	All         bool     `json:"all,omitempty"`
}

// handleDispatchMessages expands the template per student and queues the
// sends; the outbox worker delivers them with its own pacing.
func (s *Server) handleDispatchMessages(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tmpl, err := s.resolveTemplate(r.Context(), req.TemplateID, req.Template)
	if err != nil {
		s.writeTemplateError(w, err)
		return
	}

	students, err := s.resolveStudents(r.Context(), req)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("message.students.resolve.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not resolve students")
		return
	}

	result, err := outbox.BulkEnqueue(r.Context(), s.deps.Outbox, tmpl, students, s.logger)
	if err != nil {
		s.logger.Error("message.enqueue.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}
	if s.deps.Worker != nil {
		s.deps.Worker.Notify()
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued":  result.Queued,
		"skipped": result.Skipped,
	})
}

func (s *Server) resolveTemplate(ctx context.Context, id int32, inline string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if id == 0 {
		return "", common.NewValidationError("template", "", "template or template_id required")
	}
	t, err := s.deps.Templates.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return t.Content, nil
}

func (s *Server) writeTemplateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown template")
	default:
		s.logger.Error("message.template.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "template lookup failed")
	}
}

func (s *Server) resolveStudents(ctx context.Context, req dispatchRequest) ([]*entity.StudentRecord, error) {
	if req.All {
		return s.deps.Students.List(ctx)
	}
	if len(req.Enrollments) == 0 {
		return nil, common.NewValidationError("enrollments", "", "enrollments or all required")
	}

	students := make([]*entity.StudentRecord, 0, len(req.Enrollments))
	for _, enrollment := range req.Enrollments {
		student, err := s.deps.Students.GetByEnrollment(ctx, enrollment)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.NewValidationError("enrollments", enrollment, "unknown enrollment")
			}
			return nil, err
		}
		students = append(students, student)
	}
	return students, nil
}

func (s *Server) handleRecentOutbox(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit: expected a positive integer")
			return
		}
		limit = n
	}

	msgs, err := s.deps.Outbox.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("outbox.recent.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "outbox read failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"count":    len(msgs),
	})
}

func (s *Server) handleGetOutboxMessage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	msg, err := s.deps.Outbox.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown message")
			return
		}
		s.logger.Error("outbox.get.failed", "id", id.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "outbox read failed")
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.deps.Templates.List(r.Context())
	if err != nil {
		s.logger.Error("template.list.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"count":     len(templates),
	})
}

type saveTemplateRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req saveTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "name and content are required")
		return
	}

	t, err := s.deps.Templates.Save(r.Context(), req.Name, req.Content)
	if err != nil {
		s.logger.Error("template.save.failed", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid template id")
		return
	}

	if err := s.deps.Templates.Delete(r.Context(), int32(id)); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown template")
			return
		}
		s.logger.Error("template.delete.failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
