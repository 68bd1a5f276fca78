package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"task-tracker/pkg/report"
)

func (s *Server) handleTimeSpentReport(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("report_format")
	if raw == "" {
		s.writeErr(w, fmt.Errorf("%w: report_format is required (1=JSON, 2=CHART, 3=PDF)", report.ErrInvalidFormat))
		return
	}
	f, err := report.ParseFormatName(raw)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	body, err := s.reports.Generate(r.Context(), f)
	if errors.Is(err, report.ErrNoData) {
		writeError(w, http.StatusBadRequest, "There was an error generating the report.")
		return
	}
	if err != nil {
		s.writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	switch f {
	case report.FormatDocument:
		w.Header().Set("Content-Disposition", "attachment; filename="+f.Filename())
	case report.FormatChart:
		w.Header().Set("Content-Disposition", "inline; filename="+f.Filename())
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.log.Warn("write report", zap.Stringer("format", f), zap.Error(err))
	}
}
