package server

import (
	"net/http"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleExportReceipts(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "from: expected YYYY-MM-DD")
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "to: expected YYYY-MM-DD")
		return
	}

	out, err := s.deps.Exporter.ExportRegisterXLSX(r.Context(), from, to)
	if err != nil {
		s.logger.Error("export.failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="receipt-register.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
