package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mvocoding/testmateai/internal/services"
	"github.com/mvocoding/testmateai/internal/utils"
)

type ImportExportHandler struct {
	BaseHandler
	importExport services.ImportExportService
}

func NewImportExportHandler(importExport services.ImportExportService, logger utils.Logger) *ImportExportHandler {
	return &ImportExportHandler{
		BaseHandler:  NewBaseHandler(logger),
		importExport: importExport,
	}
}

// ImportQuestions imports questions from an uploaded CSV or XLSX file.
func (h *ImportExportHandler) ImportQuestions(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing questions", "filename", header.Filename, "size", header.Size)

	result, err := h.importExport.ImportQuestionsFromFile(c.Request.Context(), file, header.Filename)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportResults downloads a user's mock test history as an XLSX workbook.
func (h *ImportExportHandler) ExportResults(c *gin.Context) {
	userID, ok := h.parseUintParam(c, "user_id")
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting results", "user_id", userID)

	data, err := h.importExport.ExportResults(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="results.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
