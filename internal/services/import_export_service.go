package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"github.com/mvocoding/testmateai/internal/utils"
	"github.com/xuri/excelize/v2"
)

// ImportExportService handles bulk question import and results export.
type ImportExportService interface {
	ImportQuestionsFromFile(ctx context.Context, file multipart.File, filename string) (*ImportResult, error)
	ImportQuestionsFromCSV(ctx context.Context, reader io.Reader) (*ImportResult, error)
	ImportQuestionsFromExcel(ctx context.Context, reader io.Reader) (*ImportResult, error)

	ExportResults(ctx context.Context, userID uint) ([]byte, error)
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

type ImportResult struct {
	TotalRows    int              `json:"total_rows"`
	SuccessCount int              `json:"success_count"`
	ErrorCount   int              `json:"error_count"`
	Errors       []ImportRowError `json:"errors,omitempty"`
}

type importExportService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewImportExportService(repo repositories.Repository, logger utils.Logger) ImportExportService {
	return &importExportService{
		repo:   repo,
		logger: logger,
	}
}

// ===== IMPORT OPERATIONS =====

func (s *importExportService) ImportQuestionsFromFile(ctx context.Context, file multipart.File, filename string) (*ImportResult, error) {
	s.logger.Info("Starting question import", "filename", filename)

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return s.ImportQuestionsFromCSV(ctx, file)
	case ".xlsx", ".xls":
		return s.ImportQuestionsFromExcel(ctx, file)
	default:
		return nil, NewValidationError("file", "unsupported file format", ext)
	}
}

func (s *importExportService) ImportQuestionsFromCSV(ctx context.Context, reader io.Reader) (*ImportResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return s.importRows(ctx, records, "CSV")
}

func (s *importExportService) ImportQuestionsFromExcel(ctx context.Context, reader io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "Excel file has no sheets", "")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}

	return s.importRows(ctx, rows, "Excel")
}

func (s *importExportService) importRows(ctx context.Context, rows [][]string, format string) (*ImportResult, error) {
	if len(rows) < 2 {
		return nil, NewValidationError("file", "file must have a header row and at least one data row", strconv.Itoa(len(rows)))
	}

	headerMap := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range []string{"skill", "question_type", "question_text"} {
		if _, ok := headerMap[col]; !ok {
			return nil, NewValidationError("headers", "missing required column", col)
		}
	}

	result := &ImportResult{TotalRows: len(rows) - 1}
	var questions []*models.Question

	for i, row := range rows[1:] {
		question, rowErrors := s.parseRow(row, headerMap, i+2)
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorCount++
			continue
		}
		questions = append(questions, question)
		result.SuccessCount++
	}

	if len(questions) > 0 {
		if err := s.repo.Question().CreateBatch(ctx, questions); err != nil {
			return nil, fmt.Errorf("failed to save questions: %w", err)
		}
	}

	s.logger.Info("Question import completed",
		"format", format,
		"total_rows", result.TotalRows,
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount)

	return result, nil
}

func (s *importExportService) parseRow(row []string, headerMap map[string]int, rowNum int) (*models.Question, []ImportRowError) {
	var rowErrors []ImportRowError

	getColumn := func(name string) string {
		if index, ok := headerMap[name]; ok && index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	skill := models.Skill(strings.ToLower(getColumn("skill")))
	if !validSkill(skill) {
		rowErrors = append(rowErrors, ImportRowError{
			Row: rowNum, Column: "skill", Message: "unknown skill", Value: string(skill),
		})
		return nil, rowErrors
	}

	questionType := models.QuestionType(strings.ToLower(getColumn("question_type")))
	text := getColumn("question_text")
	if text == "" {
		rowErrors = append(rowErrors, ImportRowError{
			Row: rowNum, Column: "question_text", Message: "required field",
		})
		return nil, rowErrors
	}

	question := &models.Question{
		Skill: skill,
		Type:  questionType,
		Text:  text,
	}

	switch questionType {
	case models.MultipleChoice:
		var options []string
		for _, col := range []string{"option_a", "option_b", "option_c", "option_d"} {
			if opt := getColumn(col); opt != "" {
				options = append(options, opt)
			}
		}
		if len(options) < 2 {
			rowErrors = append(rowErrors, ImportRowError{
				Row: rowNum, Column: "options", Message: "must have at least 2 options",
			})
			return nil, rowErrors
		}
		question.Options = options

		letter := strings.ToUpper(getColumn("correct_answer"))
		if len(letter) != 1 || letter[0] < 'A' || int(letter[0]-'A') >= len(options) {
			rowErrors = append(rowErrors, ImportRowError{
				Row: rowNum, Column: "correct_answer", Message: "must be an option letter (A-D)", Value: letter,
			})
			return nil, rowErrors
		}
		index := int(letter[0] - 'A')
		question.CorrectIndex = &index

	case models.TrueFalse:
		answer := strings.ToLower(getColumn("correct_answer"))
		if answer != "true" && answer != "false" {
			rowErrors = append(rowErrors, ImportRowError{
				Row: rowNum, Column: "correct_answer", Message: "must be 'true' or 'false'", Value: answer,
			})
			return nil, rowErrors
		}
		question.Options = []string{"True", "False"}
		index := 0
		if answer == "false" {
			index = 1
		}
		question.CorrectIndex = &index

	case models.FillInBlank:
		answer := getColumn("correct_answer")
		if answer == "" {
			rowErrors = append(rowErrors, ImportRowError{
				Row: rowNum, Column: "correct_answer", Message: "required for fill_blank questions",
			})
			return nil, rowErrors
		}
		question.CorrectText = answer

	case models.Essay, models.SpeakingPrompt:
		// Open-ended, no correct answer column.

	default:
		rowErrors = append(rowErrors, ImportRowError{
			Row: rowNum, Column: "question_type", Message: "unsupported question type", Value: string(questionType),
		})
		return nil, rowErrors
	}

	return question, nil
}

// ===== EXPORT OPERATIONS =====

// ExportResults writes a user's mock test history to an XLSX workbook.
func (s *importExportService) ExportResults(ctx context.Context, userID uint) ([]byte, error) {
	activityType := models.ActivityMockTest
	activities, _, err := s.repo.Activity().GetByUser(ctx, userID, repositories.ActivityFilters{
		Type:  &activityType,
		Limit: 500,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get mock test activities: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Date", "Type", "Skill", "Score (%)", "Band", "XP"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, activity := range activities {
		row := []interface{}{
			activity.CreatedAt.Format("2006-01-02 15:04:05"),
			string(activity.Type),
			string(activity.Skill),
			activity.Score,
			activity.Band,
			activity.XP,
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return buf.Bytes(), nil
}
