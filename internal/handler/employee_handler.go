package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/staffman/internal/employee"
	"github.com/hitoshi/staffman/internal/middleware"
	"github.com/hitoshi/staffman/internal/model"
)

// EmployeeServiceInterface は従業員ハンドラーが必要とするサービスインターフェース。
type EmployeeServiceInterface interface {
	List(ctx context.Context) ([]*model.Employee, error)
	Find(ctx context.Context, id int64) (*model.Employee, error)
	ListByStatus(ctx context.Context, status string) ([]*model.Employee, error)
	Add(ctx context.Context, employee *model.Employee) (*model.Employee, error)
	Update(ctx context.Context, employee *model.Employee) (*model.Employee, error)
	Delete(ctx context.Context, id int64) error
}

// EmployeeHandler は従業員管理のHTTPハンドラー。
type EmployeeHandler struct {
	service EmployeeServiceInterface
}

// NewEmployeeHandler はEmployeeHandlerを生成する。
func NewEmployeeHandler(service EmployeeServiceInterface) *EmployeeHandler {
	return &EmployeeHandler{service: service}
}

// employeeJSON は従業員のAPI表現。
type employeeJSON struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	JobTitle     string `json:"jobTitle"`
	Phone        string `json:"phone"`
	ImageURL     string `json:"imageUrl"`
	EmployeeCode string `json:"employeeCode"`
	Status       string `json:"status"`
}

func toEmployeeJSON(e *model.Employee) employeeJSON {
	return employeeJSON{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Email,
		JobTitle:     e.JobTitle,
		Phone:        e.Phone,
		ImageURL:     e.ImageURL,
		EmployeeCode: e.EmployeeCode,
		Status:       e.Status,
	}
}

func (j employeeJSON) toModel() *model.Employee {
	return &model.Employee{
		ID:           j.ID,
		Name:         j.Name,
		Email:        j.Email,
		JobTitle:     j.JobTitle,
		Phone:        j.Phone,
		ImageURL:     j.ImageURL,
		EmployeeCode: j.EmployeeCode,
		Status:       j.Status,
	}
}

// ListAll は全従業員の一覧を返す。
// GET /employee/all
func (h *EmployeeHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("failed to list employees", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeEmployeeList(w, employees)
}

// FindByID は指定IDの従業員を返す。
// GET /employee/find/{id}
func (h *EmployeeHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "Invalid employee ID")
		return
	}

	found, err := h.service.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			middleware.WriteErrorResponse(w, http.StatusNotFound, "Employee not found")
			return
		}
		slog.Error("failed to find employee", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toEmployeeJSON(found))
}

// ListByStatus は指定ステータスの従業員一覧を返す。
// GET /employee/status/{status}
func (h *EmployeeHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status := chi.URLParam(r, "status")

	employees, err := h.service.ListByStatus(r.Context(), status)
	if err != nil {
		slog.Error("failed to list employees by status", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeEmployeeList(w, employees)
}

// Add は新しい従業員を登録する。
// POST /employee/add
func (h *EmployeeHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req employeeJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "Name and email are required")
		return
	}

	created, err := h.service.Add(r.Context(), req.toModel())
	if err != nil {
		slog.Error("failed to add employee", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toEmployeeJSON(created))
}

// Update は従業員を更新する。管理者ロールが必要。
// PUT /employee/update
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req employeeJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.service.Update(r.Context(), req.toModel())
	if err != nil {
		switch {
		case errors.Is(err, employee.ErrNotFound):
			middleware.WriteErrorResponse(w, http.StatusNotFound, "Employee not found")
		case errors.Is(err, employee.ErrVerified):
			middleware.WriteErrorResponse(w, http.StatusForbidden, "Verified employee cannot be modified")
		default:
			slog.Error("failed to update employee", slog.String("error", err.Error()))
			middleware.WriteInternalServerError(w)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toEmployeeJSON(updated))
}

// Delete は指定IDの従業員を削除する。管理者ロールが必要。
// DELETE /employee/delete/{id}
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "Invalid employee ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, employee.ErrNotFound):
			middleware.WriteErrorResponse(w, http.StatusNotFound, "Employee not found")
		case errors.Is(err, employee.ErrVerified):
			middleware.WriteErrorResponse(w, http.StatusForbidden, "Verified employee cannot be modified")
		default:
			slog.Error("failed to delete employee", slog.String("error", err.Error()))
			middleware.WriteInternalServerError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeEmployeeList は従業員一覧をJSON配列で書き込む。空でも空配列を返す。
func writeEmployeeList(w http.ResponseWriter, employees []*model.Employee) {
	list := make([]employeeJSON, 0, len(employees))
	for _, e := range employees {
		list = append(list, toEmployeeJSON(e))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}
