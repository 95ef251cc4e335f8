package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Jagan515/tms-server/internal/middleware"
	"github.com/Jagan515/tms-server/internal/models"
)

// NewRouter wires every route onto a gorilla/mux router
func NewRouter(h *Handler, jwtSecret string) *mux.Router {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)

	// Protected routes
	api := r.PathPrefix("/").Subrouter()
	api.Use(middleware.AuthMiddleware(jwtSecret))

	teacher := middleware.RequireRole(models.RoleTeacher)
	anyViewer := middleware.RequireRole(models.RoleTeacher, models.RoleStudent, models.RoleParent)

	fees := api.PathPrefix("/fees").Subrouter()
	fees.HandleFunc("/generate-monthly", middleware.RequireRole(models.RoleTeacher, models.RoleDeveloper)(h.GenerateMonthly)).Methods(http.MethodPost)
	fees.HandleFunc("/registry", teacher(h.Registry)).Methods(http.MethodGet)
	fees.HandleFunc("/record-payment", teacher(h.RecordPayment)).Methods(http.MethodPost)
	fees.HandleFunc("/defaulters", teacher(h.Defaulters)).Methods(http.MethodGet)
	fees.HandleFunc("/history", teacher(h.PaymentHistory)).Methods(http.MethodGet)
	fees.HandleFunc("/receipts/{receipt}.xml", teacher(h.ReceiptXML)).Methods(http.MethodGet)
	fees.HandleFunc("/receipts/verify", teacher(h.VerifyReceipt)).Methods(http.MethodPost)
	fees.HandleFunc("/student/{studentId}", anyViewer(h.StudentFees)).Methods(http.MethodGet)
	fees.HandleFunc("/student/{studentId}/history", anyViewer(h.StudentPaymentHistory)).Methods(http.MethodGet)

	api.HandleFunc("/users", middleware.RequireRole(models.RoleDeveloper)(h.CreateUser)).Methods(http.MethodPost)

	students := api.PathPrefix("/students").Subrouter()
	students.HandleFunc("", teacher(h.EnrollStudent)).Methods(http.MethodPost)
	students.HandleFunc("/{studentId}/fee", teacher(h.UpdateStudentFee)).Methods(http.MethodPut)

	return r
}
