package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sekolahku/psb-api/internal/middleware"
	"github.com/sekolahku/psb-api/internal/models"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth          *AuthHandler
	Registrations *RegistrationHandler
	Classes       *ClassOfferingHandler
	Students      *StudentHandler
	Parents       *ParentHandler
	Payments      *PaymentHandler
	Attendance    *AttendanceHandler
	Grades        *GradeHandler
	Users         *UserHandler
}

// RegisterRoutes mounts the API surface under the given prefix. The JWT
// guard re-checks account state per request; role guards delegate to the
// shared authorization policy.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authGuard gin.HandlerFunc) {
	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	// Receipt downloads are gated by the signed token, not a session.
	api.GET("/receipts/:token", h.Payments.DownloadReceipt)

	// Prospective families browse seat availability without an account.
	api.GET("/classes/available", h.Classes.Available)

	auth := api.Group("")
	auth.Use(authGuard)

	auth.GET("/auth/me", h.Auth.Me)
	auth.POST("/auth/logout", h.Auth.Logout)
	auth.PUT("/auth/password", h.Auth.ChangePassword)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistration)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	teaching := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	auth.POST("/registrations", staff, h.Registrations.Create)
	auth.GET("/registrations/:id", h.Registrations.Get)
	auth.PUT("/registrations/:id/confirm", staff, h.Registrations.Confirm)
	auth.PUT("/registrations/:id/cancel", staff, h.Registrations.Cancel)
	auth.DELETE("/registrations/:id", adminOnly, h.Registrations.Expel)

	auth.GET("/classes", h.Classes.List)
	auth.GET("/classes/:id", h.Classes.Get)
	auth.POST("/classes", adminOnly, h.Classes.Create)
	auth.PUT("/classes/:id", adminOnly, h.Classes.Update)
	auth.PUT("/classes/:id/capacity", adminOnly, h.Classes.UpdateCapacity)
	auth.DELETE("/classes/:id", adminOnly, h.Classes.Delete)

	auth.GET("/students", h.Students.List)
	auth.GET("/students/export", staff, h.Students.Export)
	auth.GET("/students/:id", h.Students.Get)
	auth.GET("/students/:id/flags", h.Students.ListFlags)
	auth.POST("/students/:id/flags", staff, h.Students.CreateFlag)
	auth.PUT("/flags/:id/resolve", staff, h.Students.ResolveFlag)

	auth.GET("/parents", h.Parents.List)
	auth.GET("/parents/:id", h.Parents.Get)
	auth.PUT("/parents/:id", staff, h.Parents.Update)
	auth.DELETE("/parents/:id", adminOnly, h.Parents.Delete)

	auth.POST("/payments", staff, h.Payments.Create)
	auth.GET("/payments", h.Payments.List)
	auth.GET("/payments/:id", h.Payments.Get)
	auth.GET("/payments/:id/receipt", h.Payments.ReceiptLink)

	auth.POST("/attendance", teaching, h.Attendance.Record)
	auth.GET("/attendance", h.Attendance.List)

	auth.POST("/grades", teaching, h.Grades.Record)
	auth.GET("/grades", h.Grades.List)

	auth.GET("/users", adminOnly, h.Users.List)
	auth.POST("/users", adminOnly, h.Users.Create)
	auth.GET("/users/:id", adminOnly, h.Users.Get)
	auth.PUT("/users/:id/active", adminOnly, h.Users.SetActive)
}
