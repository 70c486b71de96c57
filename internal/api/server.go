// Package api is the JSON HTTP surface of the membership service.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"membership/internal/attendance"
	"membership/internal/auth"
	"membership/internal/event"
	"membership/internal/httpmiddleware"
	"membership/internal/metrics"
	"membership/internal/payment"
	"membership/internal/queue"
	"membership/internal/sanction"
	"membership/internal/student"
)

// Recomputer rebuilds the sanction list.
type Recomputer interface {
	Recompute(ctx context.Context) (sanction.Result, error)
}

// HealthCheck reports the health of one dependency.
type HealthCheck func(ctx context.Context) bool

// Deps are the services the router exposes. Metrics, Limiter, Queue and
// Checks are optional.
type Deps struct {
	Students   *student.Service
	Events     *event.Service
	Attendance *attendance.Service
	Sanctions  *sanction.Service
	Recomputer Recomputer
	Payments   *payment.Service
	Signer     *auth.Signer

	Metrics *metrics.Metrics
	Limiter httpmiddleware.Limiter
	Queue   queue.Publisher
	Checks  map[string]HealthCheck
	Log     zerolog.Logger
}

type server struct {
	Deps
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	RegisterValidators()
	s := &server{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(d.Log, "/healthz", "/metrics"))
	if d.Metrics != nil {
		r.Use(httpmiddleware.Metrics(d.Metrics))
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	if d.Limiter != nil {
		r.Use(httpmiddleware.RateLimit(d.Limiter, d.Log))
	}

	r.GET("/healthz", s.health)

	pub := r.Group("/v1/auth")
	pub.POST("/register", s.register)
	pub.POST("/login", s.login)
	pub.POST("/refresh", s.refresh)

	v1 := r.Group("/v1", auth.Authenticate(d.Signer))
	v1.GET("/me", s.me)
	v1.POST("/me/password", s.changePassword)
	v1.POST("/me/password/verify", s.verifyPassword)
	v1.GET("/me/attendance", s.myAttendance)
	v1.GET("/me/sanction", s.mySanction)
	v1.GET("/me/payment", s.myPayment)
	v1.POST("/me/payment/checkout", s.checkout)
	v1.GET("/me/badge.png", s.myBadge)
	v1.GET("/events", s.listEvents)
	v1.GET("/tiers", s.listTiers)

	admin := v1.Group("/admin", auth.RequireRole(string(student.RoleAdmin)))
	admin.GET("/students", s.listStudents)
	admin.POST("/students/check", s.checkStudent)
	admin.GET("/students/:id_number", s.getStudent)
	admin.PUT("/students/:id_number", s.updateStudent)
	admin.DELETE("/students/:id_number", s.deleteStudent)
	admin.GET("/students/:id_number/badge.png", s.studentBadge)

	admin.POST("/events", s.createEvent)
	admin.PUT("/events/:name", s.updateEvent)
	admin.DELETE("/events/:name", s.deleteEvent)
	admin.GET("/events/:name/attendance", s.eventSheet)
	admin.GET("/events/:name/attendance.xlsx", s.eventSheetXLSX)
	admin.POST("/attendance", s.recordAttendance)

	admin.POST("/tiers", s.createTier)
	admin.PUT("/tiers/:offense_number", s.updateTier)
	admin.DELETE("/tiers/:offense_number", s.deleteTier)

	admin.POST("/sanctions/recompute", s.recompute)
	admin.GET("/sanctions", s.listSanctions)
	admin.GET("/sanctions.xlsx", s.sanctionsXLSX)
	admin.GET("/sanctions/:id_number", s.getSanction)
	admin.DELETE("/sanctions/:id_number", s.deleteSanction)

	admin.GET("/payments", s.listPayments)
	admin.POST("/payments", s.createPayment)
	admin.GET("/payments/:id_number", s.getPayment)
	admin.DELETE("/payments/:id_number", s.deletePayment)
	admin.POST("/payments/:id_number/receipt", s.uploadReceipt)

	return r
}

func (s *server) health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.Checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
