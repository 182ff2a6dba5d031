// Package handler wires the HTTP API: login/logout, attendance recording,
// CSV export and health.
package handler

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"checkindesk/internal/attendance"
	"checkindesk/internal/ledger"
	"checkindesk/internal/session"
)

var scanOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "checkindesk_scans_total",
	Help: "Attendance scans by outcome code.",
}, []string{"code"})

// Handler holds the collaborators every route needs.
type Handler struct {
	sessions       *session.Store
	attendance     *attendance.Service
	ledger         *ledger.Store
	logger         *zap.Logger
	env            string
	production     bool
	exportPassword string
}

// New creates a handler.
func New(sessions *session.Store, svc *attendance.Service, led *ledger.Store, logger *zap.Logger, env, exportPassword string) *Handler {
	return &Handler{
		sessions:       sessions,
		attendance:     svc,
		ledger:         led,
		logger:         logger,
		env:            env,
		production:     env == "production",
		exportPassword: exportPassword,
	}
}

// RegisterRoutes attaches the API routes to r. Login and health are open;
// everything else sits behind the session middleware.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/login", h.Login)
	r.GET("/api/health", h.Health)

	authed := r.Group("/api", h.AuthRequired())
	authed.POST("/logout", h.Logout)
	authed.POST("/attendance", h.Attendance)
	authed.POST("/export", h.Export)
}

// AuthRequired enforces "Authorization: Session <token>". A token idle past
// the rotation window is replaced; the fresh token is relayed to the client
// via X-New-Session-ID while the current request proceeds.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sessionToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Unauthorized: No valid session provided",
			})
			return
		}

		username, newToken, err := h.sessions.Authenticate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Unauthorized: Invalid or expired session",
			})
			return
		}
		if newToken != "" {
			c.Header("X-New-Session-ID", newToken)
		}
		c.Set("username", username)
		c.Next()
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks the operator credentials and opens a session.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Username and password are required",
		})
		return
	}

	token, expiresAt, err := h.sessions.Login(req.Username, req.Password)
	if err != nil {
		h.logger.Info("login failed", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Invalid credentials",
		})
		return
	}

	h.logger.Info("login successful", zap.String("username", req.Username))
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		"user":      gin.H{"username": req.Username},
	})
}

// Logout deletes the current session.
func (h *Handler) Logout(c *gin.Context) {
	token, ok := sessionToken(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No session provided"})
		return
	}
	h.sessions.Logout(token)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

type attendanceRequest struct {
	StudentID string `json:"studentId"`
	Day       int    `json:"day"`
}

// Attendance records a scan. A missing day defaults to day 1.
func (h *Handler) Attendance(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.StudentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Student ID is required"})
		return
	}
	if req.Day == 0 {
		req.Day = 1
	}

	result := h.attendance.Record(req.StudentID, req.Day)
	scanOutcomes.WithLabelValues(string(result.Code)).Inc()

	if result.Err != nil {
		h.serverError(c, "recording attendance", result.Err, result.Message)
		return
	}

	body := gin.H{"success": result.Success, "message": result.Message}
	if result.Success {
		body["alreadyScanned"] = result.AlreadyScanned
		body["studentName"] = result.StudentName
	}
	c.JSON(statusFor(result.Code), body)
}

type exportRequest struct {
	Password string `json:"password"`
}

// Export streams the raw attendance CSV, gated by the export password.
func (h *Handler) Export(c *gin.Context) {
	var req exportRequest
	_ = c.ShouldBindJSON(&req)

	if h.exportPassword == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.exportPassword)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Invalid export password"})
		return
	}

	data, err := h.ledger.Raw()
	if err != nil {
		h.serverError(c, "exporting attendance", err, "Failed to export attendance data")
		return
	}

	filename := fmt.Sprintf("attendance_%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// Health reports liveness. No auth.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.env,
	})
}

func (h *Handler) serverError(c *gin.Context, context string, err error, message string) {
	requestID := uuid.NewString()[:8]
	h.logger.Error("request failed",
		zap.String("context", context),
		zap.Error(err),
		zap.String("request_id", requestID),
	)
	if !h.production {
		message = fmt.Sprintf("Server error: %v", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success":   false,
		"message":   message,
		"requestId": requestID,
	})
}

func statusFor(code attendance.Code) int {
	switch code {
	case attendance.CodeOK, attendance.CodeAlreadyRecorded:
		return http.StatusOK
	case attendance.CodeNotFound:
		return http.StatusNotFound
	case attendance.CodeInvalidInput, attendance.CodeInvalidFormat, attendance.CodeInvalidDay:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func sessionToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if !strings.HasPrefix(authz, "Session ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, "Session "))
	return token, token != ""
}
