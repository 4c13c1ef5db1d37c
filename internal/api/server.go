// Package api exposes the prediction and alert engine over HTTP.
// Callers identify themselves with the X-User-ID header; requests
// without one act as "anonymous".
package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/forestguard/internal/archive"
	"github.com/forestguard/internal/engine"
	"github.com/forestguard/internal/models"
	"github.com/forestguard/internal/notify"
	"github.com/forestguard/internal/store"
)

type Server struct {
	engine     *engine.Engine
	dispatcher *notify.Dispatcher
	archive    *archive.Archive
	router     *gin.Engine
	log        *logrus.Logger
}

func NewServer(e *engine.Engine, d *notify.Dispatcher, arc *archive.Archive, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:     e,
		dispatcher: d,
		archive:    arc,
		router:     gin.New(),
		log:        log,
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api/v1")
	api.Use(userIDMiddleware())

	predictions := api.Group("/predictions")
	{
		predictions.GET("", s.listPredictions)
		predictions.POST("", s.createPrediction)
		predictions.POST("/generate", s.generatePrediction)
		predictions.GET("/:id", s.getPrediction)
		predictions.PUT("/:id", s.updatePrediction)
		predictions.DELETE("/:id", s.deletePrediction)
		predictions.GET("/:id/alerts", s.predictionAlerts)
		predictions.POST("/:id/trigger", s.triggerAlert)
		predictions.POST("/:id/accuracy", s.evaluateAccuracy)
	}

	alerts := api.Group("/alerts")
	{
		alerts.GET("", s.listAlerts)
		alerts.POST("", s.createManualAlert)
		alerts.GET("/:id", s.getAlert)
		alerts.PUT("/:id/acknowledge", s.acknowledgeAlert)
		alerts.PUT("/:id/handle", s.handleAlert)
		alerts.DELETE("/:id", s.deleteAlert)
		alerts.GET("/:id/notifications", s.alertNotifications)
		alerts.POST("/:id/notify", s.notifyAlert)
	}

	ops := api.Group("/operations")
	{
		ops.POST("/batch-trigger", s.batchTrigger)
		ops.POST("/check-triggers", s.checkTriggers)
		ops.POST("/cleanup", s.cleanup)
		ops.POST("/import-rules", s.importRules)
	}

	rules := api.Group("/rules")
	{
		rules.GET("", s.listRules)
		rules.POST("", s.createRule)
		rules.GET("/:id", s.getRule)
		rules.PUT("/:id", s.updateRule)
		rules.DELETE("/:id", s.deleteRule)
		rules.PUT("/:id/enable", s.enableRule)
		rules.PUT("/:id/disable", s.disableRule)
	}

	prefs := api.Group("/preferences")
	{
		prefs.GET("", s.listPreferences)
		prefs.GET("/:user_id", s.getPreference)
		prefs.PUT("/:user_id", s.setPreference)
		prefs.DELETE("/:user_id", s.deletePreference)
	}

	export := api.Group("/export")
	{
		export.GET("/predictions", s.exportPredictions)
		export.GET("/alerts", s.exportAlerts)
		export.GET("/rules", s.exportRules)
	}

	api.GET("/stats", s.stats)
	api.GET("/archive/alerts", s.archivedAlerts)
}

func userIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = "anonymous"
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

func userID(c *gin.Context) string { return c.GetString("user_id") }

// abortWith maps the engine's error taxonomy onto HTTP statuses.
func abortWith(c *gin.Context, err error) {
	switch {
	case engine.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case engine.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case engine.IsPermission(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type predictionRequest struct {
	models.Prediction
	Factors *models.Factors `json:"factors,omitempty"`
}

func (s *Server) createPrediction(c *gin.Context) {
	var req predictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := s.engine.CreatePrediction(&req.Prediction, req.Factors, userID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) generatePrediction(c *gin.Context) {
	var req struct {
		Model      string         `json:"model"`
		PestID     string         `json:"pest_id" binding:"required"`
		TargetArea string         `json:"target_area" binding:"required"`
		Factors    models.Factors `json:"factors"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := s.engine.Generate(req.Model, req.PestID, req.TargetArea, req.Factors, userID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) listPredictions(c *gin.Context) {
	ps := s.engine.Predictions()

	var out []models.Prediction
	switch {
	case c.Query("keyword") != "":
		out = ps.Search(c.Query("keyword"))
	case c.Query("pest") != "":
		out = ps.ByPest(c.Query("pest"))
	case c.Query("area") != "":
		out = ps.ByArea(c.Query("area"))
	case c.Query("risk_level") != "":
		out = ps.ByRiskLevel(models.RiskLevel(c.Query("risk_level")))
	case c.Query("creator") != "":
		out = ps.ByCreator(c.Query("creator"))
	case c.Query("start") != "" && c.Query("end") != "":
		start, err1 := time.Parse(time.RFC3339, c.Query("start"))
		end, err2 := time.Parse(time.RFC3339, c.Query("end"))
		if err1 != nil || err2 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start and end must be RFC3339 timestamps"})
			return
		}
		out = ps.ByDateRange(start, end)
	case c.Query("high_risk") == "true":
		out = ps.HighRisk()
	case c.Query("attention") == "true":
		out = ps.NeedingAttention()
	default:
		out = ps.All()
	}

	c.JSON(http.StatusOK, paginated(c, out))
}

func (s *Server) getPrediction(c *gin.Context) {
	p, err := s.engine.GetPrediction(c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) updatePrediction(c *gin.Context) {
	var p models.Prediction
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.ID = c.Param("id")
	updated, err := s.engine.UpdatePrediction(&p, userID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deletePrediction(c *gin.Context) {
	ok, err := s.engine.DeletePrediction(c.Param("id"), userID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "prediction not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) predictionAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Alerts().ByPredictionID(c.Param("id")))
}

func (s *Server) triggerAlert(c *gin.Context) {
	var cfg engine.AlertConfig
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&cfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	a, err := s.engine.CreateAlertFromPrediction(c.Param("id"), userID(c), cfg)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) evaluateAccuracy(c *gin.Context) {
	var req struct {
		Occurred bool `json:"occurred"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	score, label, err := s.engine.EvaluatePredictionAccuracy(c.Param("id"), req.Occurred)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score, "label": label})
}

func (s *Server) listAlerts(c *gin.Context) {
	as := s.engine.Alerts()

	var out []models.Alert
	switch {
	case c.Query("keyword") != "":
		out = as.Search(c.Query("keyword"))
	case c.Query("status") != "":
		out = as.ByStatus(models.AlertStatus(c.Query("status")))
	case c.Query("level") != "":
		out = as.ByLevel(models.AlertLevel(c.Query("level")))
	case c.Query("area") != "":
		out = as.ByArea(c.Query("area"))
	case c.Query("unhandled") == "true":
		out = as.Unhandled()
	case c.Query("urgent") == "true":
		out = as.Urgent()
	default:
		out = as.All()
	}

	c.JSON(http.StatusOK, paginated(c, out))
}

func (s *Server) createManualAlert(c *gin.Context) {
	var a models.Alert
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := s.engine.CreateManualAlert(&a, userID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) getAlert(c *gin.Context) {
	a, err := s.engine.GetAlert(c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) acknowledgeAlert(c *gin.Context) {
	if !s.engine.AcknowledgeAlert(c.Param("id"), userID(c)) {
		c.JSON(http.StatusConflict, gin.H{"error": "alert cannot be acknowledged"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}

func (s *Server) handleAlert(c *gin.Context) {
	var req struct {
		Note string `json:"note"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if !s.engine.HandleAlert(c.Param("id"), userID(c), req.Note) {
		c.JSON(http.StatusConflict, gin.H{"error": "alert cannot be handled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"handled": true})
}

func (s *Server) deleteAlert(c *gin.Context) {
	ok, err := s.engine.DeleteAlert(c.Param("id"), userID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) alertNotifications(c *gin.Context) {
	if s.dispatcher == nil {
		c.JSON(http.StatusOK, []models.NotificationRecord{})
		return
	}
	c.JSON(http.StatusOK, s.dispatcher.Records().ByAlert(c.Param("id")))
}

func (s *Server) notifyAlert(c *gin.Context) {
	var req struct {
		Recipients []string `json:"recipients"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if !s.engine.SendAlertNotification(c.Param("id"), req.Recipients) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispatched": true})
}

func (s *Server) batchTrigger(c *gin.Context) {
	var req struct {
		PredictionIDs []string `json:"prediction_ids" binding:"required"`
		Reason        string   `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created := s.engine.BatchTriggerAlerts(req.PredictionIDs, req.Reason, userID(c))
	c.JSON(http.StatusOK, gin.H{"created": len(created), "alerts": created})
}

func (s *Server) checkTriggers(c *gin.Context) {
	created := s.engine.CheckAlertTriggers(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"created": len(created), "alerts": created})
}

func (s *Server) cleanup(c *gin.Context) {
	removed := s.engine.CleanupExpiredAlerts()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) listRules(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.GetRules())
}

func (s *Server) createRule(c *gin.Context) {
	var r models.AlertRule
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, s.engine.SetRule(&r))
}

func (s *Server) getRule(c *gin.Context) {
	r, ok := s.engine.GetRule(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) updateRule(c *gin.Context) {
	var r models.AlertRule
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r.ID = c.Param("id")
	c.JSON(http.StatusOK, s.engine.SetRule(&r))
}

func (s *Server) deleteRule(c *gin.Context) {
	if !s.engine.DeleteRule(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) enableRule(c *gin.Context) {
	if !s.engine.EnableRule(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true})
}

func (s *Server) disableRule(c *gin.Context) {
	if !s.engine.DisableRule(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"disabled": true})
}

func (s *Server) listPreferences(c *gin.Context) {
	if s.dispatcher == nil {
		c.JSON(http.StatusOK, []models.NotificationPreference{})
		return
	}
	c.JSON(http.StatusOK, s.dispatcher.Preferences().All())
}

func (s *Server) getPreference(c *gin.Context) {
	if s.dispatcher == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "preference not found"})
		return
	}
	p, ok := s.dispatcher.Preferences().Get(c.Param("user_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "preference not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) setPreference(c *gin.Context) {
	if s.dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications disabled"})
		return
	}
	var p models.NotificationPreference
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.UserID = c.Param("user_id")
	s.dispatcher.Preferences().Set(&p)
	c.JSON(http.StatusOK, p)
}

func (s *Server) deletePreference(c *gin.Context) {
	if s.dispatcher == nil || !s.dispatcher.Preferences().Delete(c.Param("user_id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "preference not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Stats())
}

func (s *Server) archivedAlerts(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusOK, []archive.ArchivedAlert{})
		return
	}
	if area := c.Query("area"); area != "" {
		rows, err := s.archive.ByArea(area)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
		return
	}
	limit := 50
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	rows, err := s.archive.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) exportPredictions(c *gin.Context) {
	predictions := s.engine.Predictions().All()
	if c.DefaultQuery("format", "json") == "json" {
		c.JSON(http.StatusOK, predictions)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="predictions.csv"`)
	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "pest_id", "target_area", "risk_level", "probability", "status", "prediction_date", "created_by"})
	for _, p := range predictions {
		_ = w.Write([]string{
			p.ID, p.PestID, p.TargetArea, string(p.RiskLevel),
			strconv.FormatFloat(p.Probability, 'f', 4, 64),
			string(p.Status), p.PredictionDate.Format(time.RFC3339), p.CreatedBy,
		})
	}
	w.Flush()
}

func (s *Server) exportAlerts(c *gin.Context) {
	alerts := s.engine.Alerts().All()
	if c.DefaultQuery("format", "json") == "json" {
		c.JSON(http.StatusOK, alerts)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="alerts.csv"`)
	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "prediction_id", "target_area", "level", "type", "status", "message", "created_at"})
	for _, a := range alerts {
		_ = w.Write([]string{
			a.ID, a.PredictionID, a.TargetArea, string(a.Level),
			string(a.Type), string(a.Status), a.Message, a.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
}

func (s *Server) exportRules(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="rules.json"`)
	c.JSON(http.StatusOK, s.engine.GetRules())
}

func (s *Server) importRules(c *gin.Context) {
	var rules []models.AlertRule
	if err := c.ShouldBindJSON(&rules); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	imported := make([]*models.AlertRule, 0, len(rules))
	for i := range rules {
		imported = append(imported, s.engine.SetRule(&rules[i]))
	}
	c.JSON(http.StatusOK, gin.H{"imported": len(imported), "rules": imported})
}

func paginated[T any](c *gin.Context, items []T) []T {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "0"))
	if size <= 0 {
		return items
	}
	return store.Paginate(items, page, size)
}
