package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"ct-preinstall/internal/handlers"
	"ct-preinstall/internal/middleware"
	"ct-preinstall/internal/models"
	"ct-preinstall/internal/service"
	"ct-preinstall/web"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusLabels = map[models.ProjectStatus]string{
	models.StatusDraft:      "Draft",
	models.StatusSiteSurvey: "Site survey",
	models.StatusEvaluation: "Evaluation",
	models.StatusApproved:   "Approved",
	models.StatusInstalled:  "Installed",
	models.StatusCancelled:  "Cancelled",
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"statusLabel": func(s models.ProjectStatus) string {
			if l, ok := statusLabels[s]; ok {
				return l
			}
			return string(s)
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
		"dim":   func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
		"score": func(v float64) string { return fmt.Sprintf("%.0f", v) },
		"money": func(v float64) string { return fmt.Sprintf("%.0f", v) },
		"num": func(v *float64) string {
			if v == nil {
				return "n/a"
			}
			return strconv.FormatFloat(*v, 'f', -1, 64)
		},
		"inputp": func(v *float64) string {
			if v == nil {
				return ""
			}
			return strconv.FormatFloat(*v, 'f', -1, 64)
		},
		"inputf": func(v float64) string {
			if v == 0 {
				return ""
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		},
		"verdict": func(pass bool) string {
			if pass {
				return "PASS"
			}
			return "FAIL"
		},
		"verdictClass": func(pass bool) string {
			if pass {
				return "pass"
			}
			return "fail"
		},
		"inc": func(i int) int { return i + 1 },
	}
}

func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs()).ParseFS(web.Templates, "templates/*.html")
}

func NewRouter(sessionSecret string, svc *service.ReportService, log *zap.Logger) (*gin.Engine, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.SetHTMLTemplate(tmpl)

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 86400, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("ct_session", store))

	r.Use(middleware.InjectActor())

	// DASHBOARD
	r.GET("/", handlers.Dashboard)

	// PROJECTS
	r.GET("/projects", handlers.ListProjects)
	r.GET("/projects/new", handlers.ShowNewProject)
	r.POST("/projects/new", handlers.CreateProject)
	r.GET("/projects/:id", handlers.ShowProject)
	r.GET("/projects/:id/edit", handlers.ShowEditProject)
	r.POST("/projects/:id/edit", handlers.UpdateProject)
	r.POST("/projects/:id/status", handlers.ChangeProjectStatus)
	r.POST("/projects/:id/delete", handlers.DeleteProject)
	r.GET("/projects/:id/history", handlers.ShowProjectHistory)

	// SITE SPECIFICATIONS
	r.GET("/projects/:id/sites/new", handlers.ShowNewSite)
	r.POST("/projects/:id/sites/new", handlers.CreateSite)
	r.GET("/sites/:id", handlers.ShowSite(svc))
	r.GET("/sites/:id/edit", handlers.ShowEditSite(svc))
	r.POST("/sites/:id/edit", handlers.UpdateSite(svc))
	r.POST("/sites/:id/delete", handlers.DeleteSite)

	// SCANNER CATALOG
	r.GET("/scanners", handlers.ListScanners)
	r.GET("/scanners/new", handlers.ShowNewScanner)
	r.POST("/scanners/new", handlers.CreateScanner(svc))
	r.POST("/scanners/seed", handlers.SeedScanners(svc))
	r.GET("/scanners/:id/edit", handlers.ShowEditScanner)
	r.POST("/scanners/:id/edit", handlers.UpdateScanner(svc))
	r.POST("/scanners/:id/delete", handlers.DeleteScanner(svc))

	// CONFORMITY REPORTS
	r.GET("/reports", handlers.ListReports)
	r.GET("/reports/new", handlers.ShowNewReport)
	r.POST("/reports", handlers.CreateReport(svc))
	r.GET("/reports/:id", handlers.ShowReport(svc))

	// EXPORT
	r.GET("/export/projects.xlsx", handlers.ExportProjects)
	r.GET("/export/scanners.xlsx", handlers.ExportScanners)
	r.GET("/export/reports.xlsx", handlers.ExportReports)

	// AUDIT
	r.GET("/audit", handlers.ListAuditLogs)

	// JSON API
	api := r.Group("/api")
	api.POST("/evaluate", handlers.APIEvaluate(svc))
	api.GET("/reports/:id", handlers.APIReport(svc))
	api.GET("/policy", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Policy())
	})

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r, nil
}
