package routes

import (
	"net/http"

	"codeexec/model"
	"codeexec/pkg"
	"codeexec/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const msgInvalidRequest = "Invalid request format"

// RouterOptions configures the HTTP surface.
type RouterOptions struct {
	CORSOrigins []string
	RateLimiter *pkg.RateLimiter
	Logger      *logrus.Logger
}

type ExecutionHandler struct {
	service *service.CompilerService
	logger  *logrus.Logger
}

func NewExecutionHandler(svc *service.CompilerService, logger *logrus.Logger) *ExecutionHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ExecutionHandler{service: svc, logger: logger}
}

// HandleExecute runs submitted code. Output is returned only on success.
func (h *ExecutionHandler) HandleExecute(c *gin.Context) {
	var req model.ExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Debug("Malformed execution request")
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: msgInvalidRequest})
		return
	}

	res := h.service.Execute(c.Request.Context(), req)
	if res.Error != nil {
		c.JSON(service.StatusCode(res.Error), model.ErrorResponse{Error: res.Error.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"output":    res.Output,
		"truncated": res.Truncated,
	})
}

func (h *ExecutionHandler) HandleInput(c *gin.Context) {
	c.JSON(http.StatusOK, model.FileContentResponse{Content: h.service.LastInput()})
}

func (h *ExecutionHandler) HandleOutput(c *gin.Context) {
	c.JSON(http.StatusOK, model.FileContentResponse{Content: h.service.LastOutput()})
}

func (h *ExecutionHandler) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stats())
}

func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NewRouter wires the handlers, CORS and request logging into a gin engine.
func NewRouter(svc *service.CompilerService, opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery(), pkg.RequestLogger(opts.Logger))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	h := NewExecutionHandler(svc, opts.Logger)

	r.GET("/healthz", HandleHealth)

	api := r.Group("/api")
	if opts.RateLimiter != nil {
		api.POST("/code", opts.RateLimiter.Limit(), h.HandleExecute)
	} else {
		api.POST("/code", h.HandleExecute)
	}
	api.GET("/input", h.HandleInput)
	api.GET("/output", h.HandleOutput)
	api.GET("/status", h.HandleStatus)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
