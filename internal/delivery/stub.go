package delivery

import (
	"net/http"

	"github.com/conneroisu/grievance/internal/logging"
	"github.com/conneroisu/grievance/internal/widget"
	"github.com/gin-gonic/gin"
)

// StubConfig is how the development stub answers.
type StubConfig struct {
	Status  int
	Message string
}

// Stub is a stand-in Mail Delivery Endpoint for local development. It
// decodes the submission, logs that it arrived and answers with the
// configured status. Nothing is stored or sent.
type Stub struct {
	engine *gin.Engine
	config StubConfig
	logger logging.Logger
}

// NewStub builds the stub. Call gin.SetMode beforehand to control gin's own
// debug output.
func NewStub(cfg StubConfig, logger logging.Logger) *Stub {
	if cfg.Status == 0 {
		cfg.Status = http.StatusOK
	}
	s := &Stub{
		engine: gin.New(),
		config: cfg,
		logger: logger.WithComponent("delivery-stub"),
	}
	s.engine.Use(gin.Recovery())
	s.engine.POST("/api/send", s.handleSend)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Stub) handleSend(c *gin.Context) {
	var input widget.FormInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, Reply{Message: "Invalid request body"})
		return
	}

	s.logger.Info(c.Request.Context(), "Grievance received",
		"name", input.Name,
		"email", input.Email,
		"message_length", len(input.Message),
		"answer_status", s.config.Status,
	)

	c.JSON(s.config.Status, Reply{Message: s.config.Message})
}
