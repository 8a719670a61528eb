package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dtremaine/clauseflow/internal/config"
	"github.com/dtremaine/clauseflow/internal/extract"
	"github.com/dtremaine/clauseflow/internal/llm"
	"github.com/dtremaine/clauseflow/internal/logging"
	"github.com/dtremaine/clauseflow/internal/policy"
	"github.com/dtremaine/clauseflow/internal/schedule"
	"github.com/dtremaine/clauseflow/internal/score"
	"github.com/dtremaine/clauseflow/internal/sign"
	"github.com/dtremaine/clauseflow/internal/textextract"
	"github.com/dtremaine/clauseflow/internal/workflow"
)

// WorkflowHandler exposes the contract review workflow over HTTP.
type WorkflowHandler struct {
	engine    *workflow.Engine
	extractor textextract.Extractor
	locks     *contractLocks
}

// NewWorkflowHandler wires the handler.
func NewWorkflowHandler(engine *workflow.Engine, extractor textextract.Extractor) *WorkflowHandler {
	return &WorkflowHandler{
		engine:    engine,
		extractor: extractor,
		locks:     newContractLocks(),
	}
}

type IngestRequest struct {
	ContractID   string `json:"contract_id"`
	DocumentText string `json:"document_text" binding:"required"`
}

type ApprovalRequest struct {
	Decision string `json:"decision" binding:"required"`
	Note     string `json:"note"`
}

type MeetingRequest struct {
	Date time.Time `json:"date" binding:"required"`
}

// Ingest accepts a contract document as JSON and starts the workflow.
func (h *WorkflowHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.ContractID == "" {
		req.ContractID = uuid.New().String()
	}
	h.ingest(c, req.ContractID, req.DocumentText)
}

// Upload accepts a contract document as a multipart file and starts the
// workflow. The file's MIME type must be supported by the text extractor.
func (h *WorkflowHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	text, err := h.extractor.Extract(fileBytes, header.Header.Get("Content-Type"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, textextract.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	contractID := c.PostForm("contract_id")
	if contractID == "" {
		contractID = uuid.New().String()
	}
	h.ingest(c, contractID, text)
}

func (h *WorkflowHandler) ingest(c *gin.Context, contractID, documentText string) {
	unlock := h.locks.acquire(contractID)
	defer unlock()

	ctx := withContractID(c, contractID)
	st, err := h.engine.Ingest(ctx, contractID, documentText)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	logging.Info(ctx, "contract ingested", "stage", st.Stage)
	c.JSON(http.StatusCreated, st)
}

// SubmitApproval resolves the approval checkpoint for a contract.
func (h *WorkflowHandler) SubmitApproval(c *gin.Context) {
	contractID := c.Param("id")
	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	decision := workflow.Decision(req.Decision)
	if !decision.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be approve or reject"})
		return
	}

	unlock := h.locks.acquire(contractID)
	defer unlock()

	ctx := withContractID(c, contractID)
	st, err := h.engine.SubmitApproval(ctx, contractID, decision, req.Note)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	logging.Info(ctx, "approval resolved", "decision", decision, "stage", st.Stage)
	c.JSON(http.StatusOK, st)
}

// SubmitMeetingDate resolves the date checkpoint for a contract.
func (h *WorkflowHandler) SubmitMeetingDate(c *gin.Context) {
	contractID := c.Param("id")
	var req MeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	unlock := h.locks.acquire(contractID)
	defer unlock()

	ctx := withContractID(c, contractID)
	st, err := h.engine.SubmitMeetingDate(ctx, contractID, req.Date)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}

	logging.Info(ctx, "meeting scheduled", "stage", st.Stage)
	c.JSON(http.StatusOK, st)
}

// GetState returns the current workflow state for a contract.
func (h *WorkflowHandler) GetState(c *gin.Context) {
	contractID := c.Param("id")
	st, err := h.engine.GetState(contractID)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// writeWorkflowError maps the error taxonomy onto HTTP statuses.
func writeWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrContractExists),
		errors.Is(err, workflow.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrInvalidDate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, llm.ErrModelUnavailable),
		errors.Is(err, llm.ErrModelTimeout),
		errors.Is(err, llm.ErrSchemaViolation),
		errors.Is(err, policy.ErrIndexUnavailable),
		errors.Is(err, extract.ErrExtractionFailed),
		errors.Is(err, score.ErrVerdictParse),
		errors.Is(err, sign.ErrSigningFailed),
		errors.Is(err, schedule.ErrSchedulingFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func withContractID(c *gin.Context, contractID string) context.Context {
	return context.WithValue(c.Request.Context(), logging.ContractIDKey, contractID)
}

// AuthHandler handles login against the configured user list.
type AuthHandler struct {
	config *config.Config
}

// NewAuthHandler wires the auth handler.
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{config: cfg}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Username  string `json:"username"`
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user := h.config.FindUser(req.Username)
	if user == nil || user.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, expiresAt, err := GenerateToken(user.Username, &h.config.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		Username:  user.Username,
	})
}
