package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/digestbot/internal/domain/bot"
	"github.com/yanqian/digestbot/internal/domain/summarizer"
	apperrors "github.com/yanqian/digestbot/pkg/errors"
)

const defaultJobsLimit = 20

// Handler wires the HTTP transport to the dispatcher and job history.
type Handler struct {
	dispatcher     bot.Service
	jobs           bot.JobRepository
	timecodeStep   int
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(dispatcher bot.Service, jobs bot.JobRepository, timecodeStep int, maxUploadBytes int64, logger *slog.Logger) *Handler {
	return &Handler{
		dispatcher:     dispatcher,
		jobs:           jobs,
		timecodeStep:   timecodeStep,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "http.handler"),
	}
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Summarize runs the chunked summarizer over a JSON payload.
func (h *Handler) Summarize(c *gin.Context) {
	var req summarizer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.dispatcher.Summarize(c.Request.Context(), bot.SourceHTTP, conversationID(c), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Transcribe accepts a multipart audio upload and returns the transcript with timecodes.
func (h *Handler) Transcribe(c *gin.Context) {
	step := h.timecodeStep
	if raw := c.Query("step"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "step must be an integer", err))
			return
		}
		step = parsed
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, "upload_too_large", "upload exceeds size limit", err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "multipart field \"file\" is required", err))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, apperrors.CodeIOFailure, errMessage(err), err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, apperrors.CodeIOFailure, errMessage(err), err))
		return
	}

	upload := bot.Upload{
		Name:       filepath.Base(fileHeader.Filename),
		Kind:       uploadKind(fileHeader.Filename, fileHeader.Header.Get("Content-Type")),
		MimeType:   fileHeader.Header.Get("Content-Type"),
		Data:       data,
		ReceivedAt: time.Now().UTC(),
	}

	result, err := h.dispatcher.Transcribe(c.Request.Context(), bot.SourceHTTP, conversationID(c), upload, step)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListJobs returns recent job history.
func (h *Handler) ListJobs(c *gin.Context) {
	limit := defaultJobsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be a positive integer", err))
			return
		}
		limit = parsed
	}

	jobs, err := h.jobs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "jobs_failed", errMessage(err), err))
		return
	}
	if jobs == nil {
		jobs = []bot.Job{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// conversationID keys HTTP jobs by token subject when auth is on, otherwise by client IP.
func conversationID(c *gin.Context) string {
	if claims, ok := getClaims(c); ok && claims.Subject != "" {
		return "http:" + claims.Subject
	}
	return "http:" + c.ClientIP()
}

// Voice notes arrive as ogg/opus; everything else is treated as an audio file.
func uploadKind(name, contentType string) bot.AttachmentKind {
	if strings.EqualFold(filepath.Ext(name), ".ogg") || strings.Contains(contentType, "ogg") {
		return bot.AttachmentVoice
	}
	return bot.AttachmentAudio
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
