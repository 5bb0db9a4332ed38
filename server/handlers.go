package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/SeanMkhabela/stackgen-backend/archive"
	"github.com/SeanMkhabela/stackgen-backend/auth"
	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/stacks"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Token string `json:"token" binding:"required"`
}

type issueKeyRequest struct {
	Label string `json:"label"`
}

type enqueueJobRequest struct {
	StackID string `json:"stack_id" binding:"required"`
}

// register POST /auth/register
func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := s.deps.Accounts.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email})
}

// token POST /auth/token
func (s *Server) token(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	ctx := c.Request.Context()
	user, err := s.deps.Accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		s.writeAuthError(c, err)
		return
	}

	token, err := s.deps.Authenticator.GenerateToken(ctx, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.Email},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "Bearer"})
}

// refresh POST /auth/refresh
func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	token, err := s.deps.Authenticator.RefreshToken(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "Bearer"})
}

// issueKey POST /keys
func (s *Server) issueKey(c *gin.Context) {
	var req issueKeyRequest
	// label 可选，body 可以为空
	_ = c.ShouldBindJSON(&req)

	raw, rec, err := s.deps.Keys.Issue(c.Request.Context(), auth.Subject(c), req.Label)
	if err != nil {
		s.writeAuthError(c, err)
		return
	}

	// 明文密钥只在这里出现一次
	c.JSON(http.StatusCreated, gin.H{
		"key":        raw,
		"label":      rec.Label,
		"owner":      rec.Owner,
		"created_at": rec.CreatedAt,
	})
}

// generate GET /generate-boilerplate/:stack
func (s *Server) generate(c *gin.Context) {
	stackID := c.Param("stack")

	err := s.deps.Archive.BuildOrFetch(c.Request.Context(), stackID, c.Writer)
	if err == nil {
		return
	}

	var verr *stacks.ValidationError
	if xerrors.As(err, &verr) {
		c.JSON(verr.StatusCode, verr)
		return
	}

	// 流已经开始后无法再换状态码，只能断开并记日志
	if c.Writer.Written() {
		s.logger.Error("archive stream aborted mid-response",
			clog.String("stack", stackID), clog.Error(err))
		c.Abort()
		return
	}

	s.logger.Error("archive build failed",
		clog.String("stack", stackID), clog.Error(err))

	// 首字节尚未发出，撤掉已设置的下载头再返回 JSON 错误
	c.Writer.Header().Del("Content-Type")
	c.Writer.Header().Del("Content-Disposition")

	kind := "internal_error"
	if archive.IsStreamingFailure(err) {
		kind = "streaming_failure"
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   kind,
		"message": "failed to build archive for stack " + stackID,
	})
}

// enqueueJob POST /jobs
func (s *Server) enqueueJob(c *gin.Context) {
	var req enqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stack_id is required"})
		return
	}

	// 入队前用与下载接口一致的规则拒绝未知/未落地的栈
	if _, verr := s.deps.Catalog.Resolve(req.StackID); verr != nil {
		c.JSON(verr.StatusCode, verr)
		return
	}

	job, err := s.deps.Jobs.Enqueue(c.Request.Context(), req.StackID, auth.Subject(c))
	if err != nil {
		s.logger.Error("job enqueue failed", clog.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue job"})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// jobStatus GET /jobs/:id
func (s *Server) jobStatus(c *gin.Context) {
	job, ok := s.deps.Jobs.Status(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job_not_found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// breakerHealth GET /health/breakers
func (s *Server) breakerHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Breakers.Health())
}

// writeAuthError 认证/账号类错误的状态码映射
func (s *Server) writeAuthError(c *gin.Context, err error) {
	switch {
	case xerrors.Is(err, auth.ErrStoreDegraded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily degraded"})
	case xerrors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case xerrors.HasCode(err, xerrors.CodeValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("unexpected auth error", clog.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
