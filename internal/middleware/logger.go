package middleware

import (
	"fmt"
	"strings"

	"estoque-service/internal/events"
	"estoque-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cores ANSI do log de acesso e do banner
const (
	resetColor   = "\033[0m"
	boldColor    = "\033[1m"
	redColor     = "\033[31m"
	greenColor   = "\033[32m"
	yellowColor  = "\033[33m"
	blueColor    = "\033[34m"
	magentaColor = "\033[35m"
	cyanColor    = "\033[36m"
	whiteColor   = "\033[37m"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderUsuario   = "X-Usuario-Email"

	chaveSessao    = "sessao"
	chaveRequestID = "request_id"
)

// LoggerMiddleware log de acesso colorido no stdout e estruturado no zap.
// 4xx sai como warn e 5xx como error.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		usuario := "-"
		if sessao, ok := param.Keys[chaveSessao].(models.Sessao); ok && sessao.UsuarioEmail != "" {
			usuario = sessao.UsuarioEmail
		}

		fields := []zap.Field{
			zap.String("method", param.Method),
			zap.String("path", param.Path),
			zap.Int("status_code", param.StatusCode),
			zap.Duration("latency", param.Latency),
			zap.String("client_ip", param.ClientIP),
			zap.String("usuario", usuario),
		}
		if id, ok := param.Keys[chaveRequestID].(string); ok {
			fields = append(fields, zap.String("request_id", id))
		}
		if param.ErrorMessage != "" {
			fields = append(fields, zap.String("error", param.ErrorMessage))
		}

		switch {
		case param.StatusCode >= 500:
			logger.Error("HTTP Request", fields...)
		case param.StatusCode >= 400:
			logger.Warn("HTTP Request", fields...)
		default:
			logger.Info("HTTP Request", fields...)
		}

		return fmt.Sprintf("%s %s%-6s%s %s %s%d%s %dms %s %s\n",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			corMetodo(param.Method), param.Method, resetColor,
			param.Path,
			corStatus(param.StatusCode), param.StatusCode, resetColor,
			param.Latency.Milliseconds(),
			param.ClientIP,
			usuario,
		)
	})
}

// RequestIDMiddleware propaga ou gera o X-Request-ID; ele também vira o
// correlation_id dos eventos publicados durante a requisição
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		c.Set(chaveRequestID, requestID)
		c.Request = c.Request.WithContext(events.WithCorrelationID(c.Request.Context(), requestID))
		c.Next()
	}
}

// SessaoMiddleware resolve o usuário que está operando a partir do header
func SessaoMiddleware(usuarioPadrao string) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUsuario)))
		if email == "" {
			email = usuarioPadrao
		}
		c.Set(chaveSessao, models.Sessao{UsuarioEmail: email})
		c.Next()
	}
}

// SessaoDe devolve a sessão gravada por SessaoMiddleware
func SessaoDe(c *gin.Context) models.Sessao {
	if s, ok := c.Get(chaveSessao); ok {
		if sessao, ok := s.(models.Sessao); ok {
			return sessao
		}
	}
	return models.Sessao{}
}

func corStatus(statusCode int) string {
	switch statusCode / 100 {
	case 2:
		return greenColor
	case 3:
		return cyanColor
	case 4:
		return yellowColor
	case 5:
		return redColor
	}
	return whiteColor
}

var coresMetodo = map[string]string{
	"GET":    greenColor,
	"POST":   blueColor,
	"PUT":    yellowColor,
	"DELETE": redColor,
	"PATCH":  magentaColor,
}

func corMetodo(method string) string {
	if cor, ok := coresMetodo[method]; ok {
		return cor
	}
	return whiteColor
}
