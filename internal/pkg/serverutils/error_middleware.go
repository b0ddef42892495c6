package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"pdfchat-be/internal/pkg/logger"
	"pdfchat-be/pkg/rag"
)

// StatusFor maps an error returned by a handler to its HTTP status.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, rag.ErrEmptyInput):
		return fiber.StatusBadRequest
	case rag.IsDocumentLoad(err):
		return fiber.StatusBadRequest
	case rag.IsRetrieval(err), rag.IsUpstream(err):
		return fiber.StatusInternalServerError
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned further down the chain into
// {"error": ...} responses. Server side failures are logged.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return writeError(ctx, err, log)
	}
}

// ErrorHandler is the fiber.Config hook for errors raised outside the
// middleware chain, e.g. a body over the size limit.
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		return writeError(ctx, err, log)
	}
}

func writeError(ctx *fiber.Ctx, err error, log logger.ILogger) error {
	code := StatusFor(err)
	if code >= fiber.StatusInternalServerError {
		log.Error("HTTP", "Request failed", map[string]interface{}{
			"method": ctx.Method(),
			"path":   ctx.Path(),
			"status": code,
			"error":  err.Error(),
		})
	}
	return ctx.Status(code).JSON(ErrorResponse(err.Error()))
}
