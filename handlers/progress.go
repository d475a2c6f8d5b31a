package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"indibox/logger"
	"indibox/upload"
)

// job is an upload-backed operation that reports progress as it stores files.
type job func(ctx context.Context, progress upload.ProgressFunc) (any, error)

func wantsProgress(c *fiber.Ctx) bool {
	return c.Query("progress") == "sse"
}

// respond runs j and writes its result as JSON, or as a server-sent event
// stream of progress events followed by one result or error event.
func respond(c *fiber.Ctx, status int, j job) error {
	if !wantsProgress(c) {
		out, err := j(c.UserContext(), nil)
		if err != nil {
			return err
		}
		return c.Status(status).JSON(out)
	}

	// c is recycled once the handler returns; the stream writer must not touch it.
	ctx := context.WithoutCancel(c.UserContext())
	path := c.Path()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		out, err := j(ctx, func(percent float64) {
			writeEvent(w, "progress", fiber.Map{"percent": percent})
		})
		if err != nil {
			code, body := classify(err)
			if code >= fiber.StatusInternalServerError {
				logger.Error().Err(err).Str("path", path).Msg("upload stream failed")
			}
			writeEvent(w, "error", fiber.Map{"status": code, "error": body.Error, "details": body.Details})
			return
		}
		writeEvent(w, "result", out)
	})
	return nil
}

func writeEvent(w *bufio.Writer, name string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Error().Err(err).Str("event", name).Msg("encode event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	if err := w.Flush(); err != nil {
		logger.Debug().Err(err).Msg("client went away")
	}
}
