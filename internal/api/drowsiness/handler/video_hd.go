package drowsinessHandler

import (
	"BlinkRise/internal/api/drowsiness"
	drowsinessService "BlinkRise/internal/api/drowsiness/service"
	contextPkg "BlinkRise/pkg/context"
	"BlinkRise/pkg/handlerUtil"
	"BlinkRise/pkg/log"
	"bufio"
	"github.com/gofiber/fiber/v2"
)

// VideoFeed streams annotated frames until the camera stops or the client
// disconnects. The body writer outlives the handler, so nothing from ctx may
// be touched inside it.
func (h *DrowsinessHandler) VideoFeed(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	if !h.drowsinessService.CameraActive() {
		return errHandler.Handle(ctx, requestID, drowsiness.ErrCameraNotActive, ctx.Path(), "video_feed")
	}

	c, cancel := contextPkg.FromFiberCtx(ctx)

	ctx.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+drowsinessService.FrameBoundary)
	ctx.Set(fiber.HeaderCacheControl, "no-cache")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		log.WithRequestID(c).Info("Video stream client connected")
		if err := h.drowsinessService.StreamFrames(c, w); err != nil {
			log.WithRequestID(c).WithField("error", err.Error()).Error("Video stream aborted")
		}
	})

	return nil
}
