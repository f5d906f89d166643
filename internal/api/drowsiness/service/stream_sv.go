package drowsinessService

import (
	"BlinkRise/internal/api/drowsiness"
	"BlinkRise/internal/entity"
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

const FrameBoundary = "frame"

// FrameWriter is the response body of a multipart stream.
type FrameWriter interface {
	io.Writer
	Flush() error
}

// StreamFrames writes processed frames to w as multipart/x-mixed-replace
// parts until the camera stops, a read fails, the client goes away or ctx
// ends. Only the device read runs under the camera lock.
func (s *drowsinessService) StreamFrames(ctx context.Context, w FrameWriter) error {
	ticker := time.NewTicker(s.opts.StreamInterval)
	defer ticker.Stop()

	var sent int
	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := s.camera.Read()
		if err != nil {
			if errors.Is(err, drowsiness.ErrCameraNotActive) {
				s.log.WithField("frames", sent).Info("Video stream ended, camera stopped")
				return nil
			}
			return fmt.Errorf("read frame after %d frames: %w", sent, err)
		}

		processed := s.pipeline.Process(ctx, frame)

		encoded, err := s.utils.EncodeJPEG(processed)
		if err != nil {
			return fmt.Errorf("encode frame: %w", err)
		}

		if err := writePart(w, encoded); err != nil {
			s.log.WithField("frames", sent).Debugf("Video stream client gone: %v", err)
			return nil
		}
		sent++

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func writePart(w FrameWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\n\r\n", FrameBoundary); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

// PushState sends the current snapshot right away and then on every state
// tick. A failed send means the subscriber left; that ends the loop normally.
func (s *drowsinessService) PushState(ctx context.Context, send func(entity.DrowsinessState) error) error {
	ticker := time.NewTicker(s.opts.StateInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := send(s.state.Get()); err != nil {
			s.log.Debugf("State subscriber gone: %v", err)
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
