// Package webcam reads frames from a local capture device through OpenCV.
package webcam

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

var (
	ErrNotOpened  = errors.New("capture device not opened")
	ErrEmptyFrame = errors.New("capture device returned no frame")
)

type Webcam struct {
	index   int
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

func Open(index int) (*Webcam, error) {
	capture, err := gocv.VideoCaptureDevice(index)
	if err != nil {
		return nil, fmt.Errorf("open capture device %d: %w", index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("capture device %d: %w", index, ErrNotOpened)
	}

	return &Webcam{
		index:   index,
		capture: capture,
		mat:     gocv.NewMat(),
	}, nil
}

// Read grabs the next frame. The returned image is a copy and stays valid
// after further reads. OpenCV delivers BGR; ToImage converts to RGBA.
func (w *Webcam) Read() (image.Image, error) {
	if w.capture == nil || !w.capture.IsOpened() {
		return nil, ErrNotOpened
	}

	if ok := w.capture.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, fmt.Errorf("device %d: %w", w.index, ErrEmptyFrame)
	}

	img, err := w.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame from device %d: %w", w.index, err)
	}

	return img, nil
}

func (w *Webcam) Close() error {
	if w.capture == nil {
		return nil
	}

	matErr := w.mat.Close()
	capErr := w.capture.Close()
	w.capture = nil

	return errors.Join(capErr, matErr)
}
