package websocketPkg

import (
	"BlinkRise/internal/entity"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var ErrDetectorUnavailable = errors.New("face mesh detector unavailable")

// IFaceMesh detects facial landmarks in a JPEG-encoded frame. A nil set with
// a nil error means no face was found.
type IFaceMesh interface {
	Detect(ctx context.Context, jpeg []byte) (*entity.LandmarkSet, error)
	Close()
}

// FaceMeshOptions are forwarded to the detector service on connect.
type FaceMeshOptions struct {
	StaticImageMode        bool
	MaxNumFaces            int
	RefineLandmarks        bool
	MinDetectionConfidence float64
	MinTrackingConfidence  float64
}

func DefaultFaceMeshOptions() FaceMeshOptions {
	return FaceMeshOptions{
		StaticImageMode:        false,
		MaxNumFaces:            1,
		RefineLandmarks:        true,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
	}
}

type faceMeshClient struct {
	log          *logrus.Logger
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewFaceMeshClient returns a client for the face mesh service at rawURL.
// The connection is made on the first Detect call and re-dialed on the call
// after any failure.
func NewFaceMeshClient(log *logrus.Logger, rawURL string, opts FaceMeshOptions) (IFaceMesh, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse detector url: %w", err)
	}

	q := u.Query()
	q.Set("static_image_mode", strconv.FormatBool(opts.StaticImageMode))
	q.Set("max_num_faces", strconv.Itoa(opts.MaxNumFaces))
	q.Set("refine_landmarks", strconv.FormatBool(opts.RefineLandmarks))
	q.Set("min_detection_confidence", strconv.FormatFloat(opts.MinDetectionConfidence, 'f', -1, 64))
	q.Set("min_tracking_confidence", strconv.FormatFloat(opts.MinTrackingConfidence, 'f', -1, 64))
	u.RawQuery = q.Encode()

	return &faceMeshClient{
		log:          log,
		url:          u.String(),
		readTimeout:  2 * time.Second,
		writeTimeout: time.Second,
	}, nil
}

func (c *faceMeshClient) connect(ctx context.Context) (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrDetectorUnavailable, c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.log.Warnf("Error sending pong to face mesh service: %v", err)
		}
		return nil
	})

	c.log.Infof("Connected to face mesh service at %s", c.url)
	c.conn = conn

	return conn, nil
}

func (c *faceMeshClient) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Detect sends one frame and waits for its reply. Calls are serialized; the
// service answers frames strictly in order.
func (c *faceMeshClient) Detect(ctx context.Context, frame []byte) (*entity.LandmarkSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.drop()
		return nil, fmt.Errorf("error sending frame to face mesh service: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.drop()
		return nil, fmt.Errorf("error reading face mesh response: %w", err)
	}

	var result entity.FaceMeshResult
	if err := jsoniter.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling face mesh response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("face mesh service: %s", result.Error)
	}

	if len(result.Faces) == 0 {
		return nil, nil
	}

	// single subject: anything past the first face is ignored
	face := result.Faces[0]
	return &face, nil
}

func (c *faceMeshClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeTimeout),
		)
	}
	c.drop()
}
