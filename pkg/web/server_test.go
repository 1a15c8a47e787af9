package web

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/frame"
	"github.com/teslashibe/go-recognition/pkg/labels"
	"github.com/teslashibe/go-recognition/pkg/oracle"
	"github.com/teslashibe/go-recognition/pkg/pipeline"
	"github.com/teslashibe/go-recognition/pkg/preprocess"
	"github.com/teslashibe/go-recognition/pkg/present"
)

func newTestServer(t *testing.T, orc oracle.Classifier, opts ...Option) (*Server, *pipeline.Pipeline) {
	t.Helper()
	table, err := labels.New([]string{"cat", "dog", "bird"})
	require.NoError(t, err)
	pre, err := preprocess.New(preprocess.DefaultConfig())
	require.NoError(t, err)
	presenter := present.New(table, io.Discard, nil, present.WithLogger(log.Discard()))
	pipe, err := pipeline.New(pre, orc, presenter, pipeline.WithModel(oracle.DenseNet), pipeline.WithLogger(log.Discard()))
	require.NoError(t, err)

	srv := NewServer("127.0.0.1:0", pipe, append([]Option{WithLogger(log.Discard())}, opts...)...)
	pipe.Observe(srv.Publish)
	return srv, pipe
}

func pngUpload(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetRGBA(0, 0, color.RGBA{A: 255})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, "sample.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, img))
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

// pngHeader returns a PNG signature plus IHDR declaring a w x h RGBA image
// and nothing else.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 17)
	copy(ihdr, "IHDR")
	binary.BigEndian.PutUint32(ihdr[4:], w)
	binary.BigEndian.PutUint32(ihdr[8:], h)
	ihdr[12] = 8 // bit depth
	ihdr[13] = 6 // RGBA
	_ = binary.Write(&buf, binary.BigEndian, uint32(13))
	buf.Write(ihdr)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr))
	return buf.Bytes()
}

func solidFrame() frame.RawImage {
	return frame.Solid(8, 8, frame.BGR, 1, 2, 3)
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, oracle.NewMock(1, 2, 3))

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "densenet", body["model"])
	assert.Equal(t, resp.Header.Get("X-Request-ID"), body["request_id"])
}

func TestRequestID_Propagated(t *testing.T) {
	srv, _ := newTestServer(t, oracle.NewMock(1, 2, 3))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestModels(t *testing.T) {
	srv, _ := newTestServer(t, oracle.NewMock(1, 2, 3))

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Models []ModelInfo `json:"models"`
	}
	decode(t, resp, &body)
	require.Len(t, body.Models, 5)

	active := 0
	for _, m := range body.Models {
		if m.Active {
			active++
			assert.Equal(t, "densenet", m.Name)
			assert.Equal(t, "densenet.onnx", m.Filename)
		}
	}
	assert.Equal(t, 1, active)
}

func TestClassify_Upload(t *testing.T) {
	srv, _ := newTestServer(t, oracle.NewMock(2.0, 1.0, 0.1))

	body, contentType := pngUpload(t, "image")
	req := httptest.NewRequest(http.MethodPost, "/api/classify", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Classification pipeline.Classification `json:"classification"`
		RequestID      string                  `json:"request_id"`
	}
	decode(t, resp, &out)
	assert.NotEmpty(t, out.RequestID)
	assert.Equal(t, 16, out.Classification.Width)
	assert.Equal(t, 12, out.Classification.Height)
	require.Len(t, out.Classification.Predictions, 3)
	assert.Equal(t, "cat", out.Classification.Predictions[0].Label)
	assert.InDelta(t, 0.659, out.Classification.Predictions[0].Probability, 0.001)

	ev, ok := srv.Latest()
	require.True(t, ok)
	assert.Equal(t, "classification", ev.Type)
	assert.Equal(t, "densenet", ev.Classification.Model)
}

func TestClassify_Errors(t *testing.T) {
	tests := []struct {
		name   string
		orc    oracle.Classifier
		field  string
		raw    []byte
		opts   []Option
		status int
	}{
		{"missing field", oracle.NewMock(1, 2, 3), "file", nil, nil, http.StatusBadRequest},
		{"not an image", oracle.NewMock(1, 2, 3), "image", []byte("definitely not a png"), nil, http.StatusBadRequest},
		{"remote failure", oracle.WithError(&oracle.APIError{StatusCode: 503, Message: "down"}), "image", nil, nil, http.StatusBadGateway},
		{"wrong class count", oracle.NewMock(1, 2), "image", nil, nil, http.StatusBadGateway},
		{"over pixel budget", oracle.NewMock(1, 2, 3), "image", nil, []Option{WithMaxPixels(100)}, http.StatusRequestEntityTooLarge},
		{"huge declared size", oracle.NewMock(1, 2, 3), "image", pngHeader(40000, 40000), nil, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.orc, tt.opts...)

			var body *bytes.Buffer
			var contentType string
			if tt.raw != nil {
				body = &bytes.Buffer{}
				w := multipart.NewWriter(body)
				part, err := w.CreateFormFile(tt.field, "upload.png")
				require.NoError(t, err)
				_, _ = part.Write(tt.raw)
				require.NoError(t, w.Close())
				contentType = w.FormDataContentType()
			} else {
				body, contentType = pngUpload(t, tt.field)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/classify", body)
			req.Header.Set("Content-Type", contentType)
			resp, err := srv.App().Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var out ErrorResponse
			decode(t, resp, &out)
			assert.NotEmpty(t, out.Error)
			assert.NotEmpty(t, out.RequestID)

			if tt.status == http.StatusRequestEntityTooLarge {
				if m, ok := tt.orc.(*oracle.Mock); ok {
					assert.Zero(t, m.Calls(), "oversized upload reached the oracle")
				}
			}
		})
	}
}

func TestLatest_EmptyThenPublished(t *testing.T) {
	srv, pipe := newTestServer(t, oracle.NewMock(0, 0, 9))

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body, contentType := pngUpload(t, "image")
	req := httptest.NewRequest(http.MethodPost, "/api/classify", body)
	req.Header.Set("Content-Type", contentType)
	_, err = srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, oracle.DenseNet, pipe.Model())

	resp, err = srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/latest", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Event Event `json:"event"`
	}
	decode(t, resp, &out)
	assert.Equal(t, "bird", out.Event.Classification.Predictions[0].Label)
}

func TestWebsocket_UpgradeRequired(t *testing.T) {
	srv, _ := newTestServer(t, oracle.NewMock(1, 2, 3))

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/ws/predictions", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestWebsocket_ReceivesClassifications(t *testing.T) {
	srv, pipe := newTestServer(t, oracle.NewMock(0.5, 4, 0.5))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + "/ws/predictions"
	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return srv.Hub().ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = pipe.Classify(ctx, solidFrame())
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "classification", ev.Type)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "dog", ev.Classification.Predictions[0].Label)

	cancel()
	select {
	case <-srv.Hub().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
}
