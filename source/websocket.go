package source

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/gorilla/websocket"

	"github.com/m-lab/ccstats/logging"
)

// wsReader exposes the text messages of a WebSocket as a line stream.
type wsReader struct {
	*io.PipeReader
	conn *websocket.Conn
	done chan struct{}
}

// DialWebSocket connects to url and returns the concatenation of the text
// messages it receives. Each message carries one or more log lines; a
// missing final newline is added. The stream ends when the peer closes the
// connection normally, when ctx is done or on Close.
func DialWebSocket(ctx context.Context, url string) (io.ReadCloser, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	r := &wsReader{PipeReader: pr, conn: conn, done: make(chan struct{})}
	go r.loop(pw)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-r.done:
		}
	}()
	return r, nil
}

func (r *wsReader) loop(pw *io.PipeWriter) {
	logging.Logger.Debug("source: websocket start")
	defer logging.Logger.Debug("source: websocket stop")
	defer close(r.done)
	for {
		kind, data, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			}
			pw.CloseWithError(err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
			data = append(data, '\n')
		}
		if _, err := pw.Write(data); err != nil {
			if !errors.Is(err, io.ErrClosedPipe) {
				logging.Logger.WithError(err).Warn("source: websocket write failed")
			}
			r.conn.Close()
			pw.CloseWithError(err)
			return
		}
	}
}

// Close stops the receive loop and waits for it to exit.
func (r *wsReader) Close() error {
	err := r.PipeReader.Close()
	r.conn.Close()
	<-r.done
	return err
}
