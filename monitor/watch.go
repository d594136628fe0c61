package monitor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Watch connects to the stream of a Server at url (ws:// or wss://) and
// calls fn for each update until ctx is done, the server closes the
// stream or fn returns an error.
func Watch(ctx context.Context, url string, fn func(Update) error) error {
	raw, br, _, err := ws.Dial(ctx, url)
	if err != nil {
		return fmt.Errorf("monitor: dial: %w", err)
	}
	if br != nil {
		defer ws.PutReader(br)
	}
	conn := newClientConn(raw, br)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("monitor: read: %w", err)
		}

		var u Update
		if err := json.Unmarshal(data, &u); err != nil {
			return fmt.Errorf("monitor: invalid update: %w", err)
		}
		if err := fn(u); err != nil {
			return err
		}
	}
}
