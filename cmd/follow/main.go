// follow connects to a running lantern server and draws the tracked
// position as a bar in the terminal.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-lantern/internal/httpc"
	"github.com/teslashibe/go-lantern/internal/log"
	"github.com/teslashibe/go-lantern/pkg/tracking"
)

var (
	addr  = flag.String("addr", "localhost:8090", "lantern server host:port")
	width = flag.Int("width", 60, "bar width in characters")
	raw   = flag.Bool("raw", false, "print one JSON snapshot per line instead of a bar")

	list   = flag.Bool("list", false, "list cameras and exit")
	camera = flag.String("camera", "", "switch the server to this camera before following")
	invert = flag.String("invert", "", "set inversion before following: true or false")
)

func main() {
	flag.Parse()
	log.Init("info")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := configure(ctx); err != nil {
		log.Error("request failed", "error", err)
		os.Exit(1)
	}
	if *list {
		return
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/position"}
	backoff := 500 * time.Millisecond

	for {
		err := follow(ctx, u.String())
		if ctx.Err() != nil {
			fmt.Println()
			return
		}
		log.Warn("connection lost, retrying", "url", u.String(), "error", err, "in", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 10*time.Second)
	}
}

// configure applies the one-shot API flags.
func configure(ctx context.Context) error {
	api := func(path string) string {
		return (&url.URL{Scheme: "http", Host: *addr, Path: path}).String()
	}

	if *list {
		var out struct {
			Cameras []string `json:"cameras"`
			Active  string   `json:"active"`
		}
		if err := httpc.GetJSON(ctx, api("/api/cameras"), &out); err != nil {
			return err
		}
		for i, name := range out.Cameras {
			marker := " "
			if name == out.Active {
				marker = "*"
			}
			fmt.Printf("%s %d %s\n", marker, i, name)
		}
		return nil
	}

	if *camera != "" {
		if err := httpc.PostJSON(ctx, api("/api/camera"), map[string]string{"name": *camera}, nil); err != nil {
			return fmt.Errorf("select camera: %w", err)
		}
	}
	if *invert != "" {
		v, err := strconv.ParseBool(*invert)
		if err != nil {
			return fmt.Errorf("invert: %w", err)
		}
		if err := httpc.PostJSON(ctx, api("/api/invert"), map[string]bool{"invert": v}, nil); err != nil {
			return fmt.Errorf("set invert: %w", err)
		}
	}
	return nil
}

// follow reads snapshots until the connection fails or ctx is cancelled.
func follow(ctx context.Context, endpoint string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	log.Info("connected", "url", endpoint)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if *raw {
			os.Stdout.Write(append(data, '\n'))
			continue
		}

		var snap tracking.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Warn("bad snapshot", "error", err)
			continue
		}
		fmt.Print("\r" + render(snap, *width))
	}
}

// render draws a marker at the smoothed position, with the camera name and
// speed alongside.
func render(snap tracking.Snapshot, w int) string {
	if w < 3 {
		w = 3
	}
	if !snap.Ready {
		return fmt.Sprintf("[%s] %-12s", strings.Repeat(" ", w), snap.State)
	}

	pos := int(snap.Position*float64(w-1) + 0.5)
	pos = max(0, min(w-1, pos))

	bar := []byte(strings.Repeat("-", w))
	bar[pos] = '#'
	return fmt.Sprintf("[%s] %.3f %+7.2f/s %s", bar, snap.Position, snap.SmoothedSpeed, snap.Camera.Name)
}
