// Command kerneldash is an optional dashboard: it streams periodic
// kernel.Snapshot values as JSON over a websocket connection, so a browser
// (or any websocket client) can watch thread states and tick counts change
// live instead of reading simhost's stdout dump.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/websocket"

	"github.com/neofytr/neoRTOS/kernel"
)

func main() {
	var (
		addr     = flag.String("addr", ":8642", "address to serve the dashboard websocket on")
		periodMS = flag.Uint("period-ms", 1, "nominal milliseconds per tick")
		interval = flag.Duration("push-interval", 200*time.Millisecond, "how often to push a snapshot to connected clients")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "kerneldash: ", log.Ltime|log.Lshortfile)

	cfg := kernel.DefaultConfig()
	cfg.TimerPeriodMS = uint32(*periodMS)
	k := kernel.New(cfg)
	k.SetLogger(logger)
	k.ThreadStartAllNew()

	tickPeriod := time.Duration(*periodMS) * time.Millisecond
	go func() {
		ticker := time.NewTicker(tickPeriod)
		defer ticker.Stop()
		for range ticker.C {
			k.OnTick()
		}
	}()

	http.Handle("/snapshots", websocket.Handler(func(ws *websocket.Conn) {
		logger.Printf("client connected from %s", ws.Request().RemoteAddr)
		defer ws.Close()

		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := websocket.JSON.Send(ws, k.Snapshot()); err != nil {
				logger.Printf("client disconnected: %v", err)
				return
			}
		}
	}))

	logger.Printf("serving ws://%s/snapshots", *addr)
	logger.Fatal(http.ListenAndServe(*addr, nil))
}
