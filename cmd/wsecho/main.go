// Command wsecho runs a WebSocket echo server.
//
//	wsecho -addr localhost:8080 -path /echo
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/sloghuman"
	"github.com/gin-gonic/gin"
	"golang.org/x/xerrors"

	"serac.dev/websocket"
)

func main() {
	gin.SetMode(gin.ReleaseMode)
	log := slog.Make(sloghuman.Sink(os.Stderr))

	err := run(log, os.Args[1:])
	if err != nil {
		log.Fatal(context.Background(), "wsecho failed", slog.Error(err))
	}
}

// run parses args, serves until SIGINT or SIGTERM and then shuts
// down the HTTP server and every accepted WebSocket.
func run(log slog.Logger, args []string) error {
	fs := flag.NewFlagSet("wsecho", flag.ContinueOnError)
	addr := fs.String("addr", "localhost:8080", "address to listen on")
	path := fs.String("path", "/", "path WebSocket clients connect to")
	every := fs.Duration("rate", time.Millisecond*100, "minimum interval between echoed messages")
	burst := fs.Int("burst", 10, "messages allowed in a burst")
	verbose := fs.Bool("v", false, "log connection lifecycle")
	err := fs.Parse(args)
	if err != nil {
		return err
	}
	if *verbose {
		log = log.Leveled(slog.LevelDebug)
	}

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		return xerrors.Errorf("failed to listen: %w", err)
	}
	log.Info(context.Background(), "listening", slog.F("url", "ws://"+l.Addr().String()+*path))

	var g websocket.Grace
	s := &http.Server{
		Handler: g.Handler(router(*path, echoServer{
			log:   log,
			every: *every,
			burst: *burst,
		})),
		ReadHeaderTimeout: time.Second * 10,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- s.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return xerrors.Errorf("failed to serve: %w", err)
	case sig := <-sigs:
		log.Info(context.Background(), "shutting down", slog.F("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	err = s.Shutdown(ctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return xerrors.Errorf("failed to shutdown http server: %w", err)
	}
	return g.Shutdown(ctx)
}

// router mounts the echo server on path. Plain HTTP requests to path
// get a short hint instead of a 404.
func router(path string, es echoServer) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	srv := websocket.Serve(es.serve, &websocket.AcceptOptions{
		Logger: es.log,
	})
	srv.Fallback = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "connect with a WebSocket client", http.StatusUpgradeRequired)
	})
	r.GET(path, gin.WrapH(srv))
	return r
}
