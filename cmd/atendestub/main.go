// atendestub runs the in-memory development backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atendehq/atende/internal/stub"
	"go.uber.org/zap"
)

func main() {
	addrFlag := flag.String("addr", "127.0.0.1:8480", "listen address")
	autoReplyFlag := flag.Bool("auto-reply", false, "answer every operator message with a canned client reply")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	srv := stub.New(logger)
	srv.AutoReply = *autoReplyFlag
	srv.Seed()

	httpSrv := &http.Server{
		Addr:              *addrFlag,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("stub backend listening", zap.String("addr", *addrFlag))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	logger.Info("stub backend stopped")
}
