// Command statuswatch follows one loan application through the status gateway
// until it is approved or rejected.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zro-loans/internal/infrastructure/logging"
	"zro-loans/pkg/statuspoll"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "API base URL")
	appID := flag.String("id", "", "application id")
	token := flag.String("token", "", "client token returned at submission")
	interval := flag.Duration("interval", statuspoll.DefaultInterval, "poll interval")
	flag.Parse()

	log, closer := logging.New(logging.Options{Level: "info", Format: "text"})
	defer closer.Close()

	if *appID == "" || *token == "" {
		log.Error("both -id and -token are required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := statuspoll.NewClient(*baseURL, 10*time.Second)
	decided := make(chan *statuspoll.Application, 1)
	enc := json.NewEncoder(os.Stdout)

	p := statuspoll.NewPoller(client.Fetcher(*appID, *token), func(s statuspoll.Snapshot) {
		_ = enc.Encode(s)
		if s.Application.Terminal() {
			select {
			case decided <- s.Application:
			default:
			}
		}
	},
		statuspoll.WithInterval(*interval),
		statuspoll.WithErrorHandler(func(err error) {
			if errors.Is(err, statuspoll.ErrNotFound) {
				log.Warn("application not found; check id and token")
				return
			}
			log.Warn("status lookup failed", "err", err)
		}),
	)
	if err := p.Start(ctx); err != nil {
		log.Error("start poller", "err", err)
		os.Exit(1)
	}

	select {
	case app := <-decided:
		p.Stop()
		log.Info("decision reached", "id", app.ID, "status", app.Status)
	case <-ctx.Done():
		p.Stop()
	}
}
