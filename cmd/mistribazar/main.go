package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mistribazar/internal/dispatch"
	acceptanceapi "mistribazar/internal/http-server/handlers/api/acceptance"
	bidapi "mistribazar/internal/http-server/handlers/api/bid"
	jobapi "mistribazar/internal/http-server/handlers/api/job"
	"mistribazar/internal/http-server/handlers/api/ping"
	"mistribazar/internal/storage/memory"
	"mistribazar/internal/storage/postgres"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func main() {

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := godotenv.Load()
	if err != nil {
		log.Error("Failed to load .env", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
	}

	var store dispatch.Store
	connStr := os.Getenv("POSTGRES_CONN")
	if connStr != "" {
		storage, err := postgres.New(connStr)
		if err != nil {
			log.Error("Failed to connect to postgresql", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
			os.Exit(1)
		}
		store = storage
	} else {
		log.Warn("POSTGRES_CONN is empty, using in-memory storage")
		store = memory.New()
	}

	engine := dispatch.New(log, store)

	router := chi.NewRouter()

	router.Route("/api", func(r chi.Router) {
		r.Get("/ping", ping.New(log))
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/new", jobapi.NewPostJob(log, engine))
			r.Get("/", jobapi.NewGetJobs(log, engine))
			r.Get("/my", jobapi.NewGetMyJobs(log, engine))
			r.Get("/nearby", jobapi.NewGetNearbyJobs(log, engine))
			r.Get("/{jobId}/status", jobapi.NewGetJobStatus(log, engine))
			r.Patch("/{jobId}/edit", jobapi.NewPatchJob(log, engine))
			r.Put("/{jobId}/cancel", jobapi.NewPutJobCancel(log, engine))
			r.Put("/{jobId}/complete", jobapi.NewPutJobComplete(log, engine))
		})
		r.Route("/bids", func(r chi.Router) {
			r.Post("/new", bidapi.NewPostBid(log, engine))
			r.Get("/my", bidapi.NewGetMyBids(log, engine))
			r.Get("/{jobId}/list", bidapi.NewGetJobBids(log, engine))
			r.Put("/{bidId}/accept", bidapi.NewPutBidAccept(log, engine))
			r.Put("/{bidId}/reject", bidapi.NewPutBidReject(log, engine))
			r.Put("/{bidId}/withdraw", bidapi.NewPutBidWithdraw(log, engine))
		})
		r.Route("/acceptances", func(r chi.Router) {
			r.Post("/new", acceptanceapi.NewPostDecision(log, engine))
			r.Get("/my", acceptanceapi.NewGetMyAcceptances(log, engine))
			r.Get("/{jobId}/list", acceptanceapi.NewGetJobAcceptances(log, engine))
		})
	})

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Error("failed to start the server")
		}
	}()

	log.Info("starting server", slog.String("addr", addr))
	<-done
	log.Info("server stopped")
}
