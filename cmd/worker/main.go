package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smartattend/internal/config"
	"smartattend/internal/notify"
	"smartattend/internal/store"
)

// Worker consumes attendance events and maintains per-session headcount
// counters in Redis so the teacher dashboard reads a live total instead
// of counting the ledger on every refresh.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var bus notify.Bus
	if cfg.BusBackend == "memory" {
		// A memory bus lives inside one process; the worker would never
		// see its events. Kept for running the loop in isolation.
		log.Println("WARNING: memory bus configured, worker will receive no events")
		bus = notify.NewInMemory(64)
	} else {
		bus = notify.NewRedisBus(redisClient.Client)
	}

	events, err := bus.Subscribe(ctx)
	if err != nil {
		log.Fatalf("bus subscribe failed: %v", err)
	}

	log.Println("worker started, waiting for attendance events...")
	for evt := range events {
		if evt.Kind != notify.KindAttendanceMarked {
			continue
		}

		key := evt.HeadcountKey()
		count, err := redisClient.Client.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("headcount incr failed for %s: %v", key, err)
			continue
		}
		// Counters are per calendar day; let stale ones fall out on
		// their own.
		_ = redisClient.Client.Expire(ctx, key, 48*time.Hour).Err()

		log.Printf("roll %d marked in %s %s %s, headcount now %d",
			evt.RollNumber, evt.Subject, evt.Time, evt.Room, count)
	}

	log.Println("worker stopped")
}
