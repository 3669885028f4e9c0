package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Andrvat/MultiUserChat/internal/server"
)

func main() {
	cfg := server.NewConfigFromEnv()

	chat := server.NewServer(cfg, nil)
	if err := chat.Start(""); err != nil {
		log.Fatalf("Failed to start chat server: %v", err)
	}

	// Mirror user add/remove notifications into the service log; a GUI or
	// monitoring surface would subscribe to the same stream.
	go func() {
		for event := range chat.Events() {
			switch event.Kind {
			case server.KindNotifyAdd:
				log.Printf("User %s is online", event.Username)
			case server.KindNotifyRemove:
				log.Printf("User %s is offline", event.Username)
			}
		}
	}()

	var gateway *server.Gateway
	if cfg.HTTPAddr != "" {
		gateway = server.NewGateway(chat)
		go func() {
			if err := gateway.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Gateway stopped with error: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	if gateway != nil {
		if err := gateway.Shutdown(5 * time.Second); err != nil {
			log.Printf("Gateway shutdown failed: %v", err)
		}
	}
	if err := chat.Stop(); err != nil {
		log.Printf("Chat server stop failed: %v", err)
	}
	log.Println("Shutdown complete")
}
