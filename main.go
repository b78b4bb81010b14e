package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/speakcheck/apiv1/auth"
	"github.com/speakcheck/apiv1/dbhelper"
	"github.com/speakcheck/apiv1/routes"
	"github.com/speakcheck/apiv1/utils"
)

const sweepInterval = time.Hour

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Setting up environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on process environment")
	}
	// Setting up logs
	file, err := os.OpenFile("logs.txt", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatal(err)
	}
	log.SetOutput(file)

	secret := os.Getenv(utils.JWT_SECRET_KEY)
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// Setting up database
	ctx := context.Background()
	store, err := dbhelper.OpenDB(ctx,
		getenv(utils.MONGODB_URI, utils.DEFAULT_MONGODB_URI),
		getenv(utils.MONGODB_DB, utils.DEFAULT_MONGODB_DB),
	)
	if err != nil {
		log.Fatal(err)
	}
	if err := store.InitDB(ctx); err != nil {
		log.Printf("could not create database indexes: %v", err)
	}

	svc := auth.NewService(store, []byte(secret))

	// Periodic sweep of expired sessions and reset tokens
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			sessions, resets, err := svc.Sweep(context.Background())
			if err != nil {
				log.Printf("sweep error: %v", err)
				continue
			}
			log.Printf("sweep removed %d sessions, %d reset tokens", sessions, resets)
		}
	}()

	// Opening the webserver
	r := mux.NewRouter()
	r.StrictSlash(true)
	routes.CreateRoutes(r, svc)
	addr := ":" + getenv(utils.PORT, utils.DEFAULT_PORT)
	log.Printf("auth API listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
