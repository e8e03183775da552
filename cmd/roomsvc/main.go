package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/trioplay/trio-services/configs"
	"github.com/trioplay/trio-services/internal/archive"
	mongodb "github.com/trioplay/trio-services/internal/db"
	natscli "github.com/trioplay/trio-services/internal/nats"
	"github.com/trioplay/trio-services/internal/roomsvc/broker"
	"github.com/trioplay/trio-services/internal/roomsvc/db"
	"github.com/trioplay/trio-services/internal/roomsvc/engine"
	handlers "github.com/trioplay/trio-services/internal/roomsvc/handlers"
	"github.com/trioplay/trio-services/internal/roomsvc/service"
	"github.com/trioplay/trio-services/internal/roomsvc/store"
)

const SERVICE_NAME = "room"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {

	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	userStore := store.NewUserStore(dbpool)
	userService := service.NewUserService(userStore)

	escrowStore := store.NewEscrowStore(dbpool)
	escrowService := service.NewEscrowService(escrowStore)

	registryStore := store.NewRegistryStore()
	roomStore := store.NewRoomStore(dbpool, registryStore, escrowStore)
	roomService := service.NewRoomService(roomStore, engine.SystemClock{})

	// settlement archive, skipped when no mongo configured
	var archiveStore *archive.Store
	if os.Getenv("MONGODB_URI") != "" {
		mdb, cancelMongo, err := mongodb.ConnectToDB()
		if err != nil {
			log.Fatalf("Failed to connect to Mongo: %v", err)
		}
		defer cancelMongo()
		mongodb.CreateTTLIndexForCollection(mdb, archive.Collection)
		archiveStore = archive.NewStore(mdb)
		log.Printf("mongo settlement archive ready")
	}

	// Connect to NATS
	n, err := natscli.Connect(SERVICE_NAME)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// init room action broker
	broker := broker.NewBroker(n.Conn, userService, escrowService, roomService, archiveStore)

	// subscribe to socket service
	topic := "socket.service"
	sub, err := broker.SubscribSocketService(topic)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(0)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(roomService, escrowService, archiveStore)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("ROOM_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
