package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/config"
	"github.com/ariefcatur/go-shop-checkout.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/metrics"
	"github.com/ariefcatur/go-shop-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	orderProd := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderCreated, 1024)
	orderProd.Start(ctx)
	balanceProd := kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicBalanceDeposited, 1024)
	balanceProd.Start(ctx)

	// Store & services
	repo := &shop.Repo{DB: db}
	m := metrics.New("api")
	router := httpx.NewRouter(m)
	h := &httpx.ShopHandler{
		Store:           repo,
		Checkout:        &shop.CheckoutService{Store: repo},
		Balance:         &shop.BalanceService{Store: repo},
		Carts:           &shop.CartService{Store: repo},
		OrderProducer:   orderProd,
		BalanceProducer: balanceProd,
		Cache:           &redisx.OrderCache{RDB: rdb},
		Metrics:         m,
		Service:         cfg.ServiceName,
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	orderProd.Close() // tutup inbox -> flush & close writer
	balanceProd.Close()
	cancel() // stop producer loops
	orderProd.WaitClosed()
	balanceProd.WaitClosed()
}
