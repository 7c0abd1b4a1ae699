// Package notifier konsumsi event shop.order.created: dedup by
// event_id, warm cache snapshot order, dan catat konfirmasi order
// (placeholder email/push).
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/ariefcatur/go-shop-checkout.git/internal/shop"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type Service struct {
	Redis       *redis.Client
	Cache       *redisx.OrderCache
	ServiceName string
}

// HandleOrderCreated dipasang sebagai handler consumer.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env shop.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != shop.EventOrderCreated {
		return nil // ignore
	}

	// dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	var p shop.OrderCreatedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return err
	}

	// warm cache dengan bentuk yang sama dengan respons GET /orders/{id}
	if s.Cache != nil {
		order := shop.Order{
			ID:         p.OrderID,
			UserID:     p.UserID,
			TotalPrice: p.TotalPrice,
			CreatedAt:  p.CreatedAt,
		}
		for _, it := range p.Items {
			order.Items = append(order.Items, shop.OrderItem{
				OrderID:   p.OrderID,
				ProductID: it.ProductID,
				Title:     it.Title,
				Price:     it.Price,
				Quantity:  it.Quantity,
			})
		}
		if body, err := json.Marshal(order); err == nil {
			s.Cache.Set(ctx, p.OrderID, body)
		}
	}

	log.Printf("[%s] order confirmation: order=%s user=%s total=%s items=%d",
		s.ServiceName, p.OrderID, p.UserID, p.TotalPrice.StringFixed(2), len(p.Items))
	return nil
}
