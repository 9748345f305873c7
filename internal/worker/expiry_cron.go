package worker

// expiry_cron.go
// Background goroutine that expires the open caja session once it outlives
// CAJA_MAX_SESSION_AGE, so a forgotten till is closed even with no traffic.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Expirador is the part of service.CajaService the sweep drives.
type Expirador interface {
	ExpirarVencidas(ctx context.Context) (int, error)
}

// StartExpiryCron runs one sweep immediately and then every interval until
// ctx is cancelled.
func StartExpiryCron(ctx context.Context, svc Expirador, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("expiry_cron: started")
		barrido(ctx, svc)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("expiry_cron: shutting down")
				return
			case <-ticker.C:
				barrido(ctx, svc)
			}
		}
	}()
}

func barrido(ctx context.Context, svc Expirador) int {
	n, err := svc.ExpirarVencidas(ctx)
	if err != nil {
		log.Error().Err(err).Msg("expiry_cron: sweep failed")
		return 0
	}
	if n > 0 {
		log.Info().Int("expiradas", n).Msg("expiry_cron: sessions expired")
	}
	return n
}
