package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prepnotes/mocktest-backend/internal/config"
	"github.com/prepnotes/mocktest-backend/internal/database"
	"github.com/prepnotes/mocktest-backend/internal/logger"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/repository"
)

// Seeds one draft exam product per plan tier. Safe to re-run; existing
// levels are skipped.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	productRepo := repository.NewProductRepository(pool)

	tiers, err := config.LoadTiers(cfg.TiersFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load tier definitions")
	}

	fmt.Printf("=== Seeding %d Tier Products ===\n", len(tiers))

	created := 0
	for _, tier := range tiers {
		var existingID string
		err := pool.QueryRow(ctx,
			`SELECT id FROM exam_products WHERE level = $1 AND status != 'ARCHIVED'`,
			tier.Level,
		).Scan(&existingID)
		if err == nil {
			fmt.Printf("Tier %q already present (product %s), skipping\n", tier.Level, existingID)
			continue
		}
		if err != pgx.ErrNoRows {
			log.Fatal().Err(err).Str("level", tier.Level).Msg("Failed to check existing product")
		}

		product := &model.ExamProduct{
			Level:              tier.Level,
			Title:              tier.Title,
			DurationMinutes:    tier.DurationMinutes,
			MarkCorrect:        tier.MarkCorrect,
			MarkWrong:          tier.MarkWrong,
			MaxViolations:      tier.MaxViolations,
			PassPercent:        tier.PassPercent,
			IdleTimeoutSeconds: tier.IdleTimeoutSeconds,
		}
		if err := productRepo.Create(ctx, product); err != nil {
			fmt.Printf("Error creating product for tier %q: %v\n", tier.Level, err)
			continue
		}
		created++
		fmt.Printf("Created %q product %s (%d min, %d/-%d marking, pass %.0f%%)\n",
			tier.Level, product.ID, tier.DurationMinutes, tier.MarkCorrect, tier.MarkWrong, tier.PassPercent)
	}

	fmt.Printf("\nSeed completed! Added %d/%d tier products.\n", created, len(tiers))
}
