package main

import (
	"context"
	"log"
	"time"

	"lilypad/simulator"
)

func main() {
	config := simulator.SimConfig{
		NumUsers:         20,
		NumSites:         4,
		PagesPerSite:     5,
		SimulationTime:   5 * time.Minute,
		CommentFrequency: 120.0,
		LikeFrequency:    240.0,
		FlagFrequency:    30.0,
		SpamRate:         0.15,
		EngineURL:        "http://localhost:8080",
	}

	log.Printf("Starting simulation with configuration:")
	log.Printf("- Engine URL: %s", config.EngineURL)
	log.Printf("- Number of users: %d", config.NumUsers)
	log.Printf("- Number of sites: %d", config.NumSites)
	log.Printf("- Simulation time: %v", config.SimulationTime)
	log.Printf("- Comment frequency: %.1f comments/user/hour", config.CommentFrequency)
	log.Printf("- Spam rate: %.0f%%", config.SpamRate*100)

	sim := simulator.NewSimulator(config)
	ctx, cancel := context.WithTimeout(context.Background(), config.SimulationTime)
	defer cancel()

	if err := sim.Run(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	stats := sim.GetStats()
	log.Printf("\nSimulation completed. Final totals:")
	log.Printf("- Requests: %d (ok=%d failed=%d rate-limited=%d)",
		stats.TotalRequests, stats.SuccessRequests, stats.FailedRequests, stats.RateLimited)
	log.Printf("- Comments: %d (approved=%d pending=%d spam=%d)",
		stats.TotalComments, stats.ApprovedCount, stats.PendingCount, stats.SpamCount)
	log.Printf("- Likes: %d, Flags: %d (duplicates rejected: %d)",
		stats.TotalLikes, stats.TotalFlags, stats.DuplicateFlags)
	log.Printf("- Average latency: %v", stats.AverageLatency)
}
