package worker

import (
	"log"

	"forestgrid/internal/service/culling"
)

// StartAllWorkers initializes and starts all background workers
func StartAllWorkers(engine *culling.Engine) {
	log.Println("Starting all workers...")

	StartRenderStatsWorker(engine)

	log.Println("All workers started")
}
