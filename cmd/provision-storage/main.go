package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"file-approval-api/config"
)

// provision-storage creates the full shared directory tree once, so that the
// API and the panels never race to build it on a cold share.
func main() {
	log.Println("Starting shared storage provisioning...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to environment variables")
	}

	cfg := config.Load()

	roots := []string{
		filepath.Join(cfg.NetworkRoot, "approvals", "archive"),
		filepath.Join(cfg.NetworkRoot, "approvals", "comments"),
		filepath.Join(cfg.NetworkRoot, "notifications"),
		filepath.Join(cfg.NetworkRoot, "uploads"),
		filepath.Join(cfg.NetworkRoot, "staging"),
		filepath.Join(cfg.NetworkRoot, "metadata"),
		cfg.ProjectRoot,
		filepath.Join(cfg.LocalFallbackRoot, "approvals", "archive"),
		filepath.Join(cfg.LocalFallbackRoot, "approvals", "comments"),
		filepath.Join(cfg.LocalFallbackRoot, "notifications"),
		filepath.Join(cfg.LocalFallbackRoot, "uploads"),
		filepath.Join(cfg.LocalFallbackRoot, "staging"),
		filepath.Join(cfg.LocalFallbackRoot, "metadata"),
	}

	created := 0
	for _, dir := range roots {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("Warning: could not create %s: %v", dir, err)
			continue
		}
		created++
		log.Printf("Ensured %s", dir)
	}

	log.Printf("Provisioning complete: %d/%d directories ready", created, len(roots))
}
