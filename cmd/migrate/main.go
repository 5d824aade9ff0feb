package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"contrata-chat/config"
	"contrata-chat/internal/repository"
	"contrata-chat/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
)

const usage = `
Contrata Chat - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Create all tables and indexes
  status      Show database connection and table status
  seed-dev    Seed with development/test data
  truncate    Truncate all chat tables (DANGEROUS)
  reset       Drop all tables and re-create them (DANGEROUS)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed-dev
  go run cmd/migrate/main.go reset
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer pool.Close()

	switch command := flag.Arg(0); command {
	case "up":
		runUp(ctx, pool)
	case "status":
		showStatus(ctx, pool)
	case "seed-dev":
		runSeedDevelopment(ctx, pool)
	case "truncate":
		runTruncate(ctx, pool)
	case "reset":
		runReset(ctx, pool)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runUp(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Running migrations...")
	if err := repository.InitSchema(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully")
}

var chatTables = []string{"users", "solicitudes", "chats", "chat_participants", "messages"}

func showStatus(ctx context.Context, pool *pgxpool.Pool) {
	if err := database.HealthCheck(pool); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	for _, table := range chatTables {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
			table).Scan(&exists)
		if err != nil {
			log.Printf("Error checking table %s: %v", table, err)
			continue
		}
		if !exists {
			log.Printf("Table %-20s does not exist", table)
			continue
		}
		var count int64
		if err := pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count); err != nil {
			log.Printf("Error counting table %s: %v", table, err)
			continue
		}
		log.Printf("Table %-20s exists (%d rows)", table, count)
	}
}

func runSeedDevelopment(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding database (development mode)...")

	if err := repository.InitSchema(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	seedUsers := []struct {
		username string
		role     string
	}{
		{"contratista.demo", "contratista"},
		{"sst.demo", "sst"},
		{"interventor.demo", "interventor"},
		{"soporte.demo", "soporte"},
	}

	ids := make(map[string]int64, len(seedUsers))
	for _, u := range seedUsers {
		var id int64
		err := pool.QueryRow(ctx,
			`INSERT INTO users (username, role) VALUES ($1, $2)
			 ON CONFLICT (username) DO UPDATE SET role = EXCLUDED.role
			 RETURNING id`,
			u.username, u.role).Scan(&id)
		if err != nil {
			log.Fatalf("Seeding user %s failed: %v", u.username, err)
		}
		ids[u.role] = id
		log.Printf("User %-20s id=%d role=%s", u.username, id, u.role)
	}

	var solicitudID int64
	err := pool.QueryRow(ctx,
		`INSERT INTO solicitudes (contratista_id, interventor_id) VALUES ($1, $2) RETURNING id`,
		ids["contratista"], ids["interventor"]).Scan(&solicitudID)
	if err != nil {
		log.Fatalf("Seeding solicitud failed: %v", err)
	}
	log.Printf("Solicitud id=%d contratista=%d interventor=%d", solicitudID, ids["contratista"], ids["interventor"])
	log.Println("Development seeding completed")
}

func runTruncate(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("WARNING: this truncates all chat tables")
	if _, err := pool.Exec(ctx,
		`TRUNCATE messages, chat_participants, chats, solicitudes, users RESTART IDENTITY CASCADE`); err != nil {
		log.Fatalf("Truncate failed: %v", err)
	}
	log.Println("All tables truncated")
}

func runReset(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("WARNING: this drops all chat tables and re-creates them")
	if _, err := pool.Exec(ctx,
		`DROP TABLE IF EXISTS messages, chat_participants, chats, solicitudes, users CASCADE`); err != nil {
		log.Fatalf("Drop failed: %v", err)
	}
	runUp(ctx, pool)
}
