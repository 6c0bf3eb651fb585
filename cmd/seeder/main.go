package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/locvowork/staffportal/internal/bootstrap"
	"github.com/locvowork/staffportal/internal/database"
	"github.com/locvowork/staffportal/internal/logger"
)

func main() {
	// Define flags
	file := flag.String("file", "", "YAML staff directory to load")
	reindex := flag.Bool("reindex", false, "Push every user into the directory index after seeding")

	flag.Parse()

	if *file == "" && !*reindex {
		fmt.Println("❌ Nothing to do: pass -file and/or -reindex")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx := context.Background()

	fmt.Println("🚀 Staff Directory Seeder")
	fmt.Println(strings.Repeat("=", 50))

	// Initialize app
	fmt.Println("📡 Initializing services...")
	app := bootstrap.NewApp()
	if err := app.InitializeServices(ctx); err != nil {
		logger.ErrorLog(ctx, "Failed to initialize application: %v", err)
		log.Fatal(err)
	}
	defer app.Close()

	seeder := database.NewDataSeeder(app.Store, app.Users, app.Index)

	if *file != "" {
		performSeed(ctx, seeder, *file)
	}
	if *reindex {
		performReindex(ctx, seeder, app.Index != nil)
	}

	fmt.Println("\n✅ Done!")
}

func performSeed(ctx context.Context, seeder *database.DataSeeder, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("❌ Cannot open %s: %v", path, err)
	}
	defer f.Close()

	dir, err := database.LoadDirectory(f)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Printf("📊 Loading %d users from %s\n", len(dir.Users), path)

	res, err := seeder.Seed(ctx, dir)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	fmt.Printf("👥 %d created, %d already present, %d reporting edges\n", res.Created, res.Skipped, res.Edges)
}

func performReindex(ctx context.Context, seeder *database.DataSeeder, enabled bool) {
	if !enabled {
		fmt.Println("⚠️  ELASTIC_URL is not set, skipping reindex")
		return
	}
	n, err := seeder.Reindex(ctx)
	if err != nil {
		log.Fatalf("❌ Reindex failed: %v", err)
	}
	fmt.Printf("🔎 Indexed %d users\n", n)
}
