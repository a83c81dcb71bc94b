package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/config"
	"github.com/garyjia/trash-inspection/internal/container"
	"github.com/garyjia/trash-inspection/pkg/utils"
)

// Isolated check of the back-office callback.
// Sends one result with the configured endpoint and credentials, without touching the database or queue.

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	caseID := flag.String("case-id", "1", "sdk case id sent as caseId")
	approved := flag.Bool("approved", true, "value sent as isApproved")
	comment := flag.String("comment", "connectivity test", "value sent as comment")
	flag.Parse()

	fmt.Println("=== Back-Office Callback Test ===")
	fmt.Println()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if _, err := utils.ParseSdkCaseID(*caseID); err != nil {
		log.Fatalf("Invalid case id: %v", err)
	}

	logger, err := utils.NewDevelopmentLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	boCfg := cfg.ToContainerConfig().BackOffice
	fmt.Printf("Endpoint:  %s\n", boCfg.Endpoint)
	fmt.Printf("Operation: %s\n", boCfg.Operation)
	fmt.Printf("Auth mode: %s\n", boCfg.AuthMode)
	if boCfg.Domain != "" {
		fmt.Printf("Account:   %s\\%s\n", boCfg.Domain, boCfg.Username)
	} else {
		fmt.Printf("Account:   %s\n", boCfg.Username)
	}
	fmt.Println()

	client, err := container.ProvideBackOfficeClient(&boCfg, logger)
	if err != nil {
		log.Fatalf("Failed to create back-office client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), boCfg.Timeout+5*time.Second)
	defer cancel()

	start := time.Now()
	result, err := client.SendResult(ctx, port.CallbackRequest{
		CaseID:     *caseID,
		IsApproved: *approved,
		Comment:    *comment,
	})
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		fmt.Printf("✗ Callback failed after %s\n", elapsed)
		fmt.Printf("  Error: %v\n", err)
		log.Fatal("back-office callback test failed")
	}

	fmt.Printf("✓ Callback succeeded in %s\n", elapsed)
	fmt.Printf("  Response: %s\n", result)
}
