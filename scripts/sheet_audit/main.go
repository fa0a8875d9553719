// Command sheet_audit reads the backing grid and reports integrity
// problems before they surface as dashboard bugs: unknown status values,
// malformed audit stamps, and batches whose shared columns diverged.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aec-internal/requisitions-api/internal/models"
	"github.com/aec-internal/requisitions-api/internal/repository"
	"github.com/aec-internal/requisitions-api/internal/service"
	"github.com/aec-internal/requisitions-api/pkg/config"
	"github.com/aec-internal/requisitions-api/pkg/sheets"
)

type issue struct {
	Position int
	Column   string
	Message  string
}

func main() {
	var (
		timeout     time.Duration
		failOnIssue bool
	)
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "overall read timeout")
	flag.BoolVar(&failOnIssue, "fail", false, "exit 1 when any issue is found")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tokens, err := sheets.NewTokenSource(cfg.Sheet, nil)
	if err != nil {
		log.Fatalf("failed to build token source: %v", err)
	}
	client := sheets.NewClient(cfg.Sheet, tokens, nil)
	repo := repository.NewSheetRepository(client, cfg.Sheet.SheetName, nil)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	records, err := repo.LoadAll(ctx)
	if err != nil {
		log.Fatalf("failed to read sheet: %v", err)
	}

	issues := auditRecords(records)
	issues = append(issues, auditBatches(records)...)

	fmt.Printf("rows scanned: %d\n", len(records))
	fmt.Printf("issues found: %d\n", len(issues))
	for _, is := range issues {
		fmt.Printf("  row %d [%s]: %s\n", is.Position, is.Column, is.Message)
	}

	if failOnIssue && len(issues) > 0 {
		os.Exit(1)
	}
}

func auditRecords(records []models.Record) []issue {
	var issues []issue
	for _, rec := range records {
		if !rec.IsActive() {
			continue
		}
		if rec.RemovalFlag != "" && rec.RemovalFlag != models.RemovalActive {
			issues = append(issues, issue{rec.Position, "U", fmt.Sprintf("unknown removal flag %q", rec.RemovalFlag)})
		}
		if rec.PurchasingStatus != "" && !contains(models.PurchasingStatusOptions, rec.PurchasingStatus) {
			issues = append(issues, issue{rec.Position, "B", fmt.Sprintf("unknown purchasing status %q", rec.PurchasingStatus)})
		}
		if rec.EngineeringStatus != "" && !contains(models.EngineeringStatusOptions, rec.EngineeringStatus) {
			issues = append(issues, issue{rec.Position, "E", fmt.Sprintf("unknown engineering status %q", rec.EngineeringStatus)})
		}
		if rec.SeenByPurchasing != "" {
			if _, err := models.ParseAuditStamp(rec.SeenByPurchasing); err != nil {
				issues = append(issues, issue{rec.Position, "S", "malformed seen stamp"})
			}
		}
		if rec.LastModified != "" {
			if _, err := models.ParseAuditStamp(rec.LastModified); err != nil {
				issues = append(issues, issue{rec.Position, "T", "malformed last-modified stamp"})
			}
		}
	}
	return issues
}

// auditBatches flags active batch members whose shared columns disagree
// with the first member. Divergence means a fan-out write was lost.
func auditBatches(records []models.Record) []issue {
	var issues []issue
	for _, group := range service.GroupRecords(records) {
		if len(group.Records) < 2 {
			continue
		}
		first := group.Records[0]
		for _, rec := range group.Records[1:] {
			for _, field := range models.SharedFields {
				if rec.ValueOf(field) == first.ValueOf(field) {
					continue
				}
				col, _ := models.ColumnFor(field)
				issues = append(issues, issue{
					Position: rec.Position,
					Column:   string(col),
					Message: fmt.Sprintf("batch %s: %s diverges from row %d (%q vs %q)",
						group.Key, field, first.Position, clip(rec.ValueOf(field)), clip(first.ValueOf(field))),
				})
			}
		}
	}
	return issues
}

func contains(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}

func clip(s string) string {
	if len(s) > 60 {
		return strings.TrimSpace(s[:60]) + "..."
	}
	return s
}
