package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ginie-settings-service/config"
	"ginie-settings-service/internal/database"
	"ginie-settings-service/internal/defaults"
	"ginie-settings-service/internal/reconcile"
)

func main() {
	fmt.Println("========================================")
	fmt.Println(" Default Settings Administration Tool")
	fmt.Println("========================================")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	defaults.SetPath(cfg.DefaultsConfig.FilePath)
	file, err := defaults.Load()
	if err != nil {
		fmt.Printf("Failed to load defaults file: %v\n", err)
		os.Exit(1)
	}
	if err := file.Validate(); err != nil {
		fmt.Printf("Defaults file is invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded defaults file (version %s)\n", file.Metadata.Version)

	// Overrides need Postgres; without it the tool is read-only. The
	// interface variable stays nil unless the database actually connected,
	// so the store never sees a typed-nil repository.
	var repo defaults.OverrideRepository
	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		fmt.Printf("Database unavailable (%v) - running in read-only mode\n", err)
	} else {
		defer db.Close()
		if err := db.RunMigrations(context.Background()); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		repo = database.NewRepository(db)
	}

	registry := defaults.NewRegistry()
	store := defaults.NewStore(registry, file, repo, nil, nil)

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println("\nOptions:")
		fmt.Println("  1. List domains")
		fmt.Println("  2. Show effective defaults for a domain")
		fmt.Println("  3. Edit domain defaults")
		fmt.Println("  4. Reset a domain to shipped values")
		fmt.Println("  5. Show audit trail")
		fmt.Println("  6. Exit")
		fmt.Print("\nSelect option: ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch input {
		case "1":
			listDomains(registry)
		case "2":
			showDomain(reader, store)
		case "3":
			editDomain(reader, store)
		case "4":
			resetDomain(reader, store)
		case "5":
			showAuditTrail(reader, store)
		case "6":
			fmt.Println("Goodbye!")
			os.Exit(0)
		default:
			fmt.Println("Invalid option")
		}
	}
}

func listDomains(registry *defaults.Registry) {
	fmt.Println("\n--- Settings Domains ---")
	for i, d := range registry.Domains() {
		fmt.Printf("  %d. %-20s %s\n", i+1, d.Name, d.Label)
	}
}

func promptDomain(reader *bufio.Reader) string {
	fmt.Print("Domain name: ")
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func showDomain(reader *bufio.Reader, store *defaults.Store) {
	domain := promptDomain(reader)
	leaves, source, err := store.EffectiveLeaves(context.Background(), domain)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("\n--- %s (source: %s) ---\n", domain, source)
	for _, leaf := range leaves {
		fmt.Printf("  %-50s = %s\n", leaf.Path, reconcile.CanonicalSerialize(leaf.Value))
	}
	fmt.Printf("%d settings\n", len(leaves))
}

func editDomain(reader *bufio.Reader, store *defaults.Store) {
	domain := promptDomain(reader)
	leaves, source, err := store.EffectiveLeaves(context.Background(), domain)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	session := reconcile.OpenSession(domain, leaves)
	fmt.Printf("\nEditing %s (source: %s). Enter a setting path to change it,\n", domain, source)
	fmt.Println("'list' to show current values, 'save' to persist, 'quit' to discard.")

	for {
		fmt.Print("\nedit> ")
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch input {
		case "":
			continue
		case "list":
			for _, path := range session.Paths() {
				v, _ := session.Value(path)
				fmt.Printf("  %-50s = %s\n", path, reconcile.CanonicalSerialize(v))
			}
		case "quit":
			if session.IsDirty() {
				fmt.Println("Discarding unsaved changes")
			}
			return
		case "save":
			if !session.IsDirty() {
				fmt.Println("No changes to save")
				continue
			}
			fmt.Print("Updated by (name): ")
			name, _ := reader.ReadString('\n')
			name = strings.TrimSpace(name)
			if name == "" {
				name = "defaults-admin"
			}
			result, err := store.Save(context.Background(), domain, session.Payload(), name)
			if err != nil {
				fmt.Printf("Save failed: %v\n", err)
				continue
			}
			if !result.Success {
				fmt.Printf("Rejected: %s\n", result.Message)
				continue
			}
			fmt.Println(result.Message)
			return
		default:
			current, ok := session.Value(input)
			if !ok {
				fmt.Printf("Unknown setting: %s\n", input)
				continue
			}
			fmt.Printf("Current value: %s\n", reconcile.CanonicalSerialize(current))
			fmt.Print("New value: ")
			raw, _ := reader.ReadString('\n')
			session.SetValue(input, strings.TrimRight(raw, "\n"))
			updated, _ := session.Value(input)
			fmt.Printf("Set %s = %s\n", input, reconcile.CanonicalSerialize(updated))
		}
	}
}

func resetDomain(reader *bufio.Reader, store *defaults.Store) {
	domain := promptDomain(reader)
	fmt.Printf("Reset %s to shipped file values? (y/n): ", domain)
	confirm, _ := reader.ReadString('\n')
	if strings.TrimSpace(strings.ToLower(confirm)) != "y" {
		fmt.Println("Cancelled")
		return
	}

	result, err := store.Reset(context.Background(), domain, "defaults-admin")
	if err != nil {
		fmt.Printf("Reset failed: %v\n", err)
		return
	}
	fmt.Println(result.Message)
}

func showAuditTrail(reader *bufio.Reader, store *defaults.Store) {
	fmt.Print("Domain (blank for all): ")
	domain, _ := reader.ReadString('\n')
	domain = strings.TrimSpace(domain)

	fmt.Print("How many events? (default 20): ")
	limitInput, _ := reader.ReadString('\n')
	limit, err := strconv.Atoi(strings.TrimSpace(limitInput))
	if err != nil || limit <= 0 {
		limit = 20
	}

	events, err := store.AuditTrail(context.Background(), domain, limit)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(events) == 0 {
		fmt.Println("No change events recorded")
		return
	}

	fmt.Println("\n--- Change Events (newest first) ---")
	for _, ev := range events {
		fmt.Printf("  %s  %-20s %-7s %d change(s) by %s\n",
			ev.CreatedAt.Format("2006-01-02 15:04:05"),
			ev.Domain, ev.Action, len(ev.ChangedPaths), ev.UpdatedBy)
	}
}
