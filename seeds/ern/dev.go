package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Users    []userEntry    `yaml:"users"`
	Networks []networkEntry `yaml:"networks"`
}

type userEntry struct {
	ID            string `yaml:"id"`
	FirstName     string `yaml:"first_name"`
	LastName      string `yaml:"last_name"`
	Phone         string `yaml:"phone"`
	Email         string `yaml:"email"`
	NarcanTrained bool   `yaml:"narcan_trained"`
}

type networkEntry struct {
	Requester  string           `yaml:"requester"`
	Responders []responderEntry `yaml:"responders"`
}

type responderEntry struct {
	ID           string `yaml:"id"`
	Relationship string `yaml:"relationship"`
	Priority     int    `yaml:"priority"`
	Inactive     bool   `yaml:"inactive"`
}

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	seeds, err := loadSeeds()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Println("Seeding emergency network database...")

	for _, u := range seeds.Users {
		var phone *string
		if u.Phone != "" {
			phone = &u.Phone
		}
		_, err := pool.Exec(ctx,
			`INSERT INTO users (id, first_name, last_name, phone, email, narcan_trained)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			   phone = EXCLUDED.phone, narcan_trained = EXCLUDED.narcan_trained, updated_at = now()`,
			u.ID, u.FirstName, u.LastName, phone, u.Email, u.NarcanTrained)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed user %s: %v\n", u.ID, err)
			os.Exit(1)
		}
		fmt.Printf("  user      %s (%s %s)\n", u.ID, u.FirstName, u.LastName)
	}

	for _, n := range seeds.Networks {
		for _, r := range n.Responders {
			_, err := pool.Exec(ctx,
				`INSERT INTO responder_networks (id, requester_id, responder_id, relationship, priority, is_active)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (requester_id, responder_id) DO UPDATE SET relationship = EXCLUDED.relationship,
				   priority = EXCLUDED.priority, is_active = EXCLUDED.is_active`,
				"net_"+n.Requester+"_"+r.ID, n.Requester, r.ID, r.Relationship, r.Priority, !r.Inactive)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to seed network entry %s -> %s: %v\n", n.Requester, r.ID, err)
				os.Exit(1)
			}
			fmt.Printf("  network   %s -> %s (priority %d)\n", n.Requester, r.ID, r.Priority)
		}
	}

	fmt.Println("Done. Mint a token with: ern-api issue-token --user <id>")
}

// loadSeeds reads network.yaml from next to this file.
func loadSeeds() (*seedFile, error) {
	_, thisFile, _, _ := runtime.Caller(0)
	path := filepath.Join(filepath.Dir(thisFile), "network.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network.yaml: %w", err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse network.yaml: %w", err)
	}
	return &sf, nil
}
