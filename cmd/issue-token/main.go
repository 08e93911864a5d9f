// Command issue-token prints a bearer token for the dashboard API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/relaydesk/ticket-relay/internal/auth"
	"github.com/relaydesk/ticket-relay/internal/domain"
)

func main() {
	subject := flag.String("subject", "dashboard", "service name, or staff user id with -staff")
	staff := flag.Bool("staff", false, "issue a staff token instead of a service token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		log.Fatal("AUTH_JWT_SECRET is not set")
	}

	kind := domain.SubjectTypeService
	if *staff {
		kind = domain.SubjectTypeStaff
	}
	token, expiresAt, err := auth.NewTokenManager(secret, *ttl).GenerateToken(*subject, kind, nil)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
}
