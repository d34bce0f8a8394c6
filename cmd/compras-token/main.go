// Command compras-token prints a signed bearer token for local development,
// using the same AUTH_JWT_SECRET and AUTH_JWT_AUDIENCE as the server.
//
//	go run ./cmd/compras-token -owner alice -ttl 24h
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	"compras/internal/auth"
	"compras/internal/cli"
)

func main() {
	owner := flag.String("owner", "", "owner id placed in the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *owner == "" {
		log.Fatalf("-owner is required")
	}

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(slog.Default())

	token, err := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTAudience).Issue(*owner, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
