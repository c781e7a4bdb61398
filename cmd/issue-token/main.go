// Command issue-token signs a bearer token for the API using the service
// configuration (JWT_SECRET, JWT_ISSUER, CONFIG_FILE).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"photographer-backend/internal/config"
	"photographer-backend/pkg/auth"
)

func main() {
	subject := flag.String("sub", "", "user id to put in the token (required)")
	roles := flag.String("roles", "", "comma separated roles, e.g. editor")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to auth.tokenTTL")
	flag.Parse()

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.NewLoaderFromEnv().Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	tokenTTL := cfg.Auth.TokenTTL
	if *ttl > 0 {
		tokenTTL = *ttl
	}
	svc, err := auth.NewJWTService(auth.Config{
		SecretKey: cfg.Auth.SecretKey,
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
		TTL:       tokenTTL,
	})
	if err != nil {
		log.Fatalf("create signer: %v", err)
	}

	var roleList []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roleList = append(roleList, r)
		}
	}

	token, err := svc.GenerateToken(*subject, roleList)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(token)
}
