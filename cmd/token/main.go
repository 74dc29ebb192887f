// Command token prints a signed access token for a planner, for operators
// and local testing.
//
//	token -user ana.souza -roles pcp_planner,pcp_supervisor
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"pcp/internal/config"
	"pcp/internal/domain/auth"
)

func main() {
	user := flag.String("user", "", "planner username")
	roles := flag.String("roles", auth.RolePlanner, "comma-separated roles")
	ttl := flag.Duration("ttl", 0, "token lifetime (default JWT_TTL)")
	flag.Parse()

	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer
	jwtConfig.AccessTokenTTL = cfg.JWTTTL
	if *ttl > 0 {
		jwtConfig.AccessTokenTTL = *ttl
	}

	var roleList []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roleList = append(roleList, r)
		}
	}

	token, expiresAt, err := auth.NewJWTService(jwtConfig).GenerateAccessToken(*user, roleList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
}
