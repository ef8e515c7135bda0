package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/cli"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/jwt"
)

func main() {
	var (
		browserID = flag.String("browser-id", "", "Browser ID (subject); a new one is generated when empty")
		secret    = flag.String("secret", "", "Session HMAC secret (HS256), must match session.secret_key")
		ttl       = flag.Duration("ttl", 2*time.Hour, "Token lifetime")
	)
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: key --secret='<secret>' [--browser-id=<id>] [--ttl=2h]")
		os.Exit(2)
	}

	token, claims, err := cli.GenerateSessionToken(*secret, *browserID, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Println("TOKEN:")
	fmt.Println(token)
	fmt.Println("\nCLAIMS:")
	fmt.Printf("  sub:  %s\n", claims.Subject)
	fmt.Printf("  kind: %s\n", claims.Kind)
	fmt.Printf("  iat:  %s\n", claims.IssuedAt.Time.UTC().Format(time.RFC3339))
	fmt.Printf("  exp:  %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	fmt.Println("\nCURL:")
	fmt.Printf("  curl -s -o /dev/null -D - -b '%s=%s' http://localhost:8080/ | grep -i x-page-id\n", jwt.CookieName, token)
	fmt.Printf("  curl -b '%s=%s' -H 'X-Page-ID: <page id>' http://localhost:8080/api/state\n", jwt.CookieName, token)
}
