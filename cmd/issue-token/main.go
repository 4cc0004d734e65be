// Development helper that signs workflow tokens
// cmd/issue-token/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"journal-workflow-api/middleware"
	"journal-workflow-api/models"

	"github.com/joho/godotenv"
)

func main() {
	userID := flag.String("user", "", "user id placed in the token")
	roles := flag.String("roles", "author", "comma separated roles: author, reviewer, editor, admin")
	email := flag.String("email", "", "optional email claim")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if strings.TrimSpace(*userID) == "" {
		log.Fatal("-user is required")
	}

	actor := models.Actor{UserID: strings.TrimSpace(*userID)}
	for _, raw := range strings.Split(*roles, ",") {
		role, ok := models.ParseRole(strings.ToLower(strings.TrimSpace(raw)))
		if !ok {
			log.Fatalf("unknown role %q", raw)
		}
		actor.Roles = append(actor.Roles, role)
	}

	token, err := middleware.GenerateToken(secret, actor, *email)
	if err != nil {
		log.Fatal("Failed to sign token:", err)
	}
	fmt.Println(token)
}
