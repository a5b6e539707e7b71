package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/franciscosanchezn/gin-user-manager/internal/database"
	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/franciscosanchezn/gin-user-manager/internal/services"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Creates a development user for the given role plus an OAuth client owned by it,
// and prints the credentials. Run with: go run scripts/create_dev_client.go -role=admin
func main() {
	// Parse command line flags
	role := flag.String("role", "admin", "User role (admin, manager or user)")
	dbPath := flag.String("db", "users.sqlite", "SQLite database file")
	password := flag.String("password", "dev-password-123", "Password for a newly created user")
	flag.Parse()

	_ = godotenv.Load()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if !models.Role(*role).Valid() {
		log.Fatalf("Unknown role %q", *role)
	}

	db, err := database.InitDatabase(database.DatabaseConfig{Driver: "sqlite", Path: *dbPath})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}

	ctx := context.Background()
	users := services.NewUserService(db, services.DeleteAdminOnly)
	clients := services.NewClientService(db)

	user, err := getOrCreateUser(ctx, users, *role, *password)
	if err != nil {
		log.WithError(err).Fatalf("Failed to get user for role %s", *role)
	}

	client, secret, err := clients.CreateClient(ctx, user.ID, services.ClientInput{
		Name:   fmt.Sprintf("Development %s Client", *role),
		Domain: "http://localhost",
		Scopes: "read write",
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create client")
	}

	fmt.Printf("Development OAuth client created for role '%s'\n", *role)
	fmt.Printf("Client ID: %s\n", client.ID)
	fmt.Printf("Client Secret: %s\n", secret)
	fmt.Printf("User ID: %d\n", user.ID)
	fmt.Println("\nUse these credentials for testing:")
	fmt.Printf("curl -X POST http://localhost:8080/oauth/token \\\n")
	fmt.Printf("  -d 'grant_type=client_credentials' \\\n")
	fmt.Printf("  -d 'client_id=%s' \\\n", client.ID)
	fmt.Printf("  -d 'client_secret=%s'\n", secret)
}

// getOrCreateUser gets or creates a user with the specified role
func getOrCreateUser(ctx context.Context, users services.UserService, role, password string) (*models.User, error) {
	email := fmt.Sprintf("%s@example.com", role)

	user, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		fmt.Printf("Found existing user: %s (ID: %d, Role: %s)\n", user.Email, user.ID, user.Role)
		return user, nil
	}
	if !errors.Is(err, services.ErrUserNotFound) {
		return nil, err
	}

	user, err = users.CreateUser(ctx, services.UserInput{
		Name:     fmt.Sprintf("%s User", role),
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		return nil, err
	}
	fmt.Printf("Created new user: %s (ID: %d, Role: %s, Password: %s)\n", user.Email, user.ID, user.Role, password)
	return user, nil
}
