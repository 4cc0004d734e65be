// Schema migration and reviewer directory seeding
// cmd/migrate/main.go
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"journal-workflow-api/config"
	"journal-workflow-api/models"
	"journal-workflow-api/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm/clause"
)

type directoryFile struct {
	Users []struct {
		UserID      string `yaml:"user_id"`
		DisplayName string `yaml:"display_name"`
		Email       string `yaml:"email"`
		Affiliation string `yaml:"affiliation"`
		ORCID       string `yaml:"orcid"`
	} `yaml:"users"`
}

func main() {
	seedPath := flag.String("users", "", "optional YAML file of directory users to upsert")
	flag.Parse()

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize database
	db := config.InitDB()

	if err := config.Migrate(db); err != nil {
		log.Fatal("Failed to migrate schema:", err)
	}
	log.Println("Schema migration completed")

	if *seedPath == "" {
		return
	}

	raw, err := os.ReadFile(*seedPath)
	if err != nil {
		log.Fatal("Failed to read user file:", err)
	}
	var file directoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		log.Fatal("Failed to parse user file:", err)
	}

	for _, entry := range file.Users {
		email := strings.ToLower(utils.SanitizeInput(entry.Email))
		if entry.UserID == "" || !utils.ValidateEmail(email) {
			log.Printf("Skipping user %q: user_id and a valid email are required\n", entry.UserID)
			continue
		}
		orcid := strings.ToUpper(utils.SanitizeInput(entry.ORCID))
		if orcid != "" && !utils.ValidateORCID(orcid) {
			log.Printf("Skipping user %s: invalid ORCID %s\n", entry.UserID, orcid)
			continue
		}

		user := models.User{
			UserID:      utils.SanitizeInput(entry.UserID),
			DisplayName: utils.SanitizeInput(entry.DisplayName),
			Email:       email,
		}
		if affiliation := utils.SanitizeInput(entry.Affiliation); affiliation != "" {
			user.Affiliation = &affiliation
		}
		if orcid != "" {
			user.ORCID = &orcid
		}
		if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&user).Error; err != nil {
			log.Printf("Failed to upsert user %s: %v\n", user.UserID, err)
			continue
		}
		log.Printf("Upserted user %s\n", user.UserID)
	}

	log.Println("User seeding completed!")
}
