package main

import (
	"flag"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"

	"github.com/pageza/mealplanner/backend/config"
	"github.com/pageza/mealplanner/backend/internal/database"
	"github.com/pageza/mealplanner/backend/internal/logger"
	"github.com/pageza/mealplanner/backend/internal/models"
)

var (
	objectives  = []string{"lose weight", "gain muscle", "eat healthier", "save time"}
	skillLevels = []string{"beginner", "intermediate", "advanced"}
	dietTypes   = []string{"omnivore", "vegetarian", "vegan", "mediterranean", "keto"}
	allergies   = []string{"", "", "peanuts", "gluten", "shellfish", "lactose"}
)

func main() {
	count := flag.Int("count", 5, "number of random users to create")
	password := flag.String("password", "testpassword123", "password for every seeded user")
	seed := flag.Int64("seed", 0, "random seed, 0 picks one from the clock")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console"})
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password", zap.Error(err))
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(*seed)
	users := make([]models.User, 0, *count+1)
	users = append(users, models.User{
		Name:         "Demo Cook",
		Email:        "demo@example.com",
		PasswordHash: string(hash),
		Objective:    "eat healthier",
		SkillLevel:   "beginner",
		DietType:     "mediterranean",
	})
	for i := 0; i < *count; i++ {
		users = append(users, models.User{
			Name:         faker.Name(),
			Email:        strings.ToLower(faker.Email()),
			PasswordHash: string(hash),
			Gender:       faker.Gender(),
			Weight:       faker.Float64Range(50, 110),
			Height:       faker.Float64Range(150, 200),
			Objective:    faker.RandomString(objectives),
			SkillLevel:   faker.RandomString(skillLevels),
			DietType:     faker.RandomString(dietTypes),
			Allergy:      faker.RandomString(allergies),
		})
	}

	result := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).Create(&users)
	if result.Error != nil {
		log.Fatal("Failed to seed users", zap.Error(result.Error))
	}
	log.Info("Seeded users",
		zap.Int64("created", result.RowsAffected),
		zap.Int("requested", len(users)),
		zap.String("password", *password))
}
