package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/sittichok/user-service/config"
	"github.com/sittichok/user-service/internal/domain/entity"
	"github.com/sittichok/user-service/pkg/helpers"
)

type seedUser struct {
	fullname string
	email    string
	password string
	role     entity.Role
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	password := flag.String("password", "password123", "password for the seeded accounts")
	flag.Parse()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	users := []seedUser{
		{fullname: "Demo Admin", email: "admin@sittichok.local", password: *password, role: entity.RoleAdmin},
		{fullname: "Demo Member", email: "member@sittichok.local", password: *password, role: entity.RoleMember},
	}
	for _, u := range users {
		hash, err := helpers.HashPassword(u.password)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		// existing accounts keep their password and role
		res, err := db.Exec(`
			INSERT INTO users (fullname, email, password, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO NOTHING
		`, u.fullname, u.email, hash, string(u.role))
		if err != nil {
			log.Fatalf("failed to seed %s: %v", u.email, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			fmt.Printf("skipped existing user: email=%s\n", u.email)
			continue
		}
		fmt.Printf("seeded user: email=%s role=%s password=%s\n", u.email, u.role, u.password)
	}
}
