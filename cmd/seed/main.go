package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"todoapi/internal/config"
	"todoapi/internal/db"
	"todoapi/internal/model"
	"todoapi/internal/repository"
)

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.Todo{}, &model.User{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()

	userRepo := repository.NewUserRepository(gormDB)
	usersCreated, usersUpdated, err := seedUsers(ctx, userRepo, demoUsers())
	if err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	todoRepo := repository.NewTodoRepository(gormDB)
	todosCreated, err := seedTodos(ctx, todoRepo, demoTodos())
	if err != nil {
		log.Fatalf("Failed to seed todos: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Users created: %d, updated: %d", usersCreated, usersUpdated)
	log.Printf("  - Todos created: %d", todosCreated)
}

func demoUsers() []model.User {
	return []model.User{
		{Username: "jdoe", Email: "jdoe@example.com", FirstName: "John", LastName: "Doe", PhoneNumber: "+1 (555) 010-1234", Role: "Admin", IsActive: true},
		{Username: "asmith", Email: "asmith@example.com", FirstName: "Alice", LastName: "Smith", Role: "User", IsActive: true},
		{Username: "bwayne", Email: "bwayne@example.com", FirstName: "Bruce", LastName: "Wayne", Role: "User", IsActive: false},
	}
}

func demoTodos() []model.Todo {
	nextWeek := time.Now().Add(7 * 24 * time.Hour)
	return []model.Todo{
		{Title: "Review project proposal", Description: "Go through the Q3 proposal draft", Priority: 3, Category: "Work", DueDate: &nextWeek},
		{Title: "Buy groceries", Priority: 1, Category: "Personal"},
		{Title: "Prepare release notes", Priority: 4, Category: "Work", IsCompleted: true},
		{Title: "Book dentist appointment", Priority: 2},
		{Title: "Update deployment runbook", Priority: 5, Category: "Work"},
	}
}

// seedUsers creates users keyed by username, updating existing rows.
func seedUsers(ctx context.Context, repo repository.UserRepository, users []model.User) (created int, updated int, err error) {
	for _, user := range users {
		existing, err := repo.FindByUsername(ctx, user.Username)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, updated, fmt.Errorf("error checking user %s: %w", user.Username, err)
		}

		now := time.Now()
		if existing != nil {
			existing.Email = user.Email
			existing.FirstName = user.FirstName
			existing.LastName = user.LastName
			existing.PhoneNumber = user.PhoneNumber
			existing.Role = user.Role
			existing.IsActive = user.IsActive
			existing.UpdatedAt = now
			if err := repo.Save(ctx, existing); err != nil {
				return created, updated, fmt.Errorf("error updating user %s: %w", user.Username, err)
			}
			updated++
		} else {
			user.CreatedAt = now
			user.UpdatedAt = now
			if err := repo.Create(ctx, &user); err != nil {
				return created, updated, fmt.Errorf("error creating user %s: %w", user.Username, err)
			}
			created++
		}
	}

	return created, updated, nil
}

// seedTodos creates todos, skipping titles that already exist.
func seedTodos(ctx context.Context, repo repository.TodoRepository, todos []model.Todo) (created int, err error) {
	existing, err := repo.List(ctx, repository.TodoFilter{})
	if err != nil {
		return 0, fmt.Errorf("error listing todos: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, todo := range existing {
		seen[todo.Title] = true
	}

	for _, todo := range todos {
		if seen[todo.Title] {
			continue
		}
		now := time.Now()
		todo.CreatedAt = now
		todo.UpdatedAt = now
		if err := repo.Create(ctx, &todo); err != nil {
			return created, fmt.Errorf("error creating todo %q: %w", todo.Title, err)
		}
		created++
	}

	return created, nil
}
