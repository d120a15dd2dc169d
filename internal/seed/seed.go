// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"

	"studyhive/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers    int
	NumGroups   int
	ShouldClean bool
}

var courses = []string{
	"Calculus I", "Linear Algebra", "Data Structures", "Operating Systems",
	"Organic Chemistry", "Microeconomics", "World History", "Statistics",
	"Discrete Mathematics", "Intro to Psychology", "Database Systems",
	"Software Engineering", "Physics II", "Technical Writing",
}

var topics = []string{
	"exam review", "problem sets", "project work", "weekly recap",
	"finals prep", "lab reports", "reading group", "mock quizzes",
}

// Seed populates the database with test data. Every generated user has the
// password "password123".
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users and %d groups...", opts.NumUsers, opts.NumGroups)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d test users created", len(users))

	groups, err := createGroups(db, users, opts.NumGroups)
	if err != nil {
		return fmt.Errorf("failed to create groups: %w", err)
	}
	log.Printf("✓ %d groups created", len(groups))

	if err := createMemberships(db, users, groups); err != nil {
		return fmt.Errorf("failed to create memberships: %w", err)
	}

	if err := createChatter(db, groups); err != nil {
		return fmt.Errorf("failed to create messages and announcements: %w", err)
	}

	log.Println("✨ Seeding complete")
	return nil
}

func clearData(db *gorm.DB) error {
	tables := []any{
		&models.Activity{}, &models.Announcement{}, &models.Schedule{},
		&models.Message{}, &models.GroupMember{}, &models.Group{}, &models.User{},
	}
	for _, table := range tables {
		if err := db.Unscoped().Where("1 = 1").Delete(table).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(db *gorm.DB, n int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n+1)

	admin := models.User{
		FirstName: "Site",
		LastName:  "Admin",
		Username:  "admin",
		Email:     "admin@studyhive.local",
		Password:  string(hash),
		IsAdmin:   true,
		Status:    models.UserStatusActive,
	}
	if err := db.Create(&admin).Error; err != nil {
		return nil, err
	}
	users = append(users, admin)

	for i := 0; i < n; i++ {
		first := gofakeit.FirstName()
		last := gofakeit.LastName()
		user := models.User{
			FirstName: first,
			LastName:  last,
			Username:  fmt.Sprintf("%s%s%d", strings.ToLower(first), strings.ToLower(last), i),
			Email:     fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
			Password:  string(hash),
			Bio:       gofakeit.Sentence(8),
			Status:    models.UserStatusActive,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, nil
}

func createGroups(db *gorm.DB, users []models.User, n int) ([]models.Group, error) {
	statuses := []string{
		models.GroupStatusApproved, models.GroupStatusApproved,
		models.GroupStatusApproved, models.GroupStatusPending,
		models.GroupStatusRejected,
	}

	groups := make([]models.Group, 0, n)
	for i := 0; i < n; i++ {
		course := courses[rand.Intn(len(courses))]
		creator := users[rand.Intn(len(users))]
		group := models.Group{
			Name:        fmt.Sprintf("%s %s", course, topics[rand.Intn(len(topics))]),
			Topic:       topics[rand.Intn(len(topics))],
			Description: gofakeit.Paragraph(1, 3, 8, " "),
			Course:      course,
			Location:    gofakeit.City() + " library",
			Capacity:    5 + rand.Intn(20),
			CreatorID:   creator.ID,
			Status:      statuses[rand.Intn(len(statuses))],
		}
		if err := db.Create(&group).Error; err != nil {
			return nil, err
		}

		// Creator joins their own group as approved.
		member := models.GroupMember{
			GroupID: group.ID,
			UserID:  creator.ID,
			Status:  models.MemberStatusApproved,
		}
		if err := db.Create(&member).Error; err != nil {
			return nil, err
		}

		groups = append(groups, group)
	}
	return groups, nil
}

func createMemberships(db *gorm.DB, users []models.User, groups []models.Group) error {
	created := 0
	for _, group := range groups {
		if group.Status != models.GroupStatusApproved {
			continue
		}

		want := 2 + rand.Intn(group.Capacity-1)
		for _, user := range shuffled(users) {
			if created >= len(users)*len(groups) || want == 0 {
				break
			}
			if user.ID == group.CreatorID {
				continue
			}

			status := models.MemberStatusApproved
			if rand.Intn(4) == 0 {
				status = models.MemberStatusPending
			}
			member := models.GroupMember{GroupID: group.ID, UserID: user.ID, Status: status}
			if err := db.Create(&member).Error; err != nil {
				return err
			}
			created++
			want--
		}
	}
	log.Printf("✓ %d memberships created", created)
	return nil
}

func createChatter(db *gorm.DB, groups []models.Group) error {
	messages, announcements := 0, 0

	for _, group := range groups {
		if group.Status != models.GroupStatusApproved {
			continue
		}

		var members []models.GroupMember
		if err := db.Where("group_id = ? AND status = ?", group.ID, models.MemberStatusApproved).
			Find(&members).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			continue
		}

		for i := 0; i < 3+rand.Intn(10); i++ {
			msg := models.Message{
				GroupID:  group.ID,
				SenderID: members[rand.Intn(len(members))].UserID,
				Text:     gofakeit.Sentence(6 + rand.Intn(10)),
			}
			if err := db.Create(&msg).Error; err != nil {
				return err
			}
			messages++
		}

		announcement := models.Announcement{
			GroupID:     group.ID,
			UserID:      group.CreatorID,
			Title:       "Welcome to " + group.Name,
			Description: gofakeit.Sentence(12),
		}
		if err := db.Create(&announcement).Error; err != nil {
			return err
		}
		announcements++
	}

	log.Printf("✓ %d messages and %d announcements created", messages, announcements)
	return nil
}

func shuffled(users []models.User) []models.User {
	out := make([]models.User, len(users))
	copy(out, users)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
