package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/zoq/relay/internal/models"
	"github.com/zoq/relay/internal/store"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createTables() error {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		profile_pic TEXT
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		from_user_id TEXT NOT NULL,
		to_user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_from_to ON messages (from_user_id, to_user_id);
	CREATE INDEX IF NOT EXISTS idx_messages_to ON messages (to_user_id);
	`

	if s.driverName == "postgres" {
		// Adjust for Postgres syntax
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}

	_, err := s.db.Exec(query)
	return err
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

func (s *SQLStore) SaveMessage(ctx context.Context, fromUserID, toUserID, content string) (models.Message, error) {
	msg := models.Message{
		ID:         uuid.NewString(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	query := s.rebind("INSERT INTO messages (id, from_user_id, to_user_id, content, read, created_at) VALUES (?, ?, ?, ?, FALSE, ?)")
	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.FromUserID, msg.ToUserID, msg.Content, msg.CreatedAt)
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (s *SQLStore) MessagesBetween(ctx context.Context, userID, partnerID string) ([]models.Message, error) {
	query := s.rebind(`
		SELECT id, from_user_id, to_user_id, content, read, created_at
		FROM messages
		WHERE (from_user_id = ? AND to_user_id = ?)
		   OR (from_user_id = ? AND to_user_id = ?)
		ORDER BY created_at ASC
	`)
	rows, err := s.db.QueryContext(ctx, query, userID, partnerID, partnerID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (s *SQLStore) MarkRead(ctx context.Context, fromUserID, toUserID string) error {
	query := s.rebind("UPDATE messages SET read = TRUE WHERE from_user_id = ? AND to_user_id = ? AND read = FALSE")
	_, err := s.db.ExecContext(ctx, query, fromUserID, toUserID)
	return err
}

func (s *SQLStore) MessagesInvolving(ctx context.Context, userID string) ([]models.Message, error) {
	query := s.rebind(`
		SELECT id, from_user_id, to_user_id, content, read, created_at
		FROM messages
		WHERE from_user_id = ? OR to_user_id = ?
		ORDER BY created_at DESC
	`)
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Content, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	var pic sql.NullString
	query := s.rebind("SELECT id, username, profile_pic FROM users WHERE id = ?")
	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &pic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.ProfilePic = pic.String
	return &user, nil
}

// CreateUser seeds a directory record. The directory is owned elsewhere; this
// exists for provisioning and tests.
func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	query := s.rebind("INSERT INTO users (id, username, profile_pic) VALUES (?, ?, ?)")
	_, err := s.db.ExecContext(ctx, query, user.ID, user.Username, user.ProfilePic)
	return err
}
