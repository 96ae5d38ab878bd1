// Package store is the SQLite persistence layer: user records, group
// records (each carrying its channel id, minted once at creation), and
// payment order lifecycles.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ujjwal250802/chatapplication/internal/payment"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath and applies migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			profile_pic TEXT,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			channel_id TEXT NOT NULL UNIQUE,
			members TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS payment_orders (
			id TEXT PRIMARY KEY,
			amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			recipient_name TEXT NOT NULL,
			recipient_upi TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_orders_status ON payment_orders(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	ProfilePic   string
	CreatedAt    time.Time
}

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, full_name, email, password_hash, profile_pic, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.FullName, u.Email, u.PasswordHash, u.ProfilePic, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password_hash, profile_pic, created_at FROM users WHERE email = ?`, email))
}

func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password_hash, profile_pic, created_at FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	var pic sql.NullString
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &pic, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.ProfilePic = pic.String
	return &u, nil
}

type Group struct {
	ID        string
	Name      string
	OwnerID   string
	ChannelID string
	Members   []string
	CreatedAt time.Time
}

func (s *Store) CreateGroup(ctx context.Context, g *Group) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	members, err := json.Marshal(g.Members)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, owner_id, channel_id, members, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.OwnerID, g.ChannelID, string(members), g.CreatedAt)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (s *Store) GroupByID(ctx context.Context, id string) (*Group, error) {
	var g Group
	var members string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, channel_id, members, created_at FROM groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.OwnerID, &g.ChannelID, &members, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
		return nil, err
	}
	return &g, nil
}

// GroupChannelID satisfies the channel resolver's group lookup.
func (s *Store) GroupChannelID(ctx context.Context, groupID string) (string, error) {
	g, err := s.GroupByID(ctx, groupID)
	if err != nil {
		return "", err
	}
	return g.ChannelID, nil
}

func (s *Store) SaveOrder(ctx context.Context, o *payment.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_orders (id, amount, currency, recipient_name, recipient_upi, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Amount, o.Currency, o.RecipientName, o.RecipientUPI, string(o.Status), o.CreatedAt, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status payment.OrderStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE payment_orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) OrderByID(ctx context.Context, id string) (*payment.Order, error) {
	var o payment.Order
	var status string
	var updated time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT id, amount, currency, recipient_name, recipient_upi, status, created_at, updated_at
		 FROM payment_orders WHERE id = ?`, id).
		Scan(&o.ID, &o.Amount, &o.Currency, &o.RecipientName, &o.RecipientUPI, &status, &o.CreatedAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = payment.OrderStatus(status)
	return &o, nil
}
