package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/onnwee/bot-tender/backend/crypto"
)

// Account statuses. Banned is terminal: a banned account never becomes active again.
const (
	AccountActive  = "active"
	AccountPending = "pending"
	AccountBanned  = "banned"
)

// Connection statuses for an assigned bot.
const (
	ConnOnline  = "online"
	ConnOffline = "offline"
)

type Account struct {
	ID                int
	Username          string
	Email             string
	Status            string
	AssignedChannelID sql.NullInt64
	ActiveOnChannel   bool
	ConnectionStatus  sql.NullString
	CreatedAt         time.Time
	LastUsed          sql.NullTime
}

// AccountStats aggregates account counts by status.
type AccountStats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Pending int `json:"pending"`
	Banned  int `json:"banned"`
}

// RegisterAccount creates an active bot account with a bcrypt password hash.
// Returns ErrConflict when the username or email is already taken.
func RegisterAccount(ctx context.Context, db *sql.DB, username, email, password string) (int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	var id int
	err = db.QueryRowContext(ctx,
		`INSERT INTO accounts (username, email, password_hash, status) VALUES ($1,$2,$3,$4) RETURNING id`,
		username, email, string(hash), AccountActive).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return id, nil
}

// NextSuffix returns the next numeric suffix for bulk-registered usernames with
// the given prefix, continuing from the current maximum (1 when none exist).
func NextSuffix(ctx context.Context, db *sql.DB, prefix string) (int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT username FROM accounts WHERE username LIKE $1 || '%'`, prefix)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	maxSuffix := 0
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return 0, err
		}
		tail := strings.TrimPrefix(username, prefix)
		if n, err := strconv.Atoi(tail); err == nil && n > maxSuffix {
			maxSuffix = n
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return maxSuffix + 1, nil
}

// ListAccounts returns accounts newest-first together with status counts.
func ListAccounts(ctx context.Context, db *sql.DB) ([]Account, AccountStats, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, username, email, status, assigned_channel_id,
		       COALESCE(is_active_on_channel, FALSE), connection_status,
		       created_at, last_used
		FROM accounts
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, AccountStats{}, err
	}
	defer rows.Close()
	accounts := make([]Account, 0)
	var stats AccountStats
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.Status, &a.AssignedChannelID,
			&a.ActiveOnChannel, &a.ConnectionStatus, &a.CreatedAt, &a.LastUsed); err != nil {
			return nil, AccountStats{}, err
		}
		accounts = append(accounts, a)
		stats.Total++
		switch a.Status {
		case AccountActive:
			stats.Active++
		case AccountPending:
			stats.Pending++
		case AccountBanned:
			stats.Banned++
		}
	}
	return accounts, stats, rows.Err()
}

// BanAccount marks an account banned and returns its username.
// Returns ErrNotFound for an unknown id. The assigned channel's active_bots
// counter is recomputed so a ban is reflected immediately.
func BanAccount(ctx context.Context, db *sql.DB, id int) (string, error) {
	var username string
	var channelID sql.NullInt64
	err := db.QueryRowContext(ctx,
		`SELECT username, assigned_channel_id FROM accounts WHERE id=$1`, id).
		Scan(&username, &channelID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if _, err := db.ExecContext(ctx,
		`UPDATE accounts SET status=$1, is_active_on_channel=FALSE, connection_status=NULL WHERE id=$2`,
		AccountBanned, id); err != nil {
		return "", err
	}
	if channelID.Valid {
		if _, err := RecomputeActiveBots(ctx, db, int(channelID.Int64)); err != nil {
			return "", err
		}
	}
	return username, nil
}

// SetChatToken stores a per-account chat token, encrypted at rest when an
// encryptor is provided.
func SetChatToken(ctx context.Context, db *sql.DB, enc crypto.Encryptor, accountID int, token string) error {
	stored := token
	encrypted := false
	if enc != nil && token != "" {
		c, err := crypto.EncryptString(enc, token)
		if err != nil {
			return fmt.Errorf("encrypt chat token: %w", err)
		}
		stored = c
		encrypted = true
	}
	res, err := db.ExecContext(ctx,
		`UPDATE accounts SET chat_token=$1, chat_token_encrypted=$2 WHERE id=$3`,
		stored, encrypted, accountID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ChatToken retrieves and (if needed) decrypts an account's chat token.
// Returns empty string when the account has no stored token.
func ChatToken(ctx context.Context, db *sql.DB, enc crypto.Encryptor, accountID int) (string, error) {
	var token sql.NullString
	var encrypted bool
	err := db.QueryRowContext(ctx,
		`SELECT chat_token, COALESCE(chat_token_encrypted, FALSE) FROM accounts WHERE id=$1`,
		accountID).Scan(&token, &encrypted)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if !token.Valid || token.String == "" {
		return "", nil
	}
	if !encrypted {
		return token.String, nil
	}
	if enc == nil {
		return "", fmt.Errorf("chat token is encrypted but no encryption key is configured")
	}
	return crypto.DecryptString(enc, token.String)
}

// AssignAccounts assigns up to limit eligible accounts to a channel and
// returns the assigned ids. Eligible means status=active and either
// unassigned or already assigned to this channel but not active on it. Banned
// accounts are never selected. Zero eligible accounts is not an error.
func AssignAccounts(ctx context.Context, db *sql.DB, channelID, limit int) ([]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id FROM accounts
		WHERE status=$1
		  AND (assigned_channel_id IS NULL OR assigned_channel_id=$2)
		  AND COALESCE(is_active_on_channel, FALSE)=FALSE
		ORDER BY id
		LIMIT $3`, AccountActive, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]int, 0, limit)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := db.ExecContext(ctx, `
			UPDATE accounts
			SET assigned_channel_id=$1, is_active_on_channel=TRUE,
			    connection_status=COALESCE(connection_status, $2)
			WHERE id=$3`, channelID, ConnOffline, id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// StartableAccounts returns the channel's assigned, active, currently-offline
// accounts, the candidates for a start-bots batch.
func StartableAccounts(ctx context.Context, db *sql.DB, channelID int) ([]Account, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, username, email, status, assigned_channel_id,
		       COALESCE(is_active_on_channel, FALSE), connection_status,
		       created_at, last_used
		FROM accounts
		WHERE status=$1 AND assigned_channel_id=$2
		  AND COALESCE(is_active_on_channel, FALSE)=TRUE
		  AND connection_status IS DISTINCT FROM $3
		ORDER BY id`, AccountActive, channelID, ConnOnline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Account, 0)
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.Status, &a.AssignedChannelID,
			&a.ActiveOnChannel, &a.ConnectionStatus, &a.CreatedAt, &a.LastUsed); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkOnline sets an account's connection status to online.
func MarkOnline(ctx context.Context, db *sql.DB, accountID int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE accounts SET connection_status=$1 WHERE id=$2`, ConnOnline, accountID)
	return err
}

// TouchLastUsed updates an account's last_used timestamp.
func TouchLastUsed(ctx context.Context, db *sql.DB, accountID int) error {
	_, err := db.ExecContext(ctx, `UPDATE accounts SET last_used=NOW() WHERE id=$1`, accountID)
	return err
}
