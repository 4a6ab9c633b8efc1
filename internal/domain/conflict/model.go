package conflict

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"reposync/internal/domain/mapper"
)

// Strategy стратегия разрешения конфликта записи
type Strategy string

const (
	StrategyRemoteWins Strategy = "remote_wins"
	StrategyLocalWins  Strategy = "local_wins"
	StrategyNewestWins Strategy = "newest_wins"
	StrategyManual     Strategy = "manual"
)

// ParseStrategy разбирает стратегию из конфигурации.
// Допускаются короткие имена: remote/server, local/client, newest/newer.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "remote_wins", "remote", "server":
		return StrategyRemoteWins, nil
	case "local_wins", "local", "client":
		return StrategyLocalWins, nil
	case "newest_wins", "newest", "newer":
		return StrategyNewestWins, nil
	case "manual":
		return StrategyManual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Side сторона, чье состояние победило
type Side string

const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
)

// Resolution итог разрешения конфликта.
// Resolved=false означает, что конфликт отложен и модель не изменялась.
type Resolution struct {
	Resolved bool             `json:"resolved"`
	Winner   Side             `json:"winner,omitempty"`
	Strategy Strategy         `json:"strategy"`
	Model    mapper.Model     `json:"-"`
	Conflict *PendingConflict `json:"conflict,omitempty"`
}

// Status статус отложенного конфликта
type Status string

const (
	StatusPending   Status = "pending"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

// PendingConflict конфликт, ожидающий решения оператора
type PendingConflict struct {
	ID             string          `json:"id"`
	ModelType      string          `json:"model_type"`
	ModelID        string          `json:"model_id"`
	URI            string          `json:"uri"`
	RemoteVersion  string          `json:"remote_cid,omitempty"`
	LocalSnapshot  json.RawMessage `json:"local_snapshot"`
	RemoteSnapshot json.RawMessage `json:"remote_snapshot"`
	Status         Status          `json:"status"`
	Resolution     Side            `json:"resolution,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
}

// IsPending конфликт еще не закрыт
func (c *PendingConflict) IsPending() bool {
	return c.Status == StatusPending
}
