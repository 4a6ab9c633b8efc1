package xrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"reposync/internal/domain/remote"
)

// StaticResolver отдает один и тот же адрес для всех владельцев
type StaticResolver struct {
	Endpoint string
}

func (r StaticResolver) ResolveEndpoint(_ context.Context, owner string) (string, error) {
	if r.Endpoint == "" || owner == "" {
		return "", remote.ErrUnresolvable
	}
	return r.Endpoint, nil
}

const pdsServiceID = "#atproto_pds"

// DirectoryResolver находит адрес репозитория по DID-документу.
// did:plc разрешается через каталог PLC, did:web через /.well-known/did.json.
// Найденные адреса кэшируются на время жизни процесса.
type DirectoryResolver struct {
	plcURL string
	client *http.Client
	log    *slog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

func NewDirectoryResolver(plcURL string, client *http.Client, log *slog.Logger) *DirectoryResolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DirectoryResolver{
		plcURL: strings.TrimRight(plcURL, "/"),
		client: client,
		log:    log.With("component", "directory_resolver"),
		cache:  make(map[string]string),
	}
}

type didDocument struct {
	ID      string `json:"id"`
	Service []struct {
		ID              string `json:"id"`
		Type            string `json:"type"`
		ServiceEndpoint string `json:"serviceEndpoint"`
	} `json:"service"`
}

func (r *DirectoryResolver) ResolveEndpoint(ctx context.Context, owner string) (string, error) {
	r.mu.RLock()
	endpoint, ok := r.cache[owner]
	r.mu.RUnlock()
	if ok {
		return endpoint, nil
	}

	docURL, err := r.documentURL(owner)
	if err != nil {
		return "", err
	}

	doc, err := r.fetch(ctx, docURL)
	if err != nil {
		r.log.Error("failed to resolve did document", "owner", owner, "error", err)
		return "", fmt.Errorf("%w: %s: %v", remote.ErrUnresolvable, owner, err)
	}

	for _, svc := range doc.Service {
		if strings.HasSuffix(svc.ID, pdsServiceID) && svc.ServiceEndpoint != "" {
			endpoint = strings.TrimRight(svc.ServiceEndpoint, "/")
			r.mu.Lock()
			r.cache[owner] = endpoint
			r.mu.Unlock()
			return endpoint, nil
		}
	}
	return "", fmt.Errorf("%w: %s has no %s service", remote.ErrUnresolvable, owner, pdsServiceID)
}

func (r *DirectoryResolver) documentURL(owner string) (string, error) {
	switch {
	case strings.HasPrefix(owner, "did:plc:"):
		if r.plcURL == "" {
			return "", fmt.Errorf("%w: plc directory is not configured", remote.ErrUnresolvable)
		}
		return r.plcURL + "/" + owner, nil
	case strings.HasPrefix(owner, "did:web:"):
		host := strings.TrimPrefix(owner, "did:web:")
		if host == "" {
			return "", fmt.Errorf("%w: %q", remote.ErrUnresolvable, owner)
		}
		return "https://" + host + "/.well-known/did.json", nil
	default:
		return "", fmt.Errorf("%w: unsupported owner %q", remote.ErrUnresolvable, owner)
	}
}

func (r *DirectoryResolver) fetch(ctx context.Context, docURL string) (*didDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var doc didDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode did document: %w", err)
	}
	return &doc, nil
}
