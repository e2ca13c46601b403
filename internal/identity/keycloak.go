package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// KeycloakConfig carries the connection settings for the Keycloak admin API.
type KeycloakConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	// CacheTTL bounds how long a user's resolved group list may be served
	// from Redis. Membership checks bypass the cache entirely.
	CacheTTL time.Duration
}

// KeycloakResolver answers group-membership questions against the Keycloak
// admin API. Group lists are cached briefly in Redis and concurrent fetches
// for the same user are collapsed; IsMember always queries live so a revoked
// membership is seen immediately.
//
// Keycloak returns a user's groups in a stable order and the cache preserves
// it, which the first-match fan-out in the permission services depends on.
type KeycloakResolver struct {
	client *resty.Client
	repo   Repository
	cache  *redis.Client
	cfg    KeycloakConfig
	logger *slog.Logger
	flight singleflight.Group

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewKeycloakResolver constructs a resolver. The cache client may be nil, in
// which case every GroupsOf call goes to Keycloak.
func NewKeycloakResolver(cfg KeycloakConfig, repo Repository, cache *redis.Client, logger *slog.Logger) *KeycloakResolver {
	return &KeycloakResolver{
		client: resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(10 * time.Second),
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

type keycloakGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type keycloakToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// GroupsOf returns the groups the user is currently a member of, in the order
// the identity provider reports them.
func (r *KeycloakResolver) GroupsOf(ctx context.Context, user *User) ([]Group, error) {
	key := "identity:groups:" + user.KeycloakID

	if r.cache != nil {
		raw, err := r.cache.Get(ctx, key).Bytes()
		if err == nil {
			var groups []Group
			if err := json.Unmarshal(raw, &groups); err == nil {
				return groups, nil
			}
			r.logger.Warn("discarding undecodable group cache entry", slog.String("key", key))
		} else if err != redis.Nil {
			r.logger.Warn("group cache read failed", slog.Any("error", err))
		}
	}

	v, err, _ := r.flight.Do(key, func() (any, error) {
		groups, err := r.fetchGroups(ctx, user)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if raw, err := json.Marshal(groups); err == nil {
				if err := r.cache.Set(ctx, key, raw, r.cfg.CacheTTL).Err(); err != nil {
					r.logger.Warn("group cache write failed", slog.Any("error", err))
				}
			}
		}
		return groups, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Group), nil
}

// IsMember reports whether the user is currently a member of the group. The
// provider is always asked live.
func (r *KeycloakResolver) IsMember(ctx context.Context, user *User, group *Group) (bool, error) {
	groups, err := r.fetchGroups(ctx, user)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		if g.KeycloakID == group.KeycloakID {
			return true, nil
		}
	}
	return false, nil
}

func (r *KeycloakResolver) fetchGroups(ctx context.Context, user *User) ([]Group, error) {
	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var kcGroups []keycloakGroup
	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&kcGroups).
		SetPathParams(map[string]string{"realm": r.cfg.Realm, "user": user.KeycloakID}).
		Get("/admin/realms/{realm}/users/{user}/groups")
	if err != nil {
		return nil, fmt.Errorf("identity: fetch groups: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("identity: fetch groups: keycloak returned %s", resp.Status())
	}

	groups := make([]Group, 0, len(kcGroups))
	for _, kg := range kcGroups {
		group, err := r.repo.EnsureGroup(ctx, kg.ID, kg.Name)
		if err != nil {
			return nil, fmt.Errorf("identity: ensure group %s: %w", kg.ID, err)
		}
		groups = append(groups, *group)
	}
	return groups, nil
}

func (r *KeycloakResolver) accessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && time.Now().Before(r.tokenExpiry.Add(-30*time.Second)) {
		return r.token, nil
	}

	var token keycloakToken
	resp, err := r.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     r.cfg.ClientID,
			"client_secret": r.cfg.ClientSecret,
		}).
		SetResult(&token).
		SetPathParam("realm", r.cfg.Realm).
		Post("/realms/{realm}/protocol/openid-connect/token")
	if err != nil {
		return "", fmt.Errorf("identity: token request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("identity: token request: keycloak returned %s", resp.Status())
	}

	r.token = token.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return r.token, nil
}
