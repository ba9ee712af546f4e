package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/yungbote/enrichment-backend/internal/data/aggregates"
	"github.com/yungbote/enrichment-backend/internal/data/repos"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/ctxutil"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

const minSecretLength = 12

type AuthService interface {
	IssueToken(ctx context.Context, clientID, clientSecret string) (*AccessToken, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	CreateWorker(ctx context.Context, in CreateWorkerInput) (*types.Worker, error)
	GetAccessTTL() time.Duration
}

type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

type CreateWorkerInput struct {
	Name         string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// JWTClaims carries the worker id as subject and the granted scopes as a
// space-separated list.
type JWTClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	workers      repos.WorkerRepo
	jwtSecretKey string
	accessTTL    time.Duration
	now          func() time.Time
}

func NewAuthService(log *logger.Logger, workers repos.WorkerRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &authService{
		log:          log.With("service", "AuthService"),
		workers:      workers,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		now:          time.Now,
	}
}

func (as *authService) GetAccessTTL() time.Duration { return as.accessTTL }

// KnownScopes lists every capability a client can be granted.
func KnownScopes() []string {
	out := []string{types.ScopeEnrichmentsRead, types.ScopeEnrichmentsWrite}
	for _, st := range types.Stages() {
		out = append(out, types.MustDescribe(st).Capability)
	}
	sort.Strings(out)
	return out
}

func (as *authService) IssueToken(ctx context.Context, clientID, clientSecret string) (*AccessToken, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || clientSecret == "" {
		return nil, types.NewError(types.CodeUnauthorized, "auth.token", "client credentials are required", nil)
	}
	w, err := as.workers.GetByClientID(dbctx.Context{Ctx: ctx}, clientID)
	if err != nil {
		return nil, aggregates.MapError("auth.token", err)
	}
	if w == nil {
		return nil, types.NewError(types.CodeUnauthorized, "auth.token", "invalid client credentials", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(w.SecretHash), []byte(clientSecret)); err != nil {
		as.log.Warn("Rejected client credentials", "client_id", clientID)
		return nil, types.NewError(types.CodeUnauthorized, "auth.token", "invalid client credentials", nil)
	}

	now := as.now()
	scope := strings.Join(w.Scopes, " ")
	claims := JWTClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   w.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &AccessToken{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(as.accessTTL / time.Second),
		Scope:       scope,
	}, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !parsed.Valid {
		return ctx, types.NewError(types.CodeUnauthorized, "auth.parse", "invalid token", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok {
		return ctx, types.NewError(types.CodeUnauthorized, "auth.parse", "invalid token claims", nil)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return ctx, types.NewError(types.CodeUnauthorized, "auth.parse", "invalid token subject", err)
	}
	return ctxutil.WithCaller(ctx, &ctxutil.Caller{ID: id, Scopes: strings.Fields(claims.Scope)}), nil
}

func (as *authService) CreateWorker(ctx context.Context, in CreateWorkerInput) (*types.Worker, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ClientID = strings.TrimSpace(in.ClientID)

	var causes []string
	if in.Name == "" {
		causes = append(causes, "name is required")
	}
	if in.ClientID == "" {
		causes = append(causes, "client id is required")
	}
	if len(in.ClientSecret) < minSecretLength {
		causes = append(causes, fmt.Sprintf("client secret must be at least %d characters", minSecretLength))
	}
	known := map[string]bool{}
	for _, s := range KnownScopes() {
		known[s] = true
	}
	scopes := make([]string, 0, len(in.Scopes))
	for _, s := range in.Scopes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !known[s] {
			causes = append(causes, fmt.Sprintf("unknown scope %q", s))
			continue
		}
		scopes = append(scopes, s)
	}
	if err := types.ValidationFailed("auth.create_worker", causes...); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.ClientSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash client secret: %w", err)
	}
	w := &types.Worker{
		Name:       in.Name,
		ClientID:   in.ClientID,
		SecretHash: string(hash),
		Scopes:     datatypes.JSONSlice[string](scopes),
	}
	if err := as.workers.Create(dbctx.Context{Ctx: ctx}, w); err != nil {
		return nil, aggregates.MapError("auth.create_worker", err)
	}
	as.log.Info("Created API client", "worker_id", w.ID, "client_id", w.ClientID, "scopes", scopes)
	return w, nil
}
