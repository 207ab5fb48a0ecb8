package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	apikeydomain "github.com/smallbiznis/staypoint/internal/apikey/domain"
	"github.com/smallbiznis/staypoint/internal/apikey/scope"
	auditcontext "github.com/smallbiznis/staypoint/internal/auditcontext"
	"github.com/smallbiznis/staypoint/internal/bizcontext"
	businessdomain "github.com/smallbiznis/staypoint/internal/business/domain"
	"github.com/smallbiznis/staypoint/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	apiKeyPrefix      = "sp_live_"
	apiKeySecretBytes = 32
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  apikeydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  apikeydomain.Repository
}

func New(p Params) apikeydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context) ([]apikeydomain.Response, error) {
	businessID, err := s.businessIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, businessID)
	if err != nil {
		return nil, err
	}

	resp := make([]apikeydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	businessID, err := s.businessIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !s.managerial(ctx) {
		return nil, apikeydomain.ErrPermissionDenied
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apikeydomain.ErrInvalidName
	}

	scopes := scope.Normalize(req.Scopes)
	if len(scopes) == 0 {
		scopes = scope.Default()
	}
	if err := scope.Validate(scopes); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, apikeydomain.ErrInvalidExpiry
	}

	id := s.genID.Generate()
	plain, hash := generateAPIKey(id)

	key := &apikeydomain.APIKey{
		ID:         id,
		BusinessID: businessID,
		Name:       name,
		KeyHash:    hash,
		KeyPrefix:  displayPrefix(plain),
		Scopes:     pq.StringArray(scopes),
		IsActive:   true,
		ExpiresAt:  req.ExpiresAt,
		CreatedBy:  s.actorID(ctx),
		CreatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		return nil, err
	}

	s.log.Info("api key created",
		zap.Int64("business_id", int64(businessID)),
		zap.String("key_id", id.String()),
		zap.Strings("scopes", scopes),
	)

	return &apikeydomain.SecretResponse{ID: id.String(), APIKey: plain}, nil
}

func (s *Service) Revoke(ctx context.Context, id string) error {
	businessID, err := s.businessIDFromContext(ctx)
	if err != nil {
		return err
	}
	if !s.managerial(ctx) {
		return apikeydomain.ErrPermissionDenied
	}

	keyID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || keyID == 0 {
		return apikeydomain.ErrInvalidKeyID
	}

	key, err := s.repo.FindByID(ctx, s.db, businessID, keyID)
	if err != nil {
		return err
	}
	if key == nil {
		return apikeydomain.ErrKeyNotFound
	}

	now := s.clock.Now()
	key.IsActive = false
	if key.ExpiresAt == nil || key.ExpiresAt.After(now) {
		key.ExpiresAt = &now
	}
	if err := s.repo.Update(ctx, s.db, key); err != nil {
		return err
	}

	s.log.Info("api key revoked",
		zap.Int64("business_id", int64(businessID)),
		zap.String("key_id", keyID.String()),
	)
	return nil
}

func (s *Service) businessIDFromContext(ctx context.Context) (snowflake.ID, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok || businessID == 0 {
		return 0, apikeydomain.ErrInvalidBusiness
	}
	return businessID, nil
}

func (s *Service) managerial(ctx context.Context) bool {
	actor, ok := auditcontext.ActorFromContext(ctx)
	if !ok {
		return false
	}
	if actor.Type == auditcontext.ActorTypeSystem {
		return true
	}
	return businessdomain.Managerial(strings.ToUpper(actor.Role))
}

func (s *Service) actorID(ctx context.Context) *snowflake.ID {
	actor, ok := auditcontext.ActorFromContext(ctx)
	if !ok || actor.Type != auditcontext.ActorTypeUser {
		return nil
	}
	if id, err := snowflake.ParseString(strings.TrimSpace(actor.ID)); err == nil && id != 0 {
		return &id
	}
	return nil
}

func toResponse(key *apikeydomain.APIKey) apikeydomain.Response {
	return apikeydomain.Response{
		ID:         key.ID.String(),
		Name:       key.Name,
		KeyPrefix:  key.KeyPrefix,
		Scopes:     append([]string(nil), key.Scopes...),
		IsActive:   key.IsActive,
		CreatedAt:  key.CreatedAt,
		LastUsedAt: key.LastUsedAt,
		ExpiresAt:  key.ExpiresAt,
	}
}

func generateAPIKey(id snowflake.ID) (string, string) {
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		// crypto/rand failure means the process cannot mint credentials at all.
		panic(err)
	}

	plain := fmt.Sprintf("%s%s_%s", apiKeyPrefix, base36(id), hex.EncodeToString(secret))
	return plain, apikeydomain.HashAPIKey(plain)
}

// displayPrefix keeps everything up to the secret so listings show
// "sp_live_Q3X4B" without exposing key material.
func displayPrefix(plain string) string {
	if idx := strings.LastIndex(plain, "_"); idx > 0 {
		return plain[:idx]
	}
	return plain
}

func base36(id snowflake.ID) string {
	return strings.ToUpper(strconv.FormatInt(int64(id), 36))
}
