package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sittichok/user-service/internal/domain/entity"
	repo "github.com/sittichok/user-service/internal/domain/repository"
	"github.com/sittichok/user-service/internal/infrastructure/broker"
	"github.com/sittichok/user-service/pkg/helpers"
)

// EventBroker ensures the fanout topology and publishes onto it.
type EventBroker interface {
	EnsureTopology(ctx context.Context) (broker.Channel, error)
	Publish(ctx context.Context, ch broker.Channel, ev entity.Event) error
}

// PasswordHasher is the credential hashing contract used by the service.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

type argon2Hasher struct{}

func (argon2Hasher) Hash(plain string) (string, error) { return helpers.HashPassword(plain) }
func (argon2Hasher) Verify(hash, plain string) bool    { return helpers.CompareHashAndPassword(hash, plain) }

// DefaultHasher is argon2id with the default parameters.
var DefaultHasher PasswordHasher = argon2Hasher{}

type Service struct {
	Repo         repo.UserRepository
	JWT          *helpers.JWTManager
	Broker       EventBroker
	Outbox       repo.OutboxRepository
	Hasher       PasswordHasher
	Redis        *redis.Client
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string
}

func NewService(repo repo.UserRepository, jwt *helpers.JWTManager, eb EventBroker, outbox repo.OutboxRepository, rdb *redis.Client, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		Repo:         repo,
		JWT:          jwt,
		Broker:       eb,
		Outbox:       outbox,
		Hasher:       DefaultHasher,
		Redis:        rdb,
		Logger:       logger,
		ES:           es,
		ESUsersIndex: esUsersIndex,
	}
}

func profileKey(id int64) string {
	return "user:profile:" + strconv.FormatInt(id, 10)
}

const profileTTL = 5 * time.Minute

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *entity.User
}

// Login looks the user up by email, verifies the password and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: find by email: %v", ErrStore, err)
	}
	if !s.Hasher.Verify(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	token, exp, err := s.JWT.GenerateAccessToken(u.ID, u.Role.String())
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		return nil, err
	}
	return &LoginResult{AccessToken: token, ExpiresAt: exp, User: u}, nil
}

// GetProfile returns the public profile, served from Redis when cached.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*entity.Profile, error) {
	if s.Redis != nil {
		var cached entity.Profile
		ok, err := helpers.RedisGetJSON(ctx, s.Redis, profileKey(userID), &cached)
		if err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("profile cache read failed")
		} else if ok {
			return &cached, nil
		}
	}

	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: find by id: %v", ErrStore, err)
	}
	p := u.Profile()

	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, profileKey(userID), p, profileTTL); err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("profile cache write failed")
		}
	}
	return &p, nil
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":         u.ID,
		"fullname":   u.Fullname,
		"email":      u.Email,
		"role":       u.Role,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: strconv.FormatInt(u.ID, 10), Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}

// SearchUsers performs a simple multi_match search on email and fullname.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "fullname"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
