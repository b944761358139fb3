package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sittichok/user-service/config"
	repo "github.com/sittichok/user-service/internal/domain/repository"
	"github.com/sittichok/user-service/internal/infrastructure/broker"
	"github.com/sittichok/user-service/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	esClient    *elasticsearch.Client

	jwtManager *helpers.JWTManager

	rabbitConn   *helpers.RabbitConn
	brokerClient *broker.Client

	userRepo   repo.UserRepository
	outboxRepo repo.OutboxRepository
)

func SetConfig(c *config.Config)          { cfg = c }
func GetConfig() *config.Config           { return cfg }
func SetLogger(l *logrus.Logger)          { logger = l }
func GetLogger() *logrus.Logger           { return logger }
func SetPGPool(p *pgxpool.Pool)           { pgPool = p }
func GetPGPool() *pgxpool.Pool            { return pgPool }
func SetRedis(r *redis.Client)            { redisClient = r }
func GetRedis() *redis.Client             { return redisClient }
func SetES(c *elasticsearch.Client)       { esClient = c }
func GetES() *elasticsearch.Client        { return esClient }
func SetJWT(m *helpers.JWTManager)        { jwtManager = m }
func GetJWT() *helpers.JWTManager         { return jwtManager }
func SetRabbitConn(r *helpers.RabbitConn) { rabbitConn = r }
func GetRabbitConn() *helpers.RabbitConn  { return rabbitConn }

func SetBroker(b *broker.Client) { brokerClient = b }
func GetBroker() *broker.Client  { return brokerClient }

func SetUserRepo(r repo.UserRepository)     { userRepo = r }
func GetUserRepo() repo.UserRepository      { return userRepo }
func SetOutboxRepo(r repo.OutboxRepository) { outboxRepo = r }
func GetOutboxRepo() repo.OutboxRepository  { return outboxRepo }
