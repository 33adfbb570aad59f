package detectionRepository

import (
	"ProjectSpatial/internal/entity"
	redisPkg "ProjectSpatial/pkg/redis"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	sessionKeyPrefix = "detection:session:"
	resultKeyPrefix  = "detection:result:"
	defaultTTL       = 24 * time.Hour
)

type Repository interface {
	SaveSession(ctx context.Context, session entity.DetectionSession) error
	GetSession(ctx context.Context, id string) (entity.DetectionSession, error)
	DeleteSession(ctx context.Context, id string) error
	SaveResult(ctx context.Context, sessionID string, result entity.DetectionResult) error
	GetResult(ctx context.Context, sessionID string) (entity.DetectionResult, error)
	DeleteResult(ctx context.Context, sessionID string) error
}

type repository struct {
	redis redisPkg.IRedis
	log   *logrus.Logger
	ttl   time.Duration
}

func New(redis redisPkg.IRedis, log *logrus.Logger) Repository {
	ttl := defaultTTL
	if hours, err := strconv.Atoi(os.Getenv("SESSION_TTL_HOURS")); err == nil && hours > 0 {
		ttl = time.Duration(hours) * time.Hour
	}

	return NewWithTTL(redis, log, ttl)
}

func NewWithTTL(redis redisPkg.IRedis, log *logrus.Logger, ttl time.Duration) Repository {
	return &repository{
		redis: redis,
		log:   log,
		ttl:   ttl,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func resultKey(id string) string {
	return resultKeyPrefix + id
}
