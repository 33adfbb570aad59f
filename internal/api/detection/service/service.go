package detectionService

import (
	"ProjectSpatial/internal/api/detection"
	detectionRepository "ProjectSpatial/internal/api/detection/repository"
	"ProjectSpatial/internal/entity"
	"ProjectSpatial/pkg/catalog"
	"ProjectSpatial/pkg/gemini"
	"ProjectSpatial/pkg/s3"
	"ProjectSpatial/pkg/stream"
	"ProjectSpatial/pkg/utils"
	websocketPkg "ProjectSpatial/pkg/websocket"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IDetectionService interface {
	CreateSession(ctx context.Context, req detection.CreateSessionRequest) (entity.DetectionSession, error)
	GetSession(ctx context.Context, id string) (entity.DetectionSession, error)
	UpdateSession(ctx context.Context, id string, req detection.UpdateSessionRequest) (entity.DetectionSession, error)
	DeleteSession(ctx context.Context, id string) error
	ResetSession(ctx context.Context, id string) (entity.DetectionSession, error)

	UpdatePrompt(ctx context.Context, id string, req detection.UpdatePromptRequest) (entity.DetectionSession, error)
	PreviewPrompt(ctx context.Context, id string) (detection.PromptPreviewResponse, error)

	AddStroke(ctx context.Context, id string, req detection.AddStrokeRequest) (entity.DetectionSession, error)
	ClearStrokes(ctx context.Context, id string) (entity.DetectionSession, error)
	UploadImage(ctx context.Context, id string, data []byte) (entity.DetectionSession, error)

	PublishFrame(sessionID string, frame []byte)
	HasLiveFrame(sessionID string) bool
	EndStream(sessionID string)
	AttachRelay(ctx context.Context, id string, url string) error
	DetachRelay(ctx context.Context, id string) error
	IsRelayAttached(sessionID string) bool

	Send(ctx context.Context, id string) (entity.DetectionResult, error)
	IsSending(sessionID string) bool
	GetResult(ctx context.Context, id string) (entity.DetectionResult, error)
	Detect(ctx context.Context, req detection.DetectRequest, image []byte) (entity.DetectionResult, error)

	Catalog(category string) []catalog.Product
}

type detectionService struct {
	log        *logrus.Logger
	repository detectionRepository.Repository
	s3         s3.ItfS3
	gemini     gemini.IGemini
	frames     stream.IFrameHub
	relay      websocketPkg.IRelay
	catalog    catalog.ICatalog
	utils      utils.IUtils
	inflight   *inflightGuard
	now        func() time.Time
}

func NewDetectionService(
	log *logrus.Logger,
	repository detectionRepository.Repository,
	s3 s3.ItfS3,
	gemini gemini.IGemini,
	frames stream.IFrameHub,
	relay websocketPkg.IRelay,
	catalog catalog.ICatalog,
	utils utils.IUtils,
) IDetectionService {
	return &detectionService{
		log:        log,
		repository: repository,
		s3:         s3,
		gemini:     gemini,
		frames:     frames,
		relay:      relay,
		catalog:    catalog,
		utils:      utils,
		inflight:   newInflightGuard(),
		now:        time.Now,
	}
}

func (s *detectionService) Catalog(category string) []catalog.Product {
	if s.catalog == nil {
		return []catalog.Product{}
	}
	return s.catalog.ByCategory(category)
}
