package bootstrap

import (
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"patient-sim-be/internal/config"
	"patient-sim-be/internal/controller"
	"patient-sim-be/internal/pkg/logger"
	"patient-sim-be/internal/repository/memory"
	"patient-sim-be/internal/service"
	"patient-sim-be/pkg/cases"
	"patient-sim-be/pkg/codebook"
	"patient-sim-be/pkg/llm/factory"
	"patient-sim-be/pkg/nlg"
	"patient-sim-be/pkg/nlu"
)

type Container struct {
	// Controllers
	PatientController   controller.IPatientController
	ProfessorController controller.IProfessorController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Shared infrastructure
	Logger    logger.ILogger
	HasLLMKey bool
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Domain data: both catalogs load once at startup and are shared
	// read-only across all requests. A broken codebook or an empty case
	// file is fatal: the simulator cannot answer or grade without them.
	cb, err := codebook.Load(cfg.Data.EvidencesPath, cfg.Data.ConditionsPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load codebook: %v", err)
	}
	log.Printf("[INFO] Codebook loaded: %d evidence rows", cb.Len())

	catalog, err := cases.LoadCatalog(cfg.Data.CasesPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load case catalog: %v", err)
	}
	log.Printf("[INFO] Case catalog loaded: %d cases", catalog.Len())

	// 3. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	publisherService := service.NewPublisherService(pubSub, cfg.App.EventTopic)

	eventLogger := logger.NewIsolatedLogger(cfg.App.EventLogFilePath)
	consumerService := service.NewConsumerService(pubSub, cfg.App.EventTopic, eventLogger)

	// 4. LLM provider + language layers
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OpenAIAPIKey,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	resolver := nlu.NewLLMResolver(llmProvider, sysLogger)
	generator := nlg.NewLLMGenerator(llmProvider, sysLogger)

	// 5. In-memory session registry with TTL eviction
	sessionRepo := memory.NewSessionRepository(
		catalog,
		time.Duration(cfg.App.SessionTTLMinutes)*time.Minute,
		time.Duration(cfg.App.SessionPurgeMins)*time.Minute,
	)

	// 6. Services
	patientService := service.NewPatientService(cb, sessionRepo, resolver, generator, publisherService, sysLogger)
	professorService := service.NewProfessorService(cb, sessionRepo, consumerService, publisherService, sysLogger)

	return &Container{
		PatientController:   controller.NewPatientController(patientService),
		ProfessorController: controller.NewProfessorController(professorService),
		ConsumerService:     consumerService,
		Logger:              sysLogger,
		HasLLMKey:           cfg.Ai.OpenAIAPIKey != "",
	}
}
