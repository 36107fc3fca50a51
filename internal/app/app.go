package app

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bidding/internal/audit"
	"bidding/internal/config"
	"bidding/internal/controller"
	"bidding/internal/event"
	"bidding/internal/repository"
	"bidding/internal/router"
	"bidding/internal/service"
	"bidding/internal/storage"
)

// restartDelay spaces out consumer loop restarts after a processing
// failure so a poisoned partition does not spin the app hot.
const restartDelay = 3 * time.Second

type App struct {
	repo       *repository.Repository
	service    *service.Service
	controller *controller.Controller
	producer   *event.Producer
	sink       audit.Sink
	adapters   []*event.Adapter
	logger     *slog.Logger
	stopSig    chan os.Signal
	cfg        *config.Config

	Done chan struct{}
}

type option func(*App)

func WithConfig(cfg *config.Config) option {
	return func(app *App) {
		app.cfg = cfg
	}
}

func NewApp(opts ...option) (*App, error) {
	var err error

	app := &App{
		stopSig: make(chan os.Signal, 2),
		Done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.cfg == nil {
		cfg, err := config.NewConfig()
		if err != nil {
			return nil, err
		}
		app.cfg = cfg
	}

	app.logger = newLogger(app.cfg.LogLevel)

	app.repo, err = repository.NewRepository(nil, &app.cfg.PostgresConfig)
	if err != nil {
		return nil, err
	}

	docs, err := storage.NewLocalStore(app.cfg.DocumentRoot)
	if err != nil {
		return nil, err
	}

	app.producer = event.NewProducer(app.cfg.Brokers, app.cfg.BidTopic)
	app.sink = audit.NewKafkaSink(app.cfg.Brokers, app.cfg.AuditTopic, app.logger)

	app.service = service.NewService(app.repo, app.producer, app.sink, docs, &app.cfg.PolicyConfig, app.logger)
	app.controller = controller.NewController(app.service, app.logger)

	dead := event.NewKafkaDeadLetter(app.cfg.Brokers, app.cfg.DeadLetterSuffix)
	app.adapters = []*event.Adapter{
		event.NewTenderAdapter(
			event.NewKafkaConsumer(app.cfg.Brokers, app.cfg.GroupId, app.cfg.TenderTopic),
			dead, app.service, app.logger),
		event.NewEvaluationAdapter(
			event.NewKafkaConsumer(app.cfg.Brokers, app.cfg.GroupId, app.cfg.EvaluationTopic),
			dead, app.service, app.logger),
		event.NewContractAdapter(
			event.NewKafkaConsumer(app.cfg.Brokers, app.cfg.GroupId, app.cfg.ContractTopic),
			dead, app.service, app.logger),
	}

	return app, nil
}

func (app *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		signal.Notify(app.stopSig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		sig := <-app.stopSig
		log.Printf("Received signal: %s\n", sig)
		cancel()
	}()

	server := http.Server{
		Addr:         app.cfg.ServerAddress,
		Handler:      router.NewRouter(app.controller),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Println("Http server error:", err)
		}
	}()

	for _, adapter := range app.adapters {
		go app.consume(ctx, adapter)
	}

	log.Printf("Server started at %s, listening for connections...\n", app.cfg.ServerAddress)
	<-ctx.Done()

	timeout, tcancel := context.WithTimeout(context.Background(), time.Second*10)
	defer tcancel()
	log.Println("Shutting down http server...")
	server.Shutdown(timeout)

	log.Println("Closing event consumers...")
	for _, adapter := range app.adapters {
		if err := adapter.Close(); err != nil {
			log.Println("Consumer closing error:", err)
		}
	}
	if err := app.producer.Close(); err != nil {
		log.Println("Producer closing error:", err)
	}
	if sink, ok := app.sink.(*audit.KafkaSink); ok {
		if err := sink.Close(); err != nil {
			log.Println("Audit sink closing error:", err)
		}
	}

	log.Println("Closing repository...")
	err := app.repo.Close()
	if err != nil {
		log.Println("Repository closing error:", err)
	}

	close(app.Done)
	log.Println("Exiting app.")
}

// consume keeps an adapter's loop alive until shutdown. Run only
// returns on a processing failure, so the restart re-fetches the
// uncommitted message.
func (app *App) consume(ctx context.Context, adapter *event.Adapter) {
	for {
		err := adapter.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			app.logger.Error("consumer loop stopped, restarting", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
