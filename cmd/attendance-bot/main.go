// Command attendance-bot runs the cohort attendance bot: the chat-side
// workflows (membership validation, enforcement, attendance sessions,
// catalog and score queries) and the HTTP registration API, sharing one
// worksheet-grid record store.
//
// Inbound chat updates arrive on POST /webhook/updates; outbound chat
// actions go through the chat.Platform interface. Without a real transport
// adapter the dry-run platform is used, which logs outbound actions instead
// of delivering them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/docsanddecks/attendance-bot/internal/bot"
	"github.com/docsanddecks/attendance-bot/internal/chat"
	"github.com/docsanddecks/attendance-bot/internal/config"
	httpapi "github.com/docsanddecks/attendance-bot/internal/http"
	"github.com/docsanddecks/attendance-bot/internal/observability"
	"github.com/docsanddecks/attendance-bot/internal/repo"
	"github.com/docsanddecks/attendance-bot/internal/scheduler"
	"github.com/docsanddecks/attendance-bot/internal/services"
	"github.com/docsanddecks/attendance-bot/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// The shims below adapt the repository free functions to the service
// interfaces, keeping services decoupled from the concrete repo package.

type rosterRepoShim struct{}

func (rosterRepoShim) IdentityExists(ctx context.Context, db *gorm.DB, sheet string, identity int64) (bool, error) {
	return repo.IdentityExists(ctx, db, sheet, identity)
}

func (rosterRepoShim) LinkIdentity(ctx context.Context, db *gorm.DB, sheet, displayName string, identity int64) (bool, error) {
	return repo.LinkIdentity(ctx, db, sheet, displayName, identity)
}

func (rosterRepoShim) LinkIdentityByEmail(ctx context.Context, db *gorm.DB, sheet, email string, identity int64) (bool, error) {
	return repo.LinkIdentityByEmail(ctx, db, sheet, email, identity)
}

func (rosterRepoShim) FindByPaymentReference(ctx context.Context, db *gorm.DB, sheet, reference string) (string, int, error) {
	return repo.FindByPaymentReference(ctx, db, sheet, reference)
}

type attendanceRepoShim struct{}

func (attendanceRepoShim) NewAttendanceColumn(ctx context.Context, db *gorm.DB, sheet string, now time.Time) (int, error) {
	return repo.NewAttendanceColumn(ctx, db, sheet, now)
}

func (attendanceRepoShim) MarkAttendance(ctx context.Context, db *gorm.DB, sheet string, identity int64, col, marks int) (bool, error) {
	return repo.MarkAttendance(ctx, db, sheet, identity, col, marks)
}

func (attendanceRepoShim) CountAttendance(ctx context.Context, db *gorm.DB, sheet string, col int) (int, error) {
	return repo.CountAttendance(ctx, db, sheet, col)
}

type scoreRepoShim struct{}

func (scoreRepoShim) MemberByIdentity(ctx context.Context, db *gorm.DB, sheet string, identity int64) (map[string]string, error) {
	return repo.MemberByIdentity(ctx, db, sheet, identity)
}

func (scoreRepoShim) AssignmentScore(ctx context.Context, db *gorm.DB, sheet, email string) (string, error) {
	return repo.AssignmentScore(ctx, db, sheet, email)
}

func (scoreRepoShim) OverallScore(ctx context.Context, db *gorm.DB, sheet, email string) (map[string]string, error) {
	return repo.OverallScore(ctx, db, sheet, email)
}

type catalogRepoShim struct{}

func (catalogRepoShim) Assignments(ctx context.Context, db *gorm.DB, sheet string) ([]map[string]string, error) {
	return repo.Assignments(ctx, db, sheet)
}

func (catalogRepoShim) Recordings(ctx context.Context, db *gorm.DB, sheet string) ([]map[string]string, error) {
	return repo.Recordings(ctx, db, sheet)
}

func (catalogRepoShim) Resources(ctx context.Context, db *gorm.DB, sheet string) ([]map[string]string, error) {
	return repo.Resources(ctx, db, sheet)
}

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open record store failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate record store failed")
	}
	for _, sheet := range []string{
		cfg.Sheets.Participants,
		cfg.Sheets.Assignments,
		cfg.Sheets.Recordings,
		cfg.Sheets.Resources,
		cfg.Sheets.OverallScores,
		cfg.Sheets.Registration,
	} {
		if _, err := repo.EnsureWorksheet(ctx, db, sheet); err != nil {
			log.Fatal().Err(err).Str("sheet", sheet).Msg("ensure worksheet failed")
		}
	}

	sched := scheduler.New(log.Logger)
	go sched.Run(ctx)

	// Dry-run platform until a real transport adapter is plugged in.
	platform := chat.NewLogPlatform(log.Logger)

	b := bot.New(platform, log.Logger)
	b.BotName = cfg.BotName
	b.GroupLink = cfg.GroupLink
	b.PaymentGate = cfg.PaymentGate
	b.SelfID = cfg.SelfID
	b.Linker = &services.LinkerService{
		DB:                db,
		Repo:              rosterRepoShim{},
		Sheet:             cfg.Sheets.Participants,
		RegistrationSheet: cfg.Sheets.Registration,
	}
	b.Enforcement = services.NewEnforcementService(
		b.Linker, b.Directory(), b.Moderator(), b, sched,
		cfg.Enforcement.RecheckInterval,
		cfg.Enforcement.PendingMaxAttempts,
		cfg.Enforcement.RemovedMaxAttempts,
		log.Logger,
	)
	b.Attendance = services.NewAttendanceService(
		db, attendanceRepoShim{}, b.Admins(), cfg.Sheets.Participants, cfg.MarkValue)
	b.Catalog = &services.CatalogService{
		DB:   db,
		Repo: catalogRepoShim{},
		Sheets: services.CatalogSheets{
			Assignments: cfg.Sheets.Assignments,
			Recordings:  cfg.Sheets.Recordings,
			Resources:   cfg.Sheets.Resources,
		},
	}
	b.Scores = &services.ScoreService{
		DB:           db,
		Repo:         scoreRepoShim{},
		RosterSheet:  cfg.Sheets.Participants,
		OverallSheet: cfg.Sheets.OverallScores,
	}

	dispatcher := chat.NewDispatcher(log.Logger)
	b.Register(dispatcher)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg)
	httpapi.RegisterUpdatesWebhook(r, dispatcher, cfg.WebhookSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}
