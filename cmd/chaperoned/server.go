package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonathanwhen/chaperone/moderation/casestore"
	"github.com/jonathanwhen/chaperone/moderation/classify"
	"github.com/jonathanwhen/chaperone/moderation/engine"
	"github.com/jonathanwhen/chaperone/moderation/escalation"
	"github.com/jonathanwhen/chaperone/moderation/infractions"
	"github.com/jonathanwhen/chaperone/moderation/ledger"
	"github.com/jonathanwhen/chaperone/moderation/session"
	"github.com/jonathanwhen/chaperone/moderation/setstore"

	slogGorm "github.com/orandin/slog-gorm"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Server struct {
	logger *slog.Logger
	engine *engine.Engine
	cache  *messageCache

	// pending PostCase drafts awaiting a posted-message callback from the host
	draftsLk  sync.Mutex
	drafts    map[string]*engine.CaseDraft
	nextDraft int
}

type Config struct {
	Logger                      *slog.Logger
	RedisURL                    string
	DatabaseURL                 string
	SetsFileJSON                string
	TermSetName                 string
	ToxicityAPIKey              string
	LLMAPIKey                   string
	LLMModel                    string
	AutoReportThreshold         float64
	SessionMode                 string
	AskImmediateThreat          bool
	CollectFreeText             bool
	CountFalseReportOnDismissal bool
	ModChannelName              string
	EscalationChannelName       string
	ModChannels                 map[string]string
	EscalationChannels          map[string]string
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	sets := setstore.NewMemSetStore()
	if config.SetsFileJSON != "" {
		if err := sets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
			return nil, fmt.Errorf("initializing in-process setstore: %v", err)
		}
		logger.Info("loaded term sets from JSON", "path", config.SetsFileJSON)
	}

	var cases casestore.CaseStore
	var offenses ledger.LedgerStore
	if config.RedisURL != "" {
		// check redis connection before wiring anything to it
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		cs, err := casestore.NewRedisCaseStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis casestore: %v", err)
		}
		cases = cs

		lg, err := ledger.NewRedisLedger(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis ledger: %v", err)
		}
		offenses = lg
	} else {
		cases = casestore.NewMemCaseStore()
		offenses = ledger.NewMemLedger()
	}

	fast := &classify.LexiconDetector{Sets: sets, SetName: config.TermSetName}
	var slow classify.Detector
	switch {
	case config.LLMAPIKey != "":
		logger.Info("configuring chat-completions classifier", "model", config.LLMModel)
		slow = classify.NewLLMClient(config.LLMAPIKey, config.LLMModel)
	case config.ToxicityAPIKey != "":
		logger.Info("configuring toxicity-scoring classifier")
		slow = classify.NewToxicityClient(config.ToxicityAPIKey)
	}
	classifier := classify.NewAdapter(logger, fast, slow)

	var infractionStore infractions.Store = infractions.DisabledStore{}
	if config.DatabaseURL != "" {
		db, err := setupDatabase(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initializing infraction database: %v", err)
		}
		infractionStore, err = infractions.NewGormStore(db)
		if err != nil {
			return nil, fmt.Errorf("initializing infraction store: %v", err)
		}
	}

	cache := newMessageCache(10_000)

	engineConfig := engine.DefaultConfig()
	engineConfig.ModChannels = config.ModChannels
	engineConfig.EscalationChannels = config.EscalationChannels
	engineConfig.ModChannelName = config.ModChannelName
	engineConfig.EscalationChannelName = config.EscalationChannelName
	engineConfig.AutoReportThreshold = config.AutoReportThreshold
	engineConfig.CountFalseReportOnDismissal = config.CountFalseReportOnDismissal
	engineConfig.Session = session.Config{
		Mode:               session.Mode(config.SessionMode),
		AskImmediateThreat: config.AskImmediateThreat,
		CollectFreeText:    config.CollectFreeText,
	}

	eng := &engine.Engine{
		Logger:      logger,
		Config:      engineConfig,
		Classifier:  classifier,
		Sessions:    session.NewTable(),
		Cases:       cases,
		Ledger:      offenses,
		Escalations: escalation.NewTracker(),
		Infractions: infractionStore,
		Resolver:    cache,
	}

	s := &Server{
		logger: logger,
		engine: eng,
		cache:  cache,
		drafts: make(map[string]*engine.CaseDraft),
	}

	return s, nil
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func setupDatabase(dburl string) (*gorm.DB, error) {
	var dial gorm.Dialector
	isSqlite := false
	if suffix, ok := strings.CutPrefix(dburl, "sqlite://"); ok {
		// ensure the directory exists when the db file is being initialized
		if !strings.Contains(suffix, ":?") {
			_ = os.MkdirAll(filepath.Dir(suffix), os.ModePerm)
		}
		dial = sqlite.Open(suffix)
		isSqlite = true
	} else if strings.HasPrefix(dburl, "postgresql://") || strings.HasPrefix(dburl, "postgres://") {
		dial = postgres.Open(dburl)
	} else {
		return nil, fmt.Errorf("unsupported or unrecognized DATABASE_URL value")
	}

	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 slogGorm.New(),
	})
	if err != nil {
		return nil, err
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqldb.SetConnMaxIdleTime(time.Hour)
	if isSqlite {
		sqldb.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			return nil, err
		}
		if err := db.Exec("PRAGMA synchronous=normal;").Error; err != nil {
			return nil, err
		}
	}

	return db, nil
}
